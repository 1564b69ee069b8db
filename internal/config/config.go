package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// FileName is the configuration file looked up by Load
const FileName = "agentdb.conf"

// Config is the content of agentdb.conf
type Config struct {
	Log        []string          `toml:"log,omitempty"` // query, info, warn, error
	Datasource *DatasourceConfig `toml:"datasource"`
	Pool       PoolConfig        `toml:"pool"`
	Timeouts   TimeoutsConfig    `toml:"timeouts"`
	N1         N1Config          `toml:"n1"`

	path string
}

// DatasourceConfig selects the database
type DatasourceConfig struct {
	Provider string `toml:"provider"` // postgresql, mysql or sqlite
	URL      string `toml:"url"`      // env("DATABASE_URL"), ${DATABASE_URL} or a literal URL
}

// PoolConfig tunes the connection pool
type PoolConfig struct {
	MaxConns        int32    `toml:"max_conns"`
	MinConns        int32    `toml:"min_conns"`
	MaxConnLifetime Duration `toml:"max_conn_lifetime"`
	MaxConnIdleTime Duration `toml:"max_conn_idle_time"`
}

// TimeoutsConfig bounds queries and transactions
type TimeoutsConfig struct {
	Query       Duration `toml:"query"`
	Transaction Duration `toml:"transaction"`
	MaxWait     Duration `toml:"max_wait"`
}

// N1Config configures the N+1 query detector. A zero threshold disables it.
type N1Config struct {
	Threshold int      `toml:"threshold"`
	Window    Duration `toml:"window"`
}

// Duration decodes TOML strings such as "5s" or "30m"
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Load reads agentdb.conf. With an empty path the file is searched from the
// working directory upwards. A .env file, when found, is loaded first.
func Load(configPath string) (*Config, error) {
	loadDotEnv()

	if configPath == "" {
		found, err := find(FileName)
		if err != nil {
			return nil, err
		}
		configPath = found
	}

	return LoadFile(configPath)
}

// LoadFile reads and validates one configuration file without touching .env
func LoadFile(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", configPath, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}
	cfg.path = configPath
	return cfg, nil
}

// Parse decodes, expands and validates a configuration document
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.expandEnvVars()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func loadDotEnv() {
	if envPath, err := find(".env"); err == nil {
		_ = godotenv.Load(envPath)
	}
}

// find walks up from the working directory looking for name
func find(name string) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	for {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s not found", name)
		}
		dir = parent
	}
}

func (c *Config) expandEnvVars() {
	if c.Datasource != nil {
		c.Datasource.URL = expandString(c.Datasource.URL)
		c.Datasource.Provider = expandString(c.Datasource.Provider)
	}
}

// expandString expands ${VAR}, $VAR, env("VAR") and env('VAR')
func expandString(s string) string {
	for {
		var start int
		var endQuote string

		if idx := strings.Index(s, `env("`); idx != -1 {
			start = idx
			endQuote = `")`
		} else if idx := strings.Index(s, `env('`); idx != -1 {
			start = idx
			endQuote = `')`
		} else {
			break
		}

		end := strings.Index(s[start+5:], endQuote)
		if end == -1 {
			break
		}
		end += start + 5

		s = s[:start] + os.Getenv(s[start+5:end]) + s[end+2:]
	}

	return os.ExpandEnv(s)
}

// Validate checks required fields and fills defaults
func (c *Config) Validate() error {
	if c.Datasource == nil {
		return fmt.Errorf("datasource is required")
	}

	if c.Datasource.URL == "" {
		return fmt.Errorf(`datasource.url is required (use env("DATABASE_URL") or ${DATABASE_URL})`)
	}

	if c.Datasource.Provider == "" {
		c.Datasource.Provider = ProviderFromURL(c.Datasource.URL)
	}
	switch strings.ToLower(c.Datasource.Provider) {
	case "postgresql", "postgres":
		c.Datasource.Provider = "postgresql"
	case "mysql", "mariadb":
		c.Datasource.Provider = "mysql"
	case "sqlite", "sqlite3":
		c.Datasource.Provider = "sqlite"
	default:
		return fmt.Errorf("unsupported datasource.provider %q", c.Datasource.Provider)
	}

	if c.Pool.MinConns < 0 || c.Pool.MaxConns < 0 {
		return fmt.Errorf("pool sizes must not be negative")
	}
	if c.Pool.MaxConns > 0 && c.Pool.MinConns > c.Pool.MaxConns {
		return fmt.Errorf("pool.min_conns (%d) exceeds pool.max_conns (%d)", c.Pool.MinConns, c.Pool.MaxConns)
	}
	if c.N1.Threshold < 0 {
		return fmt.Errorf("n1.threshold must not be negative")
	}
	if c.N1.Threshold > 0 && c.N1.Window.Duration == 0 {
		c.N1.Window.Duration = time.Second
	}

	for _, level := range c.Log {
		switch strings.ToLower(strings.TrimSpace(level)) {
		case "query", "info", "warn", "warning", "error":
		default:
			return fmt.Errorf("unknown log level %q", level)
		}
	}

	return nil
}

// ProviderFromURL guesses the provider from a connection URL
func ProviderFromURL(url string) string {
	lower := strings.ToLower(url)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return "postgresql"
	case strings.HasPrefix(lower, "mysql://"), strings.Contains(lower, "@tcp("):
		return "mysql"
	case strings.HasPrefix(lower, "file:"), strings.HasPrefix(lower, "sqlite:"),
		strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"), lower == ":memory:":
		return "sqlite"
	}
	return ""
}

// Path returns the file the configuration was read from
func (c *Config) Path() string {
	return c.path
}

// GetDatabaseURL returns the expanded database URL
func (c *Config) GetDatabaseURL() string {
	if c.Datasource != nil {
		return c.Datasource.URL
	}
	return ""
}

// GetProvider returns the normalized provider
func (c *Config) GetProvider() string {
	if c.Datasource != nil {
		return c.Datasource.Provider
	}
	return ""
}
