package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/carlosnayan/agentdb/internal/config"
	"github.com/carlosnayan/agentdb/internal/dialect"
	"github.com/carlosnayan/agentdb/internal/driver"
	"github.com/carlosnayan/agentdb/internal/logger"
	"github.com/carlosnayan/agentdb/internal/migrations"
)

var (
	configFile string
	verbose    bool
)

// Execute runs the CLI application
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "agentdb",
		Short:         "agentdb CLI - schema and database tooling for the agent marketplace",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to configuration file (default: agentdb.conf, searched upwards)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose mode (log every statement)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newSchemaCmd())
	root.AddCommand(newDBCmd())
	return root
}

// loadConfig loads agentdb.conf and applies its log levels
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	levels := cfg.Log
	if verbose {
		levels = append(levels, "query", "info")
	}
	if len(levels) > 0 {
		logger.SetLogLevels(levels)
	}
	return cfg, nil
}

// connect opens the configured database
func connect(ctx context.Context) (driver.DB, dialect.Dialect, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	dbURL := cfg.GetDatabaseURL()
	if dbURL == "" {
		return nil, nil, nil, fmt.Errorf("DATABASE_URL not configured")
	}

	db, err := migrations.ConnectDatabase(ctx, cfg.GetProvider(), dbURL, &driver.PoolConfig{
		MaxConns:        cfg.Pool.MaxConns,
		MinConns:        cfg.Pool.MinConns,
		MaxConnLifetime: cfg.Pool.MaxConnLifetime.Duration,
		MaxConnIdleTime: cfg.Pool.MaxConnIdleTime.Duration,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error connecting to database: %w", err)
	}
	return db, dialect.GetDialect(cfg.GetProvider()), cfg, nil
}
