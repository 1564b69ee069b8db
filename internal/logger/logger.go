package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel is one of the levels a client can enable
type LogLevel int

const (
	LogLevelQuery LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// String returns the configuration name of the level
func (l LogLevel) String() string {
	switch l {
	case LogLevelQuery:
		return "query"
	case LogLevelInfo:
		return "info"
	case LogLevelWarn:
		return "warn"
	case LogLevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Logger gates log output by the configured levels and writes through zap.
// Queries are emitted at zap's debug level and rendered as QUERY.
type Logger struct {
	mu     sync.RWMutex
	levels map[LogLevel]bool
	zl     *zap.Logger
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = NewLogger(nil, os.Stdout)
)

// NewLogger creates a logger writing to writer. Levels are "query", "info",
// "warn" and "error"; anything else is ignored.
func NewLogger(levels []string, writer io.Writer) *Logger {
	return NewWithZap(levels, zap.New(newCore(writer)))
}

// NewWithZap wraps an existing zap logger
func NewWithZap(levels []string, zl *zap.Logger) *Logger {
	l := &Logger{zl: zl}
	l.SetLevels(levels)
	return l
}

func newCore(writer io.Writer) zapcore.Core {
	if os.Getenv("ENV") == "production" {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.TimeKey = "timestamp"
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encCfg.EncodeLevel = levelEncoder
		return zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(writer), zapcore.DebugLevel)
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	encCfg.EncodeLevel = levelEncoder
	encCfg.CallerKey = ""
	return zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(writer), zapcore.DebugLevel)
}

func levelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if level == zapcore.DebugLevel {
		enc.AppendString("QUERY")
		return
	}
	zapcore.CapitalLevelEncoder(level, enc)
}

// SetLevels replaces the enabled levels, safe for concurrent use
func (l *Logger) SetLevels(levels []string) {
	parsed := make(map[LogLevel]bool)
	for _, level := range levels {
		switch strings.ToLower(strings.TrimSpace(level)) {
		case "query":
			parsed[LogLevelQuery] = true
		case "info":
			parsed[LogLevelInfo] = true
		case "warn", "warning":
			parsed[LogLevelWarn] = true
		case "error":
			parsed[LogLevelError] = true
		}
	}

	l.mu.Lock()
	l.levels = parsed
	l.mu.Unlock()
}

// Enabled reports whether level is on
func (l *Logger) Enabled(level LogLevel) bool {
	if l == nil {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.levels[level]
}

// Zap returns the underlying zap logger
func (l *Logger) Zap() *zap.Logger {
	return l.zl
}

// Sync flushes buffered entries
func (l *Logger) Sync() error {
	return l.zl.Sync()
}

// Query logs a SQL statement with its (redacted) arguments
func (l *Logger) Query(query string, args []any, duration time.Duration) {
	if !l.Enabled(LogLevelQuery) {
		return
	}
	l.zl.Debug(formatQuery(query, args), zap.Duration("took", duration))
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...any) {
	if !l.Enabled(LogLevelInfo) {
		return
	}
	l.zl.Info(fmt.Sprintf(format, args...))
}

// Warn logs a warning
func (l *Logger) Warn(format string, args ...any) {
	if !l.Enabled(LogLevelWarn) {
		return
	}
	l.zl.Warn(fmt.Sprintf(format, args...))
}

// Error logs an error
func (l *Logger) Error(format string, args ...any) {
	if !l.Enabled(LogLevelError) {
		return
	}
	l.zl.Error(fmt.Sprintf(format, args...))
}

// formatQuery inlines arguments into the statement for display
func formatQuery(query string, args []any) string {
	if len(args) == 0 {
		return query
	}

	formatted := query
	if strings.Contains(query, "$1") {
		// replace from the highest index so $1 does not clobber $10
		for i := len(args); i >= 1; i-- {
			formatted = strings.ReplaceAll(formatted, fmt.Sprintf("$%d", i), formatArg(args[i-1]))
		}
		return formatted
	}

	var b strings.Builder
	argIndex := 0
	for _, r := range query {
		if r == '?' && argIndex < len(args) {
			b.WriteString(formatArg(args[argIndex]))
			argIndex++
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// formatArg renders one argument, redacting sensitive-looking values
func formatArg(arg any) string {
	switch v := arg.(type) {
	case string:
		if isSensitiveData(v) {
			return "'***REDACTED***'"
		}
		if len(v) > 100 {
			return fmt.Sprintf("'%s...' (truncated)", v[:100])
		}
		return fmt.Sprintf("'%s'", v)
	case []byte:
		if len(v) > 0 {
			return "'***REDACTED***'"
		}
		return "''"
	case nil:
		return "NULL"
	case time.Time:
		return fmt.Sprintf("'%s'", v.Format(time.RFC3339Nano))
	default:
		str := fmt.Sprintf("%v", v)
		if isSensitiveData(str) {
			return "***REDACTED***"
		}
		return str
	}
}

// isSensitiveData reports whether a value looks like a secret
func isSensitiveData(s string) bool {
	s = strings.ToLower(s)
	sensitiveKeywords := []string{
		"password", "passwd", "pwd",
		"secret", "token", "api_key", "apikey",
		"access_token", "refresh_token", "authorization",
		"credential", "private_key",
		"ssn", "social_security", "credit_card", "cvv",
	}

	for _, keyword := range sensitiveKeywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}

	if len(s) > 20 && (strings.HasPrefix(s, "eyj") || // JWT
		strings.HasPrefix(s, "sk_") ||
		strings.HasPrefix(s, "pk_") ||
		strings.HasPrefix(s, "ghp_") ||
		strings.HasPrefix(s, "xoxb-") ||
		strings.HasPrefix(s, "xoxp-")) {
		return true
	}

	return false
}

// SetDefaultLogger replaces the package logger
func SetDefaultLogger(logger *Logger) {
	defaultMu.Lock()
	defaultLogger = logger
	defaultMu.Unlock()
}

// GetDefaultLogger returns the package logger
func GetDefaultLogger() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

func Query(query string, args []any, duration time.Duration) {
	GetDefaultLogger().Query(query, args, duration)
}

func Info(format string, args ...any) {
	GetDefaultLogger().Info(format, args...)
}

func Warn(format string, args ...any) {
	GetDefaultLogger().Warn(format, args...)
}

func Error(format string, args ...any) {
	GetDefaultLogger().Error(format, args...)
}

// SetLogLevels sets the levels of the package logger
func SetLogLevels(levels []string) {
	GetDefaultLogger().SetLevels(levels)
}

// FileLogger creates a logger appending to filename
func FileLogger(filename string, levels []string) (*Logger, error) {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return NewLogger(levels, file), nil
}
