package client

import (
	"time"

	"github.com/carlosnayan/agentdb/builder"
	"github.com/carlosnayan/agentdb/internal/config"
	"github.com/carlosnayan/agentdb/internal/driver"
	"github.com/carlosnayan/agentdb/internal/logger"
	"github.com/carlosnayan/agentdb/schema"
)

type options struct {
	registry     *schema.Registry
	logger       *logger.Logger
	levels       []string
	pool         *driver.PoolConfig
	queryTimeout time.Duration
	txDefaults   builder.TxOptions
	n1Threshold  int
	n1Window     time.Duration
}

// Option configures a Client
type Option func(*options)

// WithRegistry replaces schema.Default()
func WithRegistry(reg *schema.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// WithLogger logs statements and warnings on l instead of the default logger
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithLogLevels enables log levels: query, info, warn, error
func WithLogLevels(levels ...string) Option {
	return func(o *options) { o.levels = levels }
}

// WithPool tunes the connection pool opened by Open
func WithPool(cfg driver.PoolConfig) Option {
	return func(o *options) { o.pool = &cfg }
}

// WithQueryTimeout bounds every statement
func WithQueryTimeout(timeout time.Duration) Option {
	return func(o *options) { o.queryTimeout = timeout }
}

// WithTransactionDefaults sets the options of transactions started without any
func WithTransactionDefaults(opts builder.TxOptions) Option {
	return func(o *options) { o.txDefaults = opts }
}

// WithN1Detection warns when the same statement shape runs threshold times
// within window
func WithN1Detection(threshold int, window time.Duration) Option {
	return func(o *options) {
		o.n1Threshold = threshold
		o.n1Window = window
	}
}

// fromConfig turns a configuration file into options. Explicit options passed
// to OpenFromConfig are applied after these.
func fromConfig(cfg *config.Config) []Option {
	opts := []Option{
		WithPool(driver.PoolConfig{
			MaxConns:        cfg.Pool.MaxConns,
			MinConns:        cfg.Pool.MinConns,
			MaxConnLifetime: cfg.Pool.MaxConnLifetime.Duration,
			MaxConnIdleTime: cfg.Pool.MaxConnIdleTime.Duration,
		}),
		WithQueryTimeout(cfg.Timeouts.Query.Duration),
		WithTransactionDefaults(builder.TxOptions{
			Timeout: cfg.Timeouts.Transaction.Duration,
			MaxWait: cfg.Timeouts.MaxWait.Duration,
		}),
	}
	if len(cfg.Log) > 0 {
		opts = append(opts, WithLogLevels(cfg.Log...))
	}
	if cfg.N1.Threshold > 0 {
		opts = append(opts, WithN1Detection(cfg.N1.Threshold, cfg.N1.Window.Duration))
	}
	return opts
}
