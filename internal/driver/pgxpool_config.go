package driver

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfig configures a connection pool
type PoolConfig struct {
	MaxConns              int32
	MinConns              int32
	MaxConnLifetime       time.Duration
	MaxConnIdleTime       time.Duration
	HealthCheckPeriod     time.Duration
	MaxConnLifetimeJitter time.Duration
}

// DefaultPoolConfig returns production defaults
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxConns:              25,
		MinConns:              5,
		MaxConnLifetime:       30 * time.Minute,
		MaxConnIdleTime:       5 * time.Minute,
		HealthCheckPeriod:     1 * time.Minute,
		MaxConnLifetimeJitter: 30 * time.Second,
	}
}

// ConfigurePgxPool copies poolConfig onto a pgx pool config. Zero fields keep
// the defaults.
func ConfigurePgxPool(config *pgxpool.Config, poolConfig *PoolConfig) {
	defaults := DefaultPoolConfig()
	if poolConfig == nil {
		poolConfig = defaults
	}

	config.MaxConns = pick(poolConfig.MaxConns, defaults.MaxConns)
	config.MinConns = pick(poolConfig.MinConns, defaults.MinConns)
	config.MaxConnLifetime = pick(poolConfig.MaxConnLifetime, defaults.MaxConnLifetime)
	config.MaxConnIdleTime = pick(poolConfig.MaxConnIdleTime, defaults.MaxConnIdleTime)
	config.HealthCheckPeriod = pick(poolConfig.HealthCheckPeriod, defaults.HealthCheckPeriod)
	config.MaxConnLifetimeJitter = pick(poolConfig.MaxConnLifetimeJitter, defaults.MaxConnLifetimeJitter)
	if config.MinConns > config.MaxConns {
		config.MinConns = config.MaxConns
	}
}

// NewPgxPoolWithConfig creates and pings a pgx pool
func NewPgxPoolWithConfig(ctx context.Context, databaseURL string, poolConfig *PoolConfig) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	ConfigurePgxPool(config, poolConfig)

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func pick[T comparable](v, fallback T) T {
	var zero T
	if v == zero {
		return fallback
	}
	return v
}
