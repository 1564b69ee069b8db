package contextutil

import (
	"context"
	"time"
)

var (
	// DefaultTimeout is the fallback for WithTimeout
	DefaultTimeout = 30 * time.Second

	// DefaultQueryTimeout bounds a single statement (and the relation loading that follows it)
	DefaultQueryTimeout = 5 * time.Second

	// DefaultTransactionTimeout bounds an interactive transaction
	DefaultTransactionTimeout = 30 * time.Second

	// DefaultMaxWait bounds the wait for a connection when a transaction starts
	DefaultMaxWait = 2 * time.Second
)

// WithTimeout returns a context bounded by timeout, or DefaultTimeout when none is given
func WithTimeout(ctx context.Context, timeout ...time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, pick(DefaultTimeout, timeout))
}

// WithQueryTimeout bounds a query. An earlier deadline on ctx still wins.
func WithQueryTimeout(ctx context.Context, timeout ...time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, pick(DefaultQueryTimeout, timeout))
}

// WithTransactionTimeout bounds an interactive transaction
func WithTransactionTimeout(ctx context.Context, timeout ...time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, pick(DefaultTransactionTimeout, timeout))
}

// WithMigrationTimeout bounds schema pushes (5 minutes)
func WithMigrationTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 5*time.Minute)
}

func pick(fallback time.Duration, timeout []time.Duration) time.Duration {
	if len(timeout) > 0 && timeout[0] > 0 {
		return timeout[0]
	}
	return fallback
}
