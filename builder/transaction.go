package builder

import (
	"context"
	"fmt"
	"time"

	contextutil "github.com/carlosnayan/agentdb/internal/context"
	"github.com/carlosnayan/agentdb/internal/driver"
	errs "github.com/carlosnayan/agentdb/internal/errors"
)

// TxOptions configures an interactive transaction
type TxOptions struct {
	IsolationLevel driver.IsolationLevel
	ReadOnly       bool
	// Timeout bounds the whole transaction (default 30s)
	Timeout time.Duration
	// MaxWait bounds the wait for a connection (default 2s)
	MaxWait time.Duration
}

func (o TxOptions) merge(defaults TxOptions) TxOptions {
	if o.IsolationLevel == driver.IsolationDefault {
		o.IsolationLevel = defaults.IsolationLevel
	}
	if o.Timeout <= 0 {
		o.Timeout = defaults.Timeout
	}
	if o.MaxWait <= 0 {
		o.MaxWait = defaults.MaxWait
	}
	o.ReadOnly = o.ReadOnly || defaults.ReadOnly
	return o
}

// Transaction runs fn in a transaction. Statements issued through the runtime
// passed to fn belong to the transaction; it commits when fn returns nil and
// rolls back on an error or a panic. Transactions do not nest.
func (r *Runtime) Transaction(ctx context.Context, fn func(rt *Runtime) error, opts ...TxOptions) (err error) {
	if r.inTx {
		return invalid("", "nested transactions are not supported")
	}
	var o TxOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	o = o.merge(r.txDefaults)

	ctx, cancel := contextutil.WithTransactionTimeout(ctx, o.Timeout)
	defer cancel()

	tx, err := r.begin(ctx, o)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
	}()

	if err := fn(r.withTx(tx)); err != nil {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			r.logger.Warn("rollback failed: %v", rbErr)
		}
		if ctx.Err() != nil && !errs.IsTimeout(err) {
			return errs.Wrap(errs.ErrTimeout, fmt.Errorf("transaction: %w", err))
		}
		return err
	}

	if ctx.Err() != nil {
		_ = tx.Rollback(context.WithoutCancel(ctx))
		return errs.Wrap(errs.ErrTimeout, fmt.Errorf("transaction expired before commit: %w", ctx.Err()))
	}
	if err := tx.Commit(ctx); err != nil {
		return errs.MapDriverError(err, errs.OpTx)
	}
	return nil
}

// begin starts a transaction, giving up after MaxWait. A transaction that
// starts after the wait expired is rolled back.
func (r *Runtime) begin(ctx context.Context, o TxOptions) (driver.Tx, error) {
	maxWait := o.MaxWait
	if maxWait <= 0 {
		maxWait = contextutil.DefaultMaxWait
	}
	type result struct {
		tx  driver.Tx
		err error
	}
	done := make(chan result, 1)
	go func() {
		tx, err := r.conn.Begin(ctx, driver.TxOptions{IsolationLevel: o.IsolationLevel, ReadOnly: o.ReadOnly})
		done <- result{tx, err}
	}()

	timer := time.NewTimer(maxWait)
	defer timer.Stop()
	select {
	case res := <-done:
		if res.err != nil {
			return nil, errs.MapDriverError(res.err, errs.OpTx)
		}
		return res.tx, nil
	case <-timer.C:
		go func() {
			if res := <-done; res.err == nil {
				_ = res.tx.Rollback(context.Background())
			}
		}()
		return nil, errs.Wrap(errs.ErrTimeout, fmt.Errorf("no connection available after %s", maxWait))
	}
}
