// Package raw runs hand-written SQL against the client's connection. The safe
// variants take portable `?` placeholders and a single statement; the Unsafe
// variants send the text to the driver as is.
package raw

import (
	"context"
	"database/sql/driver"
	"fmt"
	"time"

	contextutil "github.com/carlosnayan/agentdb/internal/context"
	"github.com/carlosnayan/agentdb/internal/dialect"
	dbdriver "github.com/carlosnayan/agentdb/internal/driver"
	errs "github.com/carlosnayan/agentdb/internal/errors"
	"github.com/carlosnayan/agentdb/internal/limits"
	"github.com/carlosnayan/agentdb/internal/logger"
)

// Executor provides methods for executing raw SQL queries
type Executor struct {
	q       dbdriver.Querier
	d       dialect.Dialect
	log     *logger.Logger
	timeout time.Duration
}

// New creates a raw executor over q. Inside a transaction pass the
// transaction's querier.
func New(q dbdriver.Querier, d dialect.Dialect) *Executor {
	return &Executor{q: q, d: d}
}

// WithLogger logs every statement on l
func (e *Executor) WithLogger(l *logger.Logger) *Executor {
	e.log = l
	return e
}

// WithTimeout bounds each statement; zero keeps the default query timeout
func (e *Executor) WithTimeout(timeout time.Duration) *Executor {
	e.timeout = timeout
	return e
}

// ExecuteRaw runs one statement with `?` placeholders and returns the number
// of affected rows
//
//	n, err := exec.ExecuteRaw(ctx, "UPDATE rentals SET status = ? WHERE end_date < ?", "expired", now)
func (e *Executor) ExecuteRaw(ctx context.Context, query string, args ...any) (int64, error) {
	rewritten, err := e.prepare(query, args)
	if err != nil {
		return 0, err
	}
	return e.exec(ctx, rewritten, args)
}

// ExecuteRawUnsafe runs query exactly as given
func (e *Executor) ExecuteRawUnsafe(ctx context.Context, query string, args ...any) (int64, error) {
	if err := checkSize(query); err != nil {
		return 0, err
	}
	return e.exec(ctx, query, args)
}

// QueryRaw runs one SELECT with `?` placeholders and returns every row keyed
// by column name
//
//	rows, err := exec.QueryRaw(ctx, "SELECT category, COUNT(*) AS n FROM agents WHERE is_active = ? GROUP BY category", true)
func (e *Executor) QueryRaw(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rewritten, err := e.prepare(query, args)
	if err != nil {
		return nil, err
	}
	return e.query(ctx, rewritten, args)
}

// QueryRawUnsafe runs query exactly as given and returns every row keyed by
// column name
func (e *Executor) QueryRawUnsafe(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	if err := checkSize(query); err != nil {
		return nil, err
	}
	return e.query(ctx, query, args)
}

// Query executes a raw SQL query and hands back the driver rows
func (e *Executor) Query(ctx context.Context, query string, args ...any) (dbdriver.Rows, error) {
	if err := checkSize(query); err != nil {
		return nil, err
	}
	start := time.Now()
	rows, err := e.q.Query(ctx, query, args...)
	e.logQuery(query, args, start)
	if err != nil {
		return nil, errs.MapDriverError(err, errs.OpRaw)
	}
	return rows, nil
}

// QueryRow executes a raw SQL query that returns a single row
//
//	var total, active int64
//	err := exec.QueryRow(ctx, `SELECT COUNT(*), COUNT(CASE WHEN is_active THEN 1 END) FROM agents`).Scan(&total, &active)
func (e *Executor) QueryRow(ctx context.Context, query string, args ...any) dbdriver.Row {
	start := time.Now()
	row := e.q.QueryRow(ctx, query, args...)
	e.logQuery(query, args, start)
	return row
}

func (e *Executor) prepare(query string, args []any) (string, error) {
	if err := checkSize(query); err != nil {
		return "", err
	}
	rewritten, n, err := Rewrite(e.d, query)
	if err != nil {
		return "", errs.Wrap(errs.ErrValidation, err)
	}
	if n != len(args) {
		return "", errs.Wrap(errs.ErrValidation, fmt.Errorf("query has %d placeholders but %d arguments were given", n, len(args)))
	}
	return rewritten, nil
}

func (e *Executor) exec(ctx context.Context, query string, args []any) (int64, error) {
	ctx, cancel := contextutil.WithQueryTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	res, err := e.q.Exec(ctx, query, args...)
	e.logQuery(query, args, start)
	if err != nil {
		return 0, errs.MapDriverError(err, errs.OpRaw)
	}
	return res.RowsAffected(), nil
}

func (e *Executor) query(ctx context.Context, query string, args []any) ([]map[string]any, error) {
	ctx, cancel := contextutil.WithQueryTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	rows, err := e.q.Query(ctx, query, args...)
	e.logQuery(query, args, start)
	if err != nil {
		return nil, errs.MapDriverError(err, errs.OpRaw)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, errs.MapDriverError(err, errs.OpRaw)
	}

	out := []map[string]any{}
	for rows.Next() {
		if len(out) >= limits.MaxScanRows {
			return nil, errs.Wrap(errs.ErrTooManyRows, fmt.Errorf("raw query returned more than %d rows", limits.MaxScanRows))
		}
		dest := make([]any, len(cols))
		for i := range dest {
			dest[i] = new(any)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, errs.MapDriverError(err, errs.OpRaw)
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			v, err := plain(*(dest[i].(*any)))
			if err != nil {
				return nil, errs.Wrap(errs.ErrRawQueryFailed, fmt.Errorf("column %s: %w", col, err))
			}
			row[col] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.MapDriverError(err, errs.OpRaw)
	}
	return out, nil
}

// plain turns driver-specific values into plain Go values: bytes become
// strings and valuers (pgx numerics, for one) are resolved
func plain(v any) (any, error) {
	switch x := v.(type) {
	case []byte:
		return string(x), nil
	case driver.Valuer:
		resolved, err := x.Value()
		if err != nil {
			return nil, err
		}
		if b, ok := resolved.([]byte); ok {
			return string(b), nil
		}
		return resolved, nil
	}
	return v, nil
}

func (e *Executor) logQuery(query string, args []any, start time.Time) {
	if e.log == nil {
		return
	}
	e.log.Query(query, args, time.Since(start))
}

func checkSize(query string) error {
	if len(query) > limits.MaxRawQuerySize {
		return errs.Wrap(errs.ErrValidation, fmt.Errorf("raw query is %d bytes, the limit is %d", len(query), limits.MaxRawQuerySize))
	}
	return nil
}
