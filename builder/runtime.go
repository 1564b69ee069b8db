package builder

import (
	"context"
	"fmt"
	"time"

	"github.com/carlosnayan/agentdb/internal/cache"
	contextutil "github.com/carlosnayan/agentdb/internal/context"
	"github.com/carlosnayan/agentdb/internal/dialect"
	"github.com/carlosnayan/agentdb/internal/driver"
	errs "github.com/carlosnayan/agentdb/internal/errors"
	"github.com/carlosnayan/agentdb/internal/limits"
	"github.com/carlosnayan/agentdb/internal/logger"
	"github.com/carlosnayan/agentdb/internal/mapper"
	"github.com/carlosnayan/agentdb/internal/query"
	"github.com/carlosnayan/agentdb/schema"
)

// Runtime executes compiled statements for every table of a registry. A
// Runtime returned by Transaction runs its statements inside the transaction.
type Runtime struct {
	conn     driver.DB
	db       driver.Querier
	dialect  dialect.Dialect
	registry *schema.Registry
	logger   *logger.Logger
	cache    *cache.StmtCache
	detector *query.N1Detector

	queryTimeout time.Duration
	txDefaults   TxOptions
	inTx         bool
}

// NewRuntime creates a runtime over db. A nil registry uses schema.Default().
func NewRuntime(db driver.DB, d dialect.Dialect, registry *schema.Registry) *Runtime {
	if registry == nil {
		registry = schema.Default()
	}
	return &Runtime{
		conn:     db,
		db:       db,
		dialect:  d,
		registry: registry,
		logger:   logger.GetDefaultLogger(),
		cache:    cache.DefaultStmtCache(),
	}
}

// SetLogger sets the logger used for statements
func (r *Runtime) SetLogger(l *logger.Logger) *Runtime {
	r.logger = l
	return r
}

// SetN1Detector records every statement in d
func (r *Runtime) SetN1Detector(d *query.N1Detector) *Runtime {
	r.detector = d
	return r
}

// SetStmtCache sets the SQL fragment cache, nil disables caching
func (r *Runtime) SetStmtCache(c *cache.StmtCache) *Runtime {
	r.cache = c
	return r
}

// SetQueryTimeout bounds each statement, zero uses the package default
func (r *Runtime) SetQueryTimeout(timeout time.Duration) *Runtime {
	r.queryTimeout = timeout
	return r
}

// QueryTimeout returns the per-statement timeout, zero for the default
func (r *Runtime) QueryTimeout() time.Duration {
	return r.queryTimeout
}

// SetTransactionDefaults sets the options used when Transaction gets none
func (r *Runtime) SetTransactionDefaults(opts TxOptions) *Runtime {
	r.txDefaults = opts
	return r
}

// Dialect returns the SQL dialect
func (r *Runtime) Dialect() dialect.Dialect {
	return r.dialect
}

// Registry returns the schema registry
func (r *Runtime) Registry() *schema.Registry {
	return r.registry
}

// Querier returns the connection or the transaction statements run on
func (r *Runtime) Querier() driver.Querier {
	return r.db
}

// Logger returns the statement logger
func (r *Runtime) Logger() *logger.Logger {
	return r.logger
}

// InTransaction reports whether the runtime is bound to a transaction
func (r *Runtime) InTransaction() bool {
	return r.inTx
}

// Table returns the query builder of a table
func (r *Runtime) Table(name string) (*TableQueryBuilder, error) {
	m, ok := r.registry.Model(name)
	if !ok {
		return nil, invalid("", "unknown table %q", name)
	}
	return &TableQueryBuilder{rt: r, model: m}, nil
}

// MustTable is Table that panics on unknown tables
func (r *Runtime) MustTable(name string) *TableQueryBuilder {
	b, err := r.Table(name)
	if err != nil {
		panic(err)
	}
	return b
}

func (r *Runtime) withTx(tx driver.Tx) *Runtime {
	child := *r
	child.db = tx
	child.inTx = true
	return &child
}

// atomic runs fn in a transaction unless the runtime already is one
func (r *Runtime) atomic(ctx context.Context, fn func(rt *Runtime) error) error {
	if r.inTx {
		return fn(r)
	}
	return r.Transaction(ctx, fn)
}

// stmt accumulates bound arguments while SQL text is assembled. Text must be
// written in the same order as bind is called: MySQL and SQLite placeholders
// are positional.
type stmt struct {
	d    dialect.Dialect
	args []any
}

func newStmt(d dialect.Dialect) *stmt {
	return &stmt{d: d}
}

func (s *stmt) bind(v any) string {
	s.args = append(s.args, v)
	return s.d.GetPlaceholder(len(s.args))
}

// fetch runs a SELECT and decodes each row with fields, which must match the
// selected columns
func (r *Runtime) fetch(ctx context.Context, table string, op errs.OperationType, sql string, args []any, fields []schema.Field) ([]Record, error) {
	ctx, cancel := contextutil.WithQueryTimeout(ctx, r.queryTimeout)
	defer cancel()

	start := time.Now()
	rows, err := r.db.Query(ctx, sql, args...)
	r.logQuery(table, sql, args, start)
	if err != nil {
		return nil, errs.MapDriverError(err, op)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		if len(out) >= limits.MaxScanRows {
			return nil, errs.Wrap(errs.ErrTooManyRows, fmt.Errorf("%s returned more than %d rows", table, limits.MaxScanRows))
		}
		dest := make([]any, len(fields))
		for i, f := range fields {
			dest[i] = mapper.ScanTarget(f)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, errs.MapDriverError(err, op)
		}
		rec := make(Record, len(fields))
		for i, f := range fields {
			v, err := mapper.Decode(f, mapper.Scanned(dest[i]))
			if err != nil {
				return nil, errs.Wrap(errs.ErrUnknownRequest, fmt.Errorf("%s: %w", table, err))
			}
			rec[f.Name] = v
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.MapDriverError(err, op)
	}
	if out == nil {
		out = []Record{}
	}
	return out, nil
}

// scanOne runs a query returning at most one row of untyped values
func (r *Runtime) scanOne(ctx context.Context, table string, op errs.OperationType, sql string, args []any, n int) ([]any, error) {
	rows, err := r.scanAll(ctx, table, op, sql, args, n)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// scanAll runs a query and returns every row as untyped values
func (r *Runtime) scanAll(ctx context.Context, table string, op errs.OperationType, sql string, args []any, n int) ([][]any, error) {
	ctx, cancel := contextutil.WithQueryTimeout(ctx, r.queryTimeout)
	defer cancel()

	start := time.Now()
	rows, err := r.db.Query(ctx, sql, args...)
	r.logQuery(table, sql, args, start)
	if err != nil {
		return nil, errs.MapDriverError(err, op)
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		if len(out) >= limits.MaxScanRows {
			return nil, errs.Wrap(errs.ErrTooManyRows, fmt.Errorf("%s returned more than %d rows", table, limits.MaxScanRows))
		}
		dest := make([]any, n)
		for i := range dest {
			dest[i] = new(any)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, errs.MapDriverError(err, op)
		}
		row := make([]any, n)
		for i := range dest {
			row[i] = *(dest[i].(*any))
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.MapDriverError(err, op)
	}
	return out, nil
}

// exec runs a statement that returns no rows
func (r *Runtime) exec(ctx context.Context, table string, op errs.OperationType, sql string, args []any) (driver.Result, error) {
	ctx, cancel := contextutil.WithQueryTimeout(ctx, r.queryTimeout)
	defer cancel()

	start := time.Now()
	res, err := r.db.Exec(ctx, sql, args...)
	r.logQuery(table, sql, args, start)
	if err != nil {
		return nil, errs.MapDriverError(err, op)
	}
	return res, nil
}
