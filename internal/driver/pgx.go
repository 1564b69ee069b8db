package driver

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrLastInsertIdUnsupported is returned by PgxResult.LastInsertId, use RETURNING instead
var ErrLastInsertIdUnsupported = errors.New("pgx: LastInsertId is not supported")

// PgxPoolAdapter adapts *pgxpool.Pool to the driver.DB interface
type PgxPoolAdapter struct {
	pool *pgxpool.Pool
}

// NewPgxPool creates a new adapter from *pgxpool.Pool
func NewPgxPool(pool *pgxpool.Pool) DB {
	return &PgxPoolAdapter{pool: pool}
}

// Exec executes a query that doesn't return rows
func (a *PgxPoolAdapter) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	result, err := a.pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &PgxResult{result: result}, nil
}

// Query executes a query that returns multiple rows
func (a *PgxPoolAdapter) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := a.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &PgxRows{rows: rows}, nil
}

// QueryRow executes a query that returns a single row
func (a *PgxPoolAdapter) QueryRow(ctx context.Context, query string, args ...any) Row {
	return &PgxRow{row: a.pool.QueryRow(ctx, query, args...)}
}

// Begin starts a transaction
func (a *PgxPoolAdapter) Begin(ctx context.Context, opts TxOptions) (Tx, error) {
	tx, err := a.pool.BeginTx(ctx, pgxTxOptions(opts))
	if err != nil {
		return nil, err
	}
	return &PgxTx{tx: tx}, nil
}

// SQLDB returns nil as pgxpool.Pool doesn't provide *sql.DB directly
func (a *PgxPoolAdapter) SQLDB() *sql.DB {
	return nil
}

// Close closes the pool
func (a *PgxPoolAdapter) Close() error {
	a.pool.Close()
	return nil
}

// Pool returns the wrapped pool
func (a *PgxPoolAdapter) Pool() *pgxpool.Pool {
	return a.pool
}

func pgxTxOptions(opts TxOptions) pgx.TxOptions {
	txOpts := pgx.TxOptions{}
	switch opts.IsolationLevel {
	case IsolationReadUncommitted:
		txOpts.IsoLevel = pgx.ReadUncommitted
	case IsolationReadCommitted:
		txOpts.IsoLevel = pgx.ReadCommitted
	case IsolationRepeatableRead:
		txOpts.IsoLevel = pgx.RepeatableRead
	case IsolationSerializable:
		txOpts.IsoLevel = pgx.Serializable
	}
	if opts.ReadOnly {
		txOpts.AccessMode = pgx.ReadOnly
	}
	return txOpts
}

// PgxResult wraps pgconn.CommandTag
type PgxResult struct {
	result pgconn.CommandTag
}

// RowsAffected returns the number of rows affected
func (r *PgxResult) RowsAffected() int64 {
	return r.result.RowsAffected()
}

// LastInsertId is not reported by PostgreSQL
func (r *PgxResult) LastInsertId() (int64, error) {
	return 0, ErrLastInsertIdUnsupported
}

// PgxRows wraps pgx.Rows
type PgxRows struct {
	rows pgx.Rows
}

// Close closes the rows iterator
func (r *PgxRows) Close() {
	r.rows.Close()
}

// Err returns any error that occurred during iteration
func (r *PgxRows) Err() error {
	return r.rows.Err()
}

// Next prepares the next result row for reading
func (r *PgxRows) Next() bool {
	return r.rows.Next()
}

// Scan copies the columns in the current row into the values pointed at by dest
func (r *PgxRows) Scan(dest ...any) error {
	return r.rows.Scan(dest...)
}

// Columns returns the result column names
func (r *PgxRows) Columns() ([]string, error) {
	fields := r.rows.FieldDescriptions()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names, nil
}

// PgxRow wraps pgx.Row
type PgxRow struct {
	row pgx.Row
}

// Scan copies the columns in the current row into the values pointed at by dest
func (r *PgxRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return sql.ErrNoRows
	}
	return err
}

// PgxTx wraps pgx.Tx
type PgxTx struct {
	tx pgx.Tx
}

// Commit commits the transaction
func (t *PgxTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

// Rollback rolls back the transaction
func (t *PgxTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

// Exec executes a query that doesn't return rows
func (t *PgxTx) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	result, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &PgxResult{result: result}, nil
}

// Query executes a query that returns multiple rows
func (t *PgxTx) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &PgxRows{rows: rows}, nil
}

// QueryRow executes a query that returns a single row
func (t *PgxTx) QueryRow(ctx context.Context, query string, args ...any) Row {
	return &PgxRow{row: t.tx.QueryRow(ctx, query, args...)}
}
