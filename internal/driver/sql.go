package driver

import (
	"context"
	"database/sql"
)

// SQLDBAdapter adapts *sql.DB to the driver.DB interface
type SQLDBAdapter struct {
	db *sql.DB
}

// NewSQLDB creates a new adapter from *sql.DB (mysql, sqlite3, pgx/stdlib)
func NewSQLDB(db *sql.DB) DB {
	return &SQLDBAdapter{db: db}
}

// Exec executes a query that doesn't return rows
func (a *SQLDBAdapter) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	result, err := a.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &SQLResult{result: result}, nil
}

// Query executes a query that returns multiple rows
func (a *SQLDBAdapter) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &SQLRows{rows: rows}, nil
}

// QueryRow executes a query that returns a single row
func (a *SQLDBAdapter) QueryRow(ctx context.Context, query string, args ...any) Row {
	return a.db.QueryRowContext(ctx, query, args...)
}

// Begin starts a transaction. The context governs the whole transaction:
// database/sql rolls back when it is cancelled.
func (a *SQLDBAdapter) Begin(ctx context.Context, opts TxOptions) (Tx, error) {
	tx, err := a.db.BeginTx(ctx, opts.sqlOptions())
	if err != nil {
		return nil, err
	}
	return &SQLTx{tx: tx}, nil
}

// SQLDB returns the wrapped *sql.DB
func (a *SQLDBAdapter) SQLDB() *sql.DB {
	return a.db
}

// Close closes the database
func (a *SQLDBAdapter) Close() error {
	return a.db.Close()
}

// SQLResult wraps sql.Result
type SQLResult struct {
	result sql.Result
}

// RowsAffected returns the number of rows affected, 0 when unknown
func (r *SQLResult) RowsAffected() int64 {
	n, err := r.result.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}

// LastInsertId returns the generated key of the last insert
func (r *SQLResult) LastInsertId() (int64, error) {
	return r.result.LastInsertId()
}

// SQLRows wraps *sql.Rows
type SQLRows struct {
	rows *sql.Rows
}

// Close closes the rows iterator
func (r *SQLRows) Close() {
	_ = r.rows.Close()
}

// Err returns any error that occurred during iteration
func (r *SQLRows) Err() error {
	return r.rows.Err()
}

// Next prepares the next result row for reading
func (r *SQLRows) Next() bool {
	return r.rows.Next()
}

// Scan copies the columns in the current row into the values pointed at by dest
func (r *SQLRows) Scan(dest ...any) error {
	return r.rows.Scan(dest...)
}

// Columns returns the result column names
func (r *SQLRows) Columns() ([]string, error) {
	return r.rows.Columns()
}

// SQLTx wraps *sql.Tx
type SQLTx struct {
	tx *sql.Tx
}

// Commit commits the transaction
func (t *SQLTx) Commit(ctx context.Context) error {
	return t.tx.Commit()
}

// Rollback rolls back the transaction
func (t *SQLTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback()
}

// Exec executes a query that doesn't return rows
func (t *SQLTx) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	result, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &SQLResult{result: result}, nil
}

// Query executes a query that returns multiple rows
func (t *SQLTx) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &SQLRows{rows: rows}, nil
}

// QueryRow executes a query that returns a single row
func (t *SQLTx) QueryRow(ctx context.Context, query string, args ...any) Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}
