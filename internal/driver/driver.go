package driver

import (
	"context"
	"database/sql"
	"strings"
)

// DB is the main database interface that abstracts different database drivers
type DB interface {
	Querier

	// Begin starts a transaction
	Begin(ctx context.Context, opts TxOptions) (Tx, error)

	// SQLDB returns the underlying *sql.DB for migrations and introspection
	// Returns nil if not available (e.g., for pgx pool)
	SQLDB() *sql.DB

	// Close releases the connection pool
	Close() error
}

// Querier is the statement surface shared by DB and Tx
type Querier interface {
	// Exec executes a query that doesn't return rows
	Exec(ctx context.Context, sql string, args ...any) (Result, error)

	// Query executes a query that returns multiple rows
	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	// QueryRow executes a query that returns a single row
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// Result represents the result of an Exec operation
type Result interface {
	// RowsAffected returns the number of rows affected
	RowsAffected() int64

	// LastInsertId returns the generated key of the last insert, when the
	// driver reports one (MySQL, SQLite)
	LastInsertId() (int64, error)
}

// Rows represents a set of query results
type Rows interface {
	// Close closes the rows iterator
	Close()

	// Err returns any error that occurred during iteration
	Err() error

	// Next prepares the next result row for reading
	Next() bool

	// Scan copies the columns in the current row into the values pointed at by dest
	Scan(dest ...any) error

	// Columns returns the result column names
	Columns() ([]string, error)
}

// Row represents a single row result
type Row interface {
	// Scan copies the columns in the current row into the values pointed at by dest
	Scan(dest ...any) error
}

// Tx represents a database transaction
type Tx interface {
	Querier

	// Commit commits the transaction
	Commit(ctx context.Context) error

	// Rollback rolls back the transaction
	Rollback(ctx context.Context) error
}

// IsolationLevel is a transaction isolation level
type IsolationLevel string

const (
	IsolationDefault         IsolationLevel = ""
	IsolationReadUncommitted IsolationLevel = "ReadUncommitted"
	IsolationReadCommitted   IsolationLevel = "ReadCommitted"
	IsolationRepeatableRead  IsolationLevel = "RepeatableRead"
	IsolationSerializable    IsolationLevel = "Serializable"
)

// ParseIsolationLevel accepts "serializable", "read_committed", "ReadCommitted"...
func ParseIsolationLevel(s string) (IsolationLevel, bool) {
	normalized := strings.ToLower(strings.NewReplacer("_", "", " ", "", "-", "").Replace(s))
	switch normalized {
	case "":
		return IsolationDefault, true
	case "readuncommitted":
		return IsolationReadUncommitted, true
	case "readcommitted":
		return IsolationReadCommitted, true
	case "repeatableread":
		return IsolationRepeatableRead, true
	case "serializable":
		return IsolationSerializable, true
	}
	return IsolationDefault, false
}

// TxOptions configures Begin
type TxOptions struct {
	IsolationLevel IsolationLevel
	ReadOnly       bool
}

func (o TxOptions) sqlOptions() *sql.TxOptions {
	opts := &sql.TxOptions{ReadOnly: o.ReadOnly}
	switch o.IsolationLevel {
	case IsolationReadUncommitted:
		opts.Isolation = sql.LevelReadUncommitted
	case IsolationReadCommitted:
		opts.Isolation = sql.LevelReadCommitted
	case IsolationRepeatableRead:
		opts.Isolation = sql.LevelRepeatableRead
	case IsolationSerializable:
		opts.Isolation = sql.LevelSerializable
	}
	return opts
}
