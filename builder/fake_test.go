package builder

import (
	"context"
	"database/sql"
	"sync"

	"github.com/carlosnayan/agentdb/internal/dialect"
	"github.com/carlosnayan/agentdb/internal/driver"
	"github.com/carlosnayan/agentdb/schema"
)

// recorded is one statement seen by fakeDB
type recorded struct {
	sql  string
	args []any
}

// fakeDB records statements and answers queries from a queue of row sets
type fakeDB struct {
	mu       sync.Mutex
	calls    []recorded
	results  [][][]any
	affected int64
	lastID   int64
	execErr  error
	queryErr error

	begun      int
	committed  int
	rolledBack int
}

func newFake(results ...[][]any) *fakeDB {
	return &fakeDB{results: results, affected: 1}
}

func newTestRuntime(provider string, db *fakeDB) *Runtime {
	return NewRuntime(db, dialect.GetDialect(provider), schema.Default()).SetStmtCache(nil)
}

func (f *fakeDB) record(query string, args []any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recorded{sql: query, args: args})
}

func (f *fakeDB) statements() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.sql
	}
	return out
}

func (f *fakeDB) Exec(_ context.Context, query string, args ...any) (driver.Result, error) {
	f.record(query, args)
	if f.execErr != nil {
		return nil, f.execErr
	}
	return fakeResult{affected: f.affected, lastID: f.lastID}, nil
}

func (f *fakeDB) Query(_ context.Context, query string, args ...any) (driver.Rows, error) {
	f.record(query, args)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var data [][]any
	if len(f.results) > 0 {
		data, f.results = f.results[0], f.results[1:]
	}
	return &fakeRows{data: data, pos: -1}, nil
}

func (f *fakeDB) QueryRow(ctx context.Context, query string, args ...any) driver.Row {
	rows, err := f.Query(ctx, query, args...)
	return fakeRow{rows: rows, err: err}
}

func (f *fakeDB) Begin(context.Context, driver.TxOptions) (driver.Tx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.begun++
	return &fakeTx{db: f}, nil
}

func (f *fakeDB) SQLDB() *sql.DB { return nil }

func (f *fakeDB) Close() error { return nil }

type fakeTx struct {
	db *fakeDB
}

func (t *fakeTx) Exec(ctx context.Context, query string, args ...any) (driver.Result, error) {
	return t.db.Exec(ctx, query, args...)
}

func (t *fakeTx) Query(ctx context.Context, query string, args ...any) (driver.Rows, error) {
	return t.db.Query(ctx, query, args...)
}

func (t *fakeTx) QueryRow(ctx context.Context, query string, args ...any) driver.Row {
	return t.db.QueryRow(ctx, query, args...)
}

func (t *fakeTx) Commit(context.Context) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	t.db.committed++
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	t.db.rolledBack++
	return nil
}

type fakeResult struct {
	affected int64
	lastID   int64
}

func (r fakeResult) RowsAffected() int64 { return r.affected }

func (r fakeResult) LastInsertId() (int64, error) { return r.lastID, nil }

type fakeRows struct {
	data [][]any
	pos  int
}

func (r *fakeRows) Close() {}

func (r *fakeRows) Err() error { return nil }

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.data)
}

// Scan fills dest from the current row; missing trailing columns scan as NULL
func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.pos]
	for i, d := range dest {
		var v any
		if i < len(row) {
			v = row[i]
		}
		switch p := d.(type) {
		case *any:
			*p = v
		case *[]byte:
			switch s := v.(type) {
			case nil:
				*p = nil
			case string:
				*p = []byte(s)
			case []byte:
				*p = s
			}
		}
	}
	return nil
}

func (r *fakeRows) Columns() ([]string, error) { return nil, nil }

type fakeRow struct {
	rows driver.Rows
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if !r.rows.Next() {
		return sql.ErrNoRows
	}
	return r.rows.Scan(dest...)
}
