package raw

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carlosnayan/agentdb/internal/dialect"
	dbdriver "github.com/carlosnayan/agentdb/internal/driver"
	errs "github.com/carlosnayan/agentdb/internal/errors"
	"github.com/carlosnayan/agentdb/internal/limits"
)

type call struct {
	sql  string
	args []any
}

type fakeQuerier struct {
	calls    []call
	cols     []string
	rows     [][]any
	affected int64
	err      error
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (dbdriver.Result, error) {
	f.calls = append(f.calls, call{sql, args})
	if f.err != nil {
		return nil, f.err
	}
	return fakeResult(f.affected), nil
}

func (f *fakeQuerier) Query(_ context.Context, sql string, args ...any) (dbdriver.Rows, error) {
	f.calls = append(f.calls, call{sql, args})
	if f.err != nil {
		return nil, f.err
	}
	return &fakeRows{cols: f.cols, rows: f.rows, pos: -1}, nil
}

func (f *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) dbdriver.Row {
	f.calls = append(f.calls, call{sql, args})
	return nil
}

type fakeResult int64

func (r fakeResult) RowsAffected() int64          { return int64(r) }
func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }

type fakeRows struct {
	cols []string
	rows [][]any
	pos  int
}

func (r *fakeRows) Close()                     {}
func (r *fakeRows) Err() error                 { return nil }
func (r *fakeRows) Columns() ([]string, error) { return r.cols, nil }

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	for i, v := range r.rows[r.pos] {
		*(dest[i].(*any)) = v
	}
	return nil
}

type numeric string

func (n numeric) Value() (driver.Value, error) { return string(n), nil }

func TestRewrite(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		query    string
		want     string
		n        int
	}{
		{
			name:     "postgres numbering",
			provider: "postgresql",
			query:    "SELECT * FROM agents WHERE slug = ? AND is_active = ?",
			want:     "SELECT * FROM agents WHERE slug = $1 AND is_active = $2",
			n:        2,
		},
		{
			name:     "mysql keeps question marks",
			provider: "mysql",
			query:    "DELETE FROM rentals WHERE id = ?",
			want:     "DELETE FROM rentals WHERE id = ?",
			n:        1,
		},
		{
			name:     "literals and comments untouched",
			provider: "postgresql",
			query:    "SELECT '?', \"a?b\" FROM agents -- why?\nWHERE name = ? /* or? */",
			want:     "SELECT '?', \"a?b\" FROM agents -- why?\nWHERE name = $1 /* or? */",
			n:        1,
		},
		{
			name:     "escaped quote inside literal",
			provider: "postgresql",
			query:    "SELECT 'it''s ?' WHERE id = ?",
			want:     "SELECT 'it''s ?' WHERE id = $1",
			n:        1,
		},
		{
			name:     "postgres backslash is a plain character",
			provider: "postgresql",
			query:    `SELECT 'C:\' AS dir FROM agents WHERE id = ?`,
			want:     `SELECT 'C:\' AS dir FROM agents WHERE id = $1`,
			n:        1,
		},
		{
			name:     "postgres escape string literal",
			provider: "postgresql",
			query:    `SELECT E'it\'s ?' WHERE id = ?`,
			want:     `SELECT E'it\'s ?' WHERE id = $1`,
			n:        1,
		},
		{
			name:     "sqlite backslash is a plain character",
			provider: "sqlite",
			query:    `UPDATE agents SET category = '\' WHERE id = ?`,
			want:     `UPDATE agents SET category = '\' WHERE id = ?`,
			n:        1,
		},
		{
			name:     "mysql backslash escapes the quote",
			provider: "mysql",
			query:    `SELECT 'it\'s ?' WHERE id = ?`,
			want:     `SELECT 'it\'s ?' WHERE id = ?`,
			n:        1,
		},
		{
			name:     "doubled question mark",
			provider: "postgresql",
			query:    "SELECT personality ?? 'tone' FROM agents WHERE id = ?",
			want:     "SELECT personality ? 'tone' FROM agents WHERE id = $1",
			n:        1,
		},
		{
			name:     "trailing semicolon",
			provider: "sqlite",
			query:    "SELECT 1;  \n",
			want:     "SELECT 1",
			n:        0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, n, err := Rewrite(dialect.GetDialect(tt.provider), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.n, n)
		})
	}
}

func TestRewriteRejectsMultipleStatements(t *testing.T) {
	d := dialect.GetDialect("postgresql")
	for _, q := range []string{
		"SELECT 1; SELECT 2",
		"UPDATE agents SET name = ?; DROP TABLE agents",
	} {
		_, _, err := Rewrite(d, q)
		assert.ErrorIs(t, err, ErrMultipleStatements, q)
	}

	_, _, err := Rewrite(d, "INSERT INTO notes VALUES ('a;b')")
	assert.NoError(t, err)
}

func TestExecuteRaw(t *testing.T) {
	q := &fakeQuerier{affected: 3}
	exec := New(q, dialect.GetDialect("postgresql"))

	n, err := exec.ExecuteRaw(context.Background(), "UPDATE rentals SET status = ? WHERE plan = ?", "expired", "basic")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.Len(t, q.calls, 1)
	assert.Equal(t, "UPDATE rentals SET status = $1 WHERE plan = $2", q.calls[0].sql)
	assert.Equal(t, []any{"expired", "basic"}, q.calls[0].args)
}

func TestExecuteRawValidation(t *testing.T) {
	q := &fakeQuerier{}
	exec := New(q, dialect.GetDialect("sqlite"))
	ctx := context.Background()

	_, err := exec.ExecuteRaw(ctx, "DELETE FROM agents WHERE id = ?")
	assert.True(t, errs.IsValidation(err), "placeholder count")

	_, err = exec.ExecuteRaw(ctx, "DELETE FROM agents; DELETE FROM rentals")
	assert.True(t, errs.IsValidation(err), "multiple statements")

	_, err = exec.ExecuteRawUnsafe(ctx, strings.Repeat(" ", limits.MaxRawQuerySize+1))
	assert.True(t, errs.IsValidation(err), "size")

	assert.Empty(t, q.calls)
}

func TestExecuteRawUnsafePassesThrough(t *testing.T) {
	q := &fakeQuerier{affected: 1}
	exec := New(q, dialect.GetDialect("postgresql"))

	script := "UPDATE agents SET rating = $1 WHERE id = $2; SELECT 1"
	_, err := exec.ExecuteRawUnsafe(context.Background(), script, "4.5", 1)
	require.NoError(t, err)
	assert.Equal(t, script, q.calls[0].sql)
}

func TestQueryRaw(t *testing.T) {
	q := &fakeQuerier{
		cols: []string{"category", "n", "avg_rating"},
		rows: [][]any{
			{[]byte("sales"), int64(4), numeric("4.25")},
			{nil, int64(1), nil},
		},
	}
	exec := New(q, dialect.GetDialect("mysql"))

	rows, err := exec.QueryRaw(context.Background(), "SELECT category, COUNT(*) AS n, AVG(rating) AS avg_rating FROM agents WHERE is_active = ? GROUP BY category", true)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{
		{"category": "sales", "n": int64(4), "avg_rating": "4.25"},
		{"category": nil, "n": int64(1), "avg_rating": nil},
	}, rows)
}

func TestQueryRawEmpty(t *testing.T) {
	exec := New(&fakeQuerier{cols: []string{"id"}}, dialect.GetDialect("sqlite"))
	rows, err := exec.QueryRawUnsafe(context.Background(), "SELECT id FROM agents")
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestQueryRawMapsDriverErrors(t *testing.T) {
	exec := New(&fakeQuerier{err: errors.New("syntax error near FROM")}, dialect.GetDialect("sqlite"))
	_, err := exec.QueryRaw(context.Background(), "SELECT FROM")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrRawQueryFailed)
}
