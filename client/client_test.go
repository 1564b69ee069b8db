package client

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carlosnayan/agentdb/builder"
	"github.com/carlosnayan/agentdb/internal/config"
	"github.com/carlosnayan/agentdb/internal/dialect"
	"github.com/carlosnayan/agentdb/internal/driver"
	"github.com/carlosnayan/agentdb/internal/logger"
	"github.com/carlosnayan/agentdb/models"
)

// fakeDB answers queries from a queue of row sets and counts transactions
type fakeDB struct {
	results    [][][]any
	queries    []string
	begun      int
	committed  int
	rolledBack int
	closed     int
}

func (f *fakeDB) Exec(_ context.Context, query string, _ ...any) (driver.Result, error) {
	f.queries = append(f.queries, query)
	return fakeResult(1), nil
}

func (f *fakeDB) Query(_ context.Context, query string, _ ...any) (driver.Rows, error) {
	f.queries = append(f.queries, query)
	var data [][]any
	if len(f.results) > 0 {
		data, f.results = f.results[0], f.results[1:]
	}
	return &fakeRows{data: data, pos: -1}, nil
}

func (f *fakeDB) QueryRow(ctx context.Context, query string, args ...any) driver.Row {
	rows, _ := f.Query(ctx, query, args...)
	return fakeRow{rows}
}

func (f *fakeDB) Begin(context.Context, driver.TxOptions) (driver.Tx, error) {
	f.begun++
	return fakeTx{f}, nil
}

func (f *fakeDB) SQLDB() *sql.DB { return nil }

func (f *fakeDB) Close() error {
	f.closed++
	return nil
}

type fakeTx struct{ *fakeDB }

func (t fakeTx) Commit(context.Context) error {
	t.committed++
	return nil
}

func (t fakeTx) Rollback(context.Context) error {
	t.rolledBack++
	return nil
}

type fakeResult int64

func (r fakeResult) RowsAffected() int64          { return int64(r) }
func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }

type fakeRows struct {
	data [][]any
	pos  int
}

func (r *fakeRows) Close()                     {}
func (r *fakeRows) Err() error                 { return nil }
func (r *fakeRows) Columns() ([]string, error) { return nil, nil }

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.data)
}

// Scan fills dest from the current row; missing trailing columns are NULL
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
			if s, ok := v.(string); ok {
				*p = []byte(s)
			} else {
				*p = nil
			}
		}
	}
	return nil
}

type fakeRow struct{ rows driver.Rows }

func (r fakeRow) Scan(dest ...any) error {
	if !r.rows.Next() {
		return sql.ErrNoRows
	}
	return r.rows.Scan(dest...)
}

func newTestClient(db *fakeDB, opts ...Option) *Client {
	opts = append([]Option{WithLogger(logger.NewLogger(nil, io.Discard))}, opts...)
	return New(db, dialect.GetDialect("sqlite"), opts...)
}

func TestNewWiresDelegates(t *testing.T) {
	db := &fakeDB{}
	c := newTestClient(db, WithQueryTimeout(2*time.Second))

	assert.Equal(t, "agents", c.Agents.Table().Model().Name)
	assert.Equal(t, "agent_languages", c.AgentLanguages.Table().Model().Name)
	assert.Equal(t, "system_health_metrics", c.SystemHealthMetrics.Table().Model().Name)
	assert.Equal(t, 2*time.Second, c.Runtime().QueryTimeout())
	assert.False(t, c.Runtime().InTransaction())
}

func TestFindUniqueMapsStruct(t *testing.T) {
	db := &fakeDB{results: [][][]any{
		{{int64(7), "Ava", "ava", "Front desk"}},
		{},
	}}
	c := newTestClient(db)
	ctx := context.Background()

	agent, err := c.Agents.FindUnique(ctx, builder.UniqueOptions{Where: builder.Where{"slug": "ava"}})
	require.NoError(t, err)
	require.NotNil(t, agent)
	assert.Equal(t, 7, agent.ID)
	assert.Equal(t, "Ava", agent.Name)
	require.NotNil(t, agent.Description)
	assert.Equal(t, "Front desk", *agent.Description)
	assert.Nil(t, agent.Rating)
	assert.Equal(t, []string{}, agent.Integrations)

	missing, err := c.Agents.FindUnique(ctx, builder.UniqueOptions{Where: builder.Where{"slug": "nobody"}})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFindManyMapsStructs(t *testing.T) {
	db := &fakeDB{results: [][][]any{
		{{int64(1), int64(3), "en"}, {int64(2), int64(3), "pt"}},
	}}
	c := newTestClient(db)

	langs, err := c.AgentLanguages.FindMany(context.Background(), builder.QueryOptions{Where: builder.Where{"agent_id": 3}})
	require.NoError(t, err)
	require.Len(t, langs, 2)
	assert.Equal(t, []string{"en", "pt"}, []string{langs[0].LanguageCode, langs[1].LanguageCode})
	require.NotNil(t, langs[0].AgentID)
	assert.Equal(t, 3, *langs[0].AgentID)
	assert.IsType(t, []models.AgentLanguage{}, langs)
}

func TestLoadRelated(t *testing.T) {
	db := &fakeDB{results: [][][]any{
		{{int64(10), int64(7), nil, "pro"}},
		{{int64(7), "Ava", "ava"}},
	}}
	c := newTestClient(db)
	ctx := context.Background()

	rentals, err := LoadRelated[models.Rental](ctx, c.Agents, &models.Agent{ID: 7}, "rentals", builder.QueryOptions{Take: builder.Ptr(5)})
	require.NoError(t, err)
	require.Len(t, rentals, 1)
	assert.Equal(t, "pro", rentals[0].Plan)

	agentID := 7
	owner, err := LoadRelatedOne[models.Agent](ctx, c.Rentals, &rentals[0], "agent", builder.QueryOptions{})
	require.NoError(t, err)
	require.NotNil(t, owner)
	assert.Equal(t, "ava", owner.Slug)
	require.Len(t, db.queries, 2)

	orphan, err := LoadRelatedOne[models.Agent](ctx, c.Rentals, &models.Rental{ID: 11}, "agent", builder.QueryOptions{})
	require.NoError(t, err)
	assert.Nil(t, orphan)
	assert.Len(t, db.queries, 2)

	_, err = c.Rentals.RelatedOne(ctx, &models.Rental{ID: 12, AgentID: &agentID}, "owner", builder.QueryOptions{})
	assert.True(t, IsValidation(err))
}

func TestTransactionBindsScopedClient(t *testing.T) {
	db := &fakeDB{}
	c := newTestClient(db)

	err := c.Transaction(context.Background(), func(tx *Client) error {
		assert.True(t, tx.Runtime().InTransaction())
		assert.NotSame(t, c.Agents, tx.Agents)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, db.begun)
	assert.Equal(t, 1, db.committed)
}

func TestBatch(t *testing.T) {
	db := &fakeDB{}
	c := newTestClient(db)
	ctx := context.Background()

	results, err := c.Batch(ctx,
		func(ctx context.Context, tx *Client) (any, error) { return "first", nil },
		func(ctx context.Context, tx *Client) (any, error) { return 2, nil },
	)
	require.NoError(t, err)
	assert.Equal(t, []any{"first", 2}, results)
	assert.Equal(t, 1, db.committed)

	boom := errors.New("boom")
	_, err = c.Batch(ctx,
		func(ctx context.Context, tx *Client) (any, error) { return nil, nil },
		func(ctx context.Context, tx *Client) (any, error) { return nil, boom },
	)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "batch operation 1")
	assert.Equal(t, 1, db.rolledBack)
}

func TestRawUsesDialectPlaceholders(t *testing.T) {
	db := &fakeDB{}
	c := New(db, dialect.GetDialect("postgresql"), WithLogger(logger.NewLogger(nil, io.Discard)))

	n, err := c.ExecuteRaw(context.Background(), "UPDATE agents SET is_active = ? WHERE category = ?", false, "legacy")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, []string{"UPDATE agents SET is_active = $1 WHERE category = $2"}, db.queries)

	_, err = c.QueryRaw(context.Background(), "SELECT 1; SELECT 2")
	assert.True(t, IsValidation(err))
}

func TestCloseOnce(t *testing.T) {
	db := &fakeDB{}
	c := newTestClient(db, WithN1Detection(3, time.Second))

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, 1, db.closed)
}

func TestFromConfig(t *testing.T) {
	t.Setenv("AGENTDB_TEST_URL", "file:agents.db")
	cfg, err := config.Parse([]byte(`
log = ["warn", "error"]

[datasource]
url = 'env("AGENTDB_TEST_URL")'

[pool]
max_conns = 4
max_conn_lifetime = "10m"

[timeouts]
query = "3s"
transaction = "20s"
max_wait = "1s"

[n1]
threshold = 5
`))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.GetProvider())

	o := collect(fromConfig(cfg))
	assert.Equal(t, []string{"warn", "error"}, o.levels)
	require.NotNil(t, o.pool)
	assert.Equal(t, int32(4), o.pool.MaxConns)
	assert.Equal(t, 10*time.Minute, o.pool.MaxConnLifetime)
	assert.Equal(t, 3*time.Second, o.queryTimeout)
	assert.Equal(t, builder.TxOptions{Timeout: 20 * time.Second, MaxWait: time.Second}, o.txDefaults)
	assert.Equal(t, 5, o.n1Threshold)
	assert.Equal(t, time.Second, o.n1Window)
}
