package builder

import (
	"context"
	"testing"

	errs "github.com/carlosnayan/agentdb/internal/errors"
	"github.com/carlosnayan/agentdb/types"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isValidation(err error) bool {
	return errs.IsValidation(err)
}

func isNotFound(err error) bool {
	return errs.IsNotFound(err)
}

func TestFindManySQL(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		opts     QueryOptions
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "equality with selection",
			provider: "postgresql",
			opts:     QueryOptions{Where: Where{"name": "Ava"}, Select: []string{"name"}},
			wantSQL:  `SELECT "agents"."id", "agents"."name" FROM "agents" WHERE "agents"."name" = $1`,
			wantArgs: []any{"Ava"},
		},
		{
			name:     "or with insensitive contains and window",
			provider: "postgresql",
			opts: QueryOptions{
				Where:   Where{OR: []Where{{"name": ContainsInsensitive("a_a")}, {"category": "sales"}}},
				OrderBy: []OrderBy{{Field: "rating", Order: "desc"}},
				Skip:    Ptr(1),
				Take:    Ptr(2),
				Select:  []string{"id"},
			},
			wantSQL: `SELECT "agents"."id" FROM "agents" WHERE (("agents"."name" ILIKE $1 ESCAPE '!') OR ("agents"."category" = $2))` +
				` ORDER BY "agents"."rating" DESC, "agents"."id" ASC LIMIT 2 OFFSET 1`,
			wantArgs: []any{"%a!_a%", "sales"},
		},
		{
			name:     "relation some",
			provider: "postgresql",
			opts:     QueryOptions{Where: Where{"rentals": Some(Where{"status": "active"})}, Select: []string{"id"}},
			wantSQL: `SELECT "agents"."id" FROM "agents" WHERE EXISTS (SELECT 1 FROM "rentals" AS "r1"` +
				` WHERE "r1"."agent_id" = "agents"."id" AND ("r1"."status" = $1))`,
			wantArgs: []any{"active"},
		},
		{
			name:     "relation none without condition",
			provider: "postgresql",
			opts:     QueryOptions{Where: Where{"voice_samples": None(Where{})}, Select: []string{"id"}},
			wantSQL:  `SELECT "agents"."id" FROM "agents" WHERE NOT EXISTS (SELECT 1 FROM "voice_samples" AS "r1" WHERE "r1"."agent_id" = "agents"."id")`,
		},
		{
			name:     "empty in matches nothing",
			provider: "postgresql",
			opts:     QueryOptions{Where: Where{"id": In()}, Select: []string{"id"}},
			wantSQL:  `SELECT "agents"."id" FROM "agents" WHERE 1=0`,
		},
		{
			name:     "in expands a slice",
			provider: "mysql",
			opts:     QueryOptions{Where: Where{"id": In([]int{1, 2})}, Select: []string{"id"}},
			wantSQL:  "SELECT `agents`.`id` FROM `agents` WHERE `agents`.`id` IN (?, ?)",
			wantArgs: []any{int64(1), int64(2)},
		},
		{
			name:     "null and not",
			provider: "sqlite",
			opts:     QueryOptions{Where: Where{"category": nil, NOT: Where{"name": "x"}}, Select: []string{"id"}},
			wantSQL:  `SELECT "agents"."id" FROM "agents" WHERE NOT ("agents"."name" = ?) AND "agents"."category" IS NULL`,
			wantArgs: []any{"x"},
		},
		{
			name:     "empty or matches nothing",
			provider: "postgresql",
			opts:     QueryOptions{Where: Where{OR: []Where{}}, Select: []string{"id"}},
			wantSQL:  `SELECT "agents"."id" FROM "agents" WHERE 1=0`,
		},
		{
			name:     "negative take reverses the order",
			provider: "postgresql",
			opts:     QueryOptions{Take: Ptr(-3), Select: []string{"id"}},
			wantSQL:  `SELECT "agents"."id" FROM "agents" ORDER BY "agents"."id" DESC LIMIT 3`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newFake()
			rt := newTestRuntime(tt.provider, db)

			_, err := rt.MustTable("agents").FindMany(context.Background(), tt.opts)
			require.NoError(t, err)
			require.Len(t, db.calls, 1)
			assert.Equal(t, tt.wantSQL, db.calls[0].sql)
			if diff := cmp.Diff(tt.wantArgs, db.calls[0].args); diff != "" {
				t.Errorf("args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFindManyRejectsInvalidFilters(t *testing.T) {
	tests := []struct {
		name string
		opts QueryOptions
	}{
		{"unknown field", QueryOptions{Where: Where{"nope": 1}}},
		{"relation filter on scalar", QueryOptions{Where: Where{"name": Some(Where{})}}},
		{"unknown include", QueryOptions{Include: Include{"nope": nil}}},
		{"pattern on non string", QueryOptions{Where: Where{"id": Contains("1")}}},
		{"negative skip", QueryOptions{Skip: Ptr(-1)}},
		{"order by json", QueryOptions{OrderBy: []OrderBy{{Field: "personality"}}}},
		{"bad direction", QueryOptions{OrderBy: []OrderBy{{Field: "name", Order: "sideways"}}}},
		{"count on unknown relation", QueryOptions{Count: []string{"agent"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newFake()
			rt := newTestRuntime("postgresql", db)
			_, err := rt.MustTable("agents").FindMany(context.Background(), tt.opts)
			require.Error(t, err)
			assert.True(t, isValidation(err), "expected a validation error, got %v", err)
			assert.Empty(t, db.calls)
		})
	}
}

func TestCursorPagination(t *testing.T) {
	db := newFake()
	rt := newTestRuntime("postgresql", db)

	_, err := rt.MustTable("agents").FindMany(context.Background(), QueryOptions{
		Cursor: Where{"id": 5},
		Take:   Ptr(2),
		Select: []string{"id"},
	})
	require.NoError(t, err)
	require.Len(t, db.calls, 1)
	assert.Contains(t, db.calls[0].sql, `"agents"."id" > (SELECT "r1"."id" FROM "agents" AS "r1" WHERE "r1"."id" = $1)`)
	assert.Contains(t, db.calls[0].sql, `"agents"."id" = (SELECT "r2"."id" FROM "agents" AS "r2" WHERE "r2"."id" = $2)`)
	assert.Contains(t, db.calls[0].sql, `ORDER BY "agents"."id" ASC LIMIT 2`)
}

func TestFindUniqueNeedsUniqueFilter(t *testing.T) {
	rt := newTestRuntime("postgresql", newFake())
	ctx := context.Background()

	_, err := rt.MustTable("agents").FindUnique(ctx, UniqueOptions{Where: Where{"name": "Ava"}})
	assert.True(t, isValidation(err))

	_, err = rt.MustTable("agent_languages").FindUnique(ctx, UniqueOptions{
		Where: Where{"agent_id_language_code": Where{"agent_id": 1}},
	})
	assert.True(t, isValidation(err))

	db := newFake()
	rt = newTestRuntime("postgresql", db)
	rec, err := rt.MustTable("agent_languages").FindUnique(ctx, UniqueOptions{
		Where:  Where{"agent_id_language_code": Where{"agent_id": 1, "language_code": "en"}},
		Select: []string{"id"},
	})
	require.NoError(t, err)
	assert.Nil(t, rec)
	require.Len(t, db.calls, 1)
	assert.Equal(t,
		`SELECT "agent_languages"."id" FROM "agent_languages" WHERE "agent_languages"."agent_id" = $1 AND "agent_languages"."language_code" = $2 LIMIT 1`,
		db.calls[0].sql)
}

func TestFindFirstOrThrowReturnsNotFound(t *testing.T) {
	rt := newTestRuntime("sqlite", newFake())
	_, err := rt.MustTable("rentals").FindFirstOrThrow(context.Background(), QueryOptions{})
	require.Error(t, err)
	assert.True(t, isNotFound(err))
}

func TestCountSQL(t *testing.T) {
	tests := []struct {
		name    string
		opts    CountOptions
		wantSQL string
	}{
		{
			name:    "plain",
			opts:    CountOptions{Where: Where{"status": "active"}},
			wantSQL: `SELECT COUNT(*) FROM "rentals" WHERE "rentals"."status" = $1`,
		},
		{
			name:    "windowed",
			opts:    CountOptions{Take: Ptr(10)},
			wantSQL: `SELECT COUNT(*) FROM (SELECT "rentals"."id" FROM "rentals" LIMIT 10) AS "sub"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newFake([][]any{{int64(4)}})
			rt := newTestRuntime("postgresql", db)
			n, err := rt.MustTable("rentals").Count(context.Background(), tt.opts)
			require.NoError(t, err)
			assert.Equal(t, int64(4), n)
			assert.Equal(t, tt.wantSQL, db.calls[0].sql)
		})
	}
}

func TestJSONFilterSQL(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		filter   any
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "path equality on postgresql",
			provider: "postgresql",
			filter:   JSONFilter{Path: []string{"tone"}, Equals: "calm"},
			wantSQL:  `SELECT "agents"."id" FROM "agents" WHERE ("agents"."personality" #> CAST($1 AS TEXT[])) = CAST($2 AS JSONB)`,
			wantArgs: []any{[]string{"tone"}, `"calm"`},
		},
		{
			name:     "string contains on sqlite",
			provider: "sqlite",
			filter:   JSONFilter{Path: []string{"tone"}, StringContains: "cal"},
			wantSQL:  `SELECT "agents"."id" FROM "agents" WHERE json_extract("agents"."personality", '$."tone"') LIKE ? ESCAPE '!'`,
			wantArgs: []any{"%cal%"},
		},
		{
			name:     "json null on sqlite",
			provider: "sqlite",
			filter:   types.JsonNull,
			wantSQL:  `SELECT "agents"."id" FROM "agents" WHERE json_type(("agents"."personality" -> '$')) = 'null'`,
		},
		{
			name:     "database null",
			provider: "postgresql",
			filter:   types.DbNull,
			wantSQL:  `SELECT "agents"."id" FROM "agents" WHERE "agents"."personality" IS NULL`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newFake()
			rt := newTestRuntime(tt.provider, db)
			_, err := rt.MustTable("agents").FindMany(context.Background(), QueryOptions{
				Where:  Where{"personality": tt.filter},
				Select: []string{"id"},
			})
			require.NoError(t, err)
			require.Len(t, db.calls, 1)
			assert.Equal(t, tt.wantSQL, db.calls[0].sql)
			if diff := cmp.Diff(tt.wantArgs, db.calls[0].args); diff != "" {
				t.Errorf("args mismatch (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("unsafe path key", func(t *testing.T) {
		rt := newTestRuntime("mysql", newFake())
		_, err := rt.MustTable("agents").FindMany(context.Background(), QueryOptions{
			Where: Where{"personality": JSONFilter{Path: []string{"a'b"}, Equals: 1}},
		})
		assert.True(t, isValidation(err))
	})

	t.Run("json filter on scalar", func(t *testing.T) {
		rt := newTestRuntime("mysql", newFake())
		_, err := rt.MustTable("agents").FindMany(context.Background(), QueryOptions{
			Where: Where{"name": JSONFilter{Equals: 1}},
		})
		assert.True(t, isValidation(err))
	})
}

func TestNormalizeTSQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"voice", "voice:*"},
		{"voice  receptionist", "voice:* & receptionist:*"},
		{"a|b !c", "ab:* & c:*"},
		{"()", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeTSQuery(tt.in), tt.in)
	}
}
