package builder

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncludeAndCount(t *testing.T) {
	db := newFake(
		[][]any{{int64(1), "Atlas"}, {int64(2), "Nova"}},
		[][]any{{int64(10), int64(1), "pro"}, {int64(11), int64(1), "basic"}},
		[][]any{{int64(1), int64(3)}},
	)
	rt := newTestRuntime("postgresql", db)

	recs, err := rt.MustTable("agents").FindMany(context.Background(), QueryOptions{
		Select: []string{"name"},
		Include: Include{"rentals": {
			Where:  Where{"status": "active"},
			Select: []string{"plan"},
		}},
		Count: []string{"voice_samples"},
	})
	require.NoError(t, err)

	want := []Record{
		{
			"name":    "Atlas",
			"rentals": []Record{{"plan": "pro"}, {"plan": "basic"}},
			"_count":  map[string]int64{"voice_samples": 3},
		},
		{
			"name":    "Nova",
			"rentals": []Record{},
			"_count":  map[string]int64{"voice_samples": 0},
		},
	}
	if diff := cmp.Diff(want, recs); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	stmts := db.statements()
	require.Len(t, stmts, 3, "one query per relation whatever the number of parents")
	assert.Equal(t, `SELECT "agents"."id", "agents"."name" FROM "agents"`, stmts[0])
	assert.Equal(t,
		`SELECT "rentals"."id", "rentals"."agent_id", "rentals"."plan" FROM "rentals" WHERE (("rentals"."status" = $1) AND ("rentals"."agent_id" IN ($2, $3)))`,
		stmts[1])
	assert.Equal(t,
		`SELECT "voice_samples"."agent_id", COUNT(*) FROM "voice_samples" WHERE "voice_samples"."agent_id" IN ($1, $2) GROUP BY "voice_samples"."agent_id"`,
		stmts[2])
}

func TestIncludeSingleRelation(t *testing.T) {
	db := newFake(
		[][]any{{int64(5), int64(1)}, {int64(6), nil}},
		[][]any{{int64(1), "Atlas"}},
	)
	rt := newTestRuntime("sqlite", db)

	recs, err := rt.MustTable("rentals").FindMany(context.Background(), QueryOptions{
		Select:  []string{"agent_id"},
		Include: Include{"agent": {Select: []string{"name"}}},
	})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, Record{"name": "Atlas"}, recs[0]["agent"])
	assert.Nil(t, recs[1]["agent"])
	assert.Equal(t, `SELECT "agents"."id", "agents"."name" FROM "agents" WHERE "agents"."id" IN (?)`, db.statements()[1])
}

func TestIncludeSkipsQueryWithoutParents(t *testing.T) {
	db := newFake()
	rt := newTestRuntime("postgresql", db)

	recs, err := rt.MustTable("agents_custom").FindMany(context.Background(), QueryOptions{
		Include: Include{"agent_languages": nil},
		Count:   []string{"agent_feedback"},
	})
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Len(t, db.calls, 1)
}

func TestIncludeValidation(t *testing.T) {
	tests := []struct {
		name  string
		table string
		opts  QueryOptions
	}{
		{"unknown relation", "agents", QueryOptions{Include: Include{"owner": nil}}},
		{"count of a single relation", "rentals", QueryOptions{Count: []string{"agent"}}},
		{"filter on a single relation", "rentals", QueryOptions{Include: Include{"agent": {Where: Where{"name": "x"}}}}},
		{"cursor in include", "agents", QueryOptions{Include: Include{"rentals": {Cursor: Where{"id": 1}}}}},
		{"unknown field in nested select", "agents", QueryOptions{Include: Include{"rentals": {Select: []string{"colour"}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newFake([][]any{{int64(1)}})
			rt := newTestRuntime("postgresql", db)
			_, err := rt.MustTable(tt.table).FindMany(context.Background(), tt.opts)
			assert.True(t, isValidation(err), "got %v", err)
		})
	}
}

func TestRelatedLoadsOneParent(t *testing.T) {
	db := newFake([][]any{{int64(10), "basic"}, {int64(11), "pro"}})
	rt := newTestRuntime("postgresql", db)

	recs, err := rt.MustTable("agents").Related(context.Background(), Record{"id": int64(1), "name": "Atlas"}, "rentals", QueryOptions{
		Where:   Where{"status": "active"},
		OrderBy: []OrderBy{{Field: "plan", Order: "ASC"}},
		Select:  []string{"plan"},
		Take:    Ptr(2),
	})
	require.NoError(t, err)
	assert.Equal(t, []Record{{"plan": "basic"}, {"plan": "pro"}}, recs)

	require.Len(t, db.calls, 1)
	assert.Contains(t, db.calls[0].sql,
		`SELECT "rentals"."id", "rentals"."plan" FROM "rentals" WHERE (("rentals"."status" = $1) AND ("rentals"."agent_id" = $2))`)
	assert.Contains(t, db.calls[0].sql, `LIMIT 2`)
}

func TestRelatedOne(t *testing.T) {
	db := newFake([][]any{{int64(1), "Atlas"}})
	rt := newTestRuntime("sqlite", db)
	rentals := rt.MustTable("rentals")

	owner, err := rentals.RelatedOne(context.Background(), Record{"id": int64(5), "agent_id": int64(1)}, "agent", QueryOptions{Select: []string{"name"}})
	require.NoError(t, err)
	assert.Equal(t, Record{"name": "Atlas"}, owner)
	assert.Equal(t, `SELECT "agents"."id", "agents"."name" FROM "agents" WHERE "agents"."id" = ? LIMIT 1`, db.statements()[0])

	orphan, err := rentals.RelatedOne(context.Background(), Record{"id": int64(6), "agent_id": nil}, "agent", QueryOptions{})
	require.NoError(t, err)
	assert.Nil(t, orphan)
	assert.Len(t, db.calls, 1, "a null foreign key needs no query")
}

func TestRelatedValidation(t *testing.T) {
	ctx := context.Background()
	db := newFake()
	rt := newTestRuntime("postgresql", db)
	agents := rt.MustTable("agents")
	rentals := rt.MustTable("rentals")

	_, err := agents.Related(ctx, Record{"id": int64(1)}, "owner", QueryOptions{})
	assert.True(t, isValidation(err), "unknown relation: %v", err)

	_, err = agents.Related(ctx, Record{"name": "Atlas"}, "rentals", QueryOptions{})
	assert.True(t, isValidation(err), "missing join key: %v", err)

	_, err = rentals.Related(ctx, Record{"agent_id": int64(1)}, "agent", QueryOptions{})
	assert.True(t, isValidation(err), "single relation through Related: %v", err)

	_, err = agents.RelatedOne(ctx, Record{"id": int64(1)}, "rentals", QueryOptions{})
	assert.True(t, isValidation(err), "list relation through RelatedOne: %v", err)

	_, err = rentals.RelatedOne(ctx, Record{"agent_id": int64(1)}, "agent", QueryOptions{Where: Where{"name": "x"}})
	assert.True(t, isValidation(err), "filter on a single relation: %v", err)

	assert.Empty(t, db.calls)
}
