package builder

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	db := newFake([][]any{{int64(3), "4.25"}})
	rt := newTestRuntime("postgresql", db)

	res, err := rt.MustTable("agents").Aggregate(context.Background(), AggregateOptions{
		Where: Where{"is_active": true},
		Count: []string{"_all"},
		Avg:   []string{"rating"},
	})
	require.NoError(t, err)

	assert.Equal(t, `SELECT COUNT(*), AVG("agents"."rating") FROM "agents" WHERE "agents"."is_active" = $1`, db.calls[0].sql)
	assert.Equal(t, []any{true}, db.calls[0].args)
	assert.Equal(t, int64(3), res.Count["_all"])
	assert.True(t, decimal.RequireFromString("4.25").Equal(res.Avg["rating"].(decimal.Decimal)))
	assert.Nil(t, res.Sum)
}

func TestAggregateOverWindow(t *testing.T) {
	db := newFake([][]any{{int64(2), nil}})
	rt := newTestRuntime("postgresql", db)

	res, err := rt.MustTable("agent_usage_events").Aggregate(context.Background(), AggregateOptions{
		Take:  Ptr(10),
		Count: []string{"_all"},
		Sum:   []string{"duration_seconds"},
	})
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT COUNT(*), SUM("sub"."duration_seconds") FROM (SELECT "agent_usage_events"."id", "agent_usage_events"."duration_seconds" FROM "agent_usage_events" LIMIT 10) AS "sub"`,
		db.calls[0].sql)
	assert.Equal(t, int64(2), res.Count["_all"])
	assert.Nil(t, res.Sum["duration_seconds"])
}

func TestAggregateMinMaxOnPostgres(t *testing.T) {
	db := newFake([][]any{{false, true}})
	rt := newTestRuntime("postgresql", db)

	res, err := rt.MustTable("agents").Aggregate(context.Background(), AggregateOptions{
		Min: []string{"is_active"},
		Max: []string{"is_active"},
	})
	require.NoError(t, err)
	assert.Equal(t, `SELECT BOOL_AND("agents"."is_active"), BOOL_OR("agents"."is_active") FROM "agents"`, db.calls[0].sql)
	assert.Equal(t, false, res.Min["is_active"])
	assert.Equal(t, true, res.Max["is_active"])
}

func TestAggregateValidation(t *testing.T) {
	tests := []struct {
		name string
		opts AggregateOptions
	}{
		{"no aggregates", AggregateOptions{}},
		{"average of a string", AggregateOptions{Avg: []string{"name"}}},
		{"sum of a boolean", AggregateOptions{Sum: []string{"is_active"}}},
		{"max of json", AggregateOptions{Max: []string{"personality"}}},
		{"unknown field", AggregateOptions{Count: []string{"colour"}}},
		{"negative skip", AggregateOptions{Count: []string{"_all"}, Skip: Ptr(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newFake()
			rt := newTestRuntime("postgresql", db)
			_, err := rt.MustTable("agents").Aggregate(context.Background(), tt.opts)
			assert.True(t, isValidation(err), "got %v", err)
			assert.Empty(t, db.calls)
		})
	}
}

func TestGroupBy(t *testing.T) {
	db := newFake([][]any{
		{"active", int64(4), "150.5"},
		{"paused", int64(1), nil},
	})
	rt := newTestRuntime("postgresql", db)

	groups, err := rt.MustTable("rentals").GroupBy(context.Background(), GroupByOptions{
		By:      []string{"status"},
		Count:   []string{"_all"},
		Avg:     []string{"monthly_price"},
		Having:  Having{"monthly_price": Aggregates{"_avg": Gt(100)}},
		OrderBy: []OrderBy{{Field: "status"}},
		Take:    Ptr(20),
	})
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT "rentals"."status", COUNT(*), AVG("rentals"."monthly_price") FROM "rentals" GROUP BY "rentals"."status"`+
			` HAVING AVG("rentals"."monthly_price") > $1 ORDER BY "rentals"."status" ASC LIMIT 20`,
		db.calls[0].sql)
	assert.Equal(t, []any{float64(100)}, db.calls[0].args)

	require.Len(t, groups, 2)
	assert.Equal(t, Record{"status": "active"}, groups[0].Fields)
	assert.Equal(t, int64(4), groups[0].Count["_all"])
	assert.True(t, decimal.RequireFromString("150.5").Equal(groups[0].Avg["monthly_price"].(decimal.Decimal)))
	assert.Nil(t, groups[1].Avg["monthly_price"])
}

func TestGroupByOrderByAggregateOnSQLite(t *testing.T) {
	db := newFake()
	rt := newTestRuntime("sqlite", db)

	_, err := rt.MustTable("agent_feedback").GroupBy(context.Background(), GroupByOptions{
		By:      []string{"agent_id"},
		Avg:     []string{"rating"},
		Where:   Where{"rating": Gte(1)},
		Having:  Having{"agent_id": NotEquals(nil), "rating": Aggregates{"_count": Gte(2)}},
		OrderBy: []OrderBy{{Field: "rating", Aggregate: "_avg", Order: "DESC"}},
	})
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT "agent_feedback"."agent_id", AVG("agent_feedback"."rating") FROM "agent_feedback"`+
			` WHERE "agent_feedback"."rating" >= ? GROUP BY "agent_feedback"."agent_id"`+
			` HAVING "agent_feedback"."agent_id" IS NOT NULL AND COUNT("agent_feedback"."rating") >= ?`+
			` ORDER BY AVG("agent_feedback"."rating") DESC`,
		db.calls[0].sql)
	assert.Equal(t, []any{int64(1), int64(2)}, db.calls[0].args)
}

func TestGroupByValidation(t *testing.T) {
	tests := []struct {
		name string
		opts GroupByOptions
	}{
		{"no by", GroupByOptions{Count: []string{"_all"}}},
		{"list field", GroupByOptions{By: []string{"features"}}},
		{"take without order", GroupByOptions{By: []string{"plan"}, Take: Ptr(2)}},
		{"negative take", GroupByOptions{By: []string{"plan"}, Take: Ptr(-2), OrderBy: []OrderBy{{Field: "plan"}}}},
		{"order by ungrouped field", GroupByOptions{By: []string{"plan"}, OrderBy: []OrderBy{{Field: "status"}}}},
		{"having on ungrouped field", GroupByOptions{By: []string{"plan"}, Having: Having{"status": "active"}}},
		{"bad aggregate in having", GroupByOptions{By: []string{"plan"}, Having: Having{"plan": Aggregates{"_sum": Gt(1)}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newFake()
			rt := newTestRuntime("postgresql", db)
			_, err := rt.MustTable("subscriptions").GroupBy(context.Background(), tt.opts)
			assert.True(t, isValidation(err), "got %v", err)
			assert.Empty(t, db.calls)
		})
	}
}

func TestGroupByZeroTake(t *testing.T) {
	db := newFake()
	rt := newTestRuntime("postgresql", db)
	groups, err := rt.MustTable("subscriptions").GroupBy(context.Background(), GroupByOptions{
		By:      []string{"plan"},
		OrderBy: []OrderBy{{Field: "plan"}},
		Take:    Ptr(0),
	})
	require.NoError(t, err)
	assert.Empty(t, groups)
	assert.Empty(t, db.calls)
}
