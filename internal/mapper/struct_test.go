package mapper

import (
	"testing"

	"github.com/carlosnayan/agentdb/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	ID      int              `db:"id"`
	AgentID *int             `db:"agent_id"`
	Plan    string           `db:"plan"`
	Price   *decimal.Decimal `db:"monthly_price"`
	Notes   types.JSON       `db:"notes"`
	Owner   *owner           `db:"agent"`
	Count   map[string]int64 `db:"_count"`
}

type owner struct {
	ID       int      `db:"id"`
	Name     string   `db:"name"`
	Tags     []string `db:"integrations"`
	Children []sample `db:"rentals"`
}

func TestToStruct(t *testing.T) {
	price := decimal.RequireFromString("49.90")
	rec := map[string]any{
		"id":            int64(3),
		"agent_id":      int64(9),
		"plan":          "pro",
		"monthly_price": price,
		"notes":         types.JSON(`{"a":1}`),
		"agent": map[string]any{
			"id":           int64(9),
			"name":         "Atlas",
			"integrations": []string{"slack"},
			"rentals": []map[string]any{
				{"id": int64(3), "plan": "pro"},
				{"id": int64(4), "plan": "basic"},
			},
		},
		"_count":  map[string]int64{"rentals": 2},
		"unknown": "ignored",
	}

	var got sample
	require.NoError(t, ToStruct(rec, &got))

	assert.Equal(t, 3, got.ID)
	require.NotNil(t, got.AgentID)
	assert.Equal(t, 9, *got.AgentID)
	assert.Equal(t, "pro", got.Plan)
	require.NotNil(t, got.Price)
	assert.True(t, price.Equal(*got.Price))
	assert.Equal(t, types.JSON(`{"a":1}`), got.Notes)
	require.NotNil(t, got.Owner)
	assert.Equal(t, "Atlas", got.Owner.Name)
	assert.Equal(t, []string{"slack"}, got.Owner.Tags)
	require.Len(t, got.Owner.Children, 2)
	assert.Equal(t, "basic", got.Owner.Children[1].Plan)
	assert.Equal(t, int64(2), got.Count["rentals"])
}

func TestToStruct_Nulls(t *testing.T) {
	got := sample{AgentID: new(int), Owner: &owner{}}
	require.NoError(t, ToStruct(map[string]any{"agent_id": nil, "agent": nil, "notes": nil}, &got))

	assert.Nil(t, got.AgentID)
	assert.Nil(t, got.Owner)
	assert.True(t, got.Notes.IsDBNull())
}

func TestToStruct_Errors(t *testing.T) {
	var s sample
	assert.Error(t, ToStruct(map[string]any{}, s))
	assert.Error(t, ToStruct(map[string]any{"plan": 12}, &s))
}

func TestToStructs(t *testing.T) {
	got, err := ToStructs[sample]([]map[string]any{{"id": int64(1)}, {"id": int64(2)}})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[1].ID)
}
