package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := Default()
	require.Len(t, r.Models(), 12)

	for _, m := range r.Models() {
		pk, ok := m.Field(m.PrimaryKey)
		require.True(t, ok, m.Name)
		assert.True(t, pk.ID, m.Name)
		assert.Equal(t, Int, pk.Kind, m.Name)
	}
}

func TestDefaultRegistry_Relations(t *testing.T) {
	r := Default()

	agents, _ := r.Model(Agents)
	rentals, ok := agents.Relation("rentals")
	require.True(t, ok)
	assert.True(t, rentals.IsList())
	assert.Equal(t, "agent_id", rentals.ForeignField)

	feedback, _ := r.Model(AgentFeedback)
	agent, ok := feedback.Relation("agent")
	require.True(t, ok)
	assert.False(t, agent.IsList())
	assert.Equal(t, AgentsCustom, agent.Target)

	fk, _ := feedback.Field("agent_id")
	assert.True(t, fk.Nullable, "foreign keys are nullable")
}

func TestModel_UniqueKeyFor(t *testing.T) {
	r := Default()

	agents, _ := r.Model(Agents)
	key, ok := agents.UniqueKeyFor([]string{"slug", "name"})
	require.True(t, ok)
	assert.Equal(t, []string{"slug"}, key)

	_, ok = agents.UniqueKeyFor([]string{"name"})
	assert.False(t, ok)

	languages, _ := r.Model(AgentLanguages)
	key, ok = languages.UniqueKeyFor([]string{"language_code", "agent_id"})
	require.True(t, ok)
	assert.Equal(t, []string{"agent_id", "language_code"}, key)

	_, ok = languages.UniqueKeyFor([]string{"language_code"})
	assert.False(t, ok)
}

func TestField_Required(t *testing.T) {
	agents, _ := Default().Model(Agents)

	assert.True(t, agents.MustField("name").Required())
	assert.True(t, agents.MustField("slug").Required())
	assert.False(t, agents.MustField("id").Required())
	assert.False(t, agents.MustField("is_active").Required())
	assert.False(t, agents.MustField("integrations").Required())
	assert.False(t, agents.MustField("updated_at").Required())
	assert.False(t, agents.MustField("description").Required())
}

func TestRegistry_CreationOrder(t *testing.T) {
	child := &Model{
		Name:       "child",
		PrimaryKey: "id",
		Fields:     []Field{id(), optional("agent_id", Int)},
		Relations:  []Relation{belongsTo("parent")},
	}
	parent := &Model{
		Name:       "parent",
		PrimaryKey: "id",
		Fields:     []Field{id()},
		Relations:  []Relation{hasMany("child")},
	}

	r, err := NewRegistry(child, parent)
	require.NoError(t, err)

	var names []string
	for _, m := range r.CreationOrder() {
		names = append(names, m.Name)
	}
	if diff := cmp.Diff([]string{"parent", "child"}, names); diff != "" {
		t.Errorf("CreationOrder mismatch (-want +got):\n%s", diff)
	}
}

func TestNewRegistry_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		models []*Model
	}{
		{
			name: "required foreign key",
			models: []*Model{
				{Name: "p", PrimaryKey: "id", Fields: []Field{id()}},
				{Name: "c", PrimaryKey: "id", Fields: []Field{id(), required("agent_id", Int)}, Relations: []Relation{belongsTo("p")}},
			},
		},
		{
			name:   "unknown target",
			models: []*Model{{Name: "c", PrimaryKey: "id", Fields: []Field{id(), optional("agent_id", Int)}, Relations: []Relation{belongsTo("missing")}}},
		},
		{
			name:   "missing primary key",
			models: []*Model{{Name: "c", PrimaryKey: "uid", Fields: []Field{id()}}},
		},
		{
			name:   "bad unique set",
			models: []*Model{{Name: "c", PrimaryKey: "id", Fields: []Field{id()}, UniqueSets: [][]string{{"nope"}}}},
		},
		{
			name:   "duplicate field",
			models: []*Model{{Name: "c", PrimaryKey: "id", Fields: []Field{id(), id()}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.models...)
			assert.Error(t, err)
		})
	}
}

func TestKind(t *testing.T) {
	assert.True(t, Decimal.IsNumeric())
	assert.False(t, String.IsNumeric())
	assert.False(t, JSON.IsComparable())
	assert.True(t, DateTime.IsComparable())
}
