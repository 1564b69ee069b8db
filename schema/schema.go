// Package schema describes the tables the client can query: their scalar
// fields, keys and relations. The registry is static and validated once.
package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Kind is the logical type of a scalar field
type Kind string

const (
	Int        Kind = "Int"
	BigInt     Kind = "BigInt"
	Float      Kind = "Float"
	Decimal    Kind = "Decimal"
	String     Kind = "String"
	Boolean    Kind = "Boolean"
	DateTime   Kind = "DateTime"
	JSON       Kind = "Json"
	UUID       Kind = "Uuid"
	StringList Kind = "String[]"
)

// IsNumeric reports whether _avg and _sum apply to the kind
func (k Kind) IsNumeric() bool {
	switch k {
	case Int, BigInt, Float, Decimal:
		return true
	}
	return false
}

// IsComparable reports whether _min, _max and range filters apply
func (k Kind) IsComparable() bool {
	switch k {
	case JSON, StringList:
		return false
	}
	return true
}

// Symbolic defaults understood by the DDL generator
const (
	DefaultNow       = "now()"
	DefaultEmptyList = "[]"
)

// Field is a scalar column
type Field struct {
	Name          string
	Kind          Kind
	Nullable      bool
	ID            bool
	AutoIncrement bool
	Unique        bool
	// Default is a DDL default: DefaultNow, DefaultEmptyList, a bool, an int
	// or a string literal. Fields with a default may be omitted on create.
	Default any
	// UpdatedAt fields are stamped on every create and update
	UpdatedAt bool
	// DBType overrides the mapped column type (for example "TEXT" on MySQL)
	DBType string
}

// HasDefault reports whether the database fills the field when omitted
func (f Field) HasDefault() bool {
	return f.Default != nil || f.AutoIncrement
}

// Required reports whether create must provide a value
func (f Field) Required() bool {
	return !f.Nullable && !f.HasDefault() && !f.UpdatedAt
}

// RelationKind tells the cardinality of a relation
type RelationKind int

const (
	// OneToMany is a list relation: the foreign key lives on the target
	OneToMany RelationKind = iota
	// ManyToOne is a single relation: the foreign key lives on this model
	ManyToOne
)

// Relation links two models through a foreign key. LocalField is the field on
// the owning model, ForeignField the matching field on Target.
type Relation struct {
	Name         string
	Kind         RelationKind
	Target       string
	LocalField   string
	ForeignField string
}

// IsList reports whether the relation returns a list
func (r Relation) IsList() bool {
	return r.Kind == OneToMany
}

// Model is a table
type Model struct {
	Name       string
	PrimaryKey string
	Fields     []Field
	// UniqueSets lists compound unique constraints
	UniqueSets [][]string
	Relations  []Relation

	fieldIndex    map[string]int
	relationIndex map[string]int
}

// Field looks up a scalar field
func (m *Model) Field(name string) (Field, bool) {
	i, ok := m.fieldIndex[name]
	if !ok {
		return Field{}, false
	}
	return m.Fields[i], true
}

// MustField panics when the field does not exist
func (m *Model) MustField(name string) Field {
	f, ok := m.Field(name)
	if !ok {
		panic(fmt.Sprintf("schema: %s has no field %q", m.Name, name))
	}
	return f
}

// Relation looks up a relation
func (m *Model) Relation(name string) (Relation, bool) {
	i, ok := m.relationIndex[name]
	if !ok {
		return Relation{}, false
	}
	return m.Relations[i], true
}

// FieldNames returns the scalar field names in declaration order
func (m *Model) FieldNames() []string {
	names := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		names[i] = f.Name
	}
	return names
}

// UniqueKeys returns every set of fields that identifies one row: the primary
// key, each unique field and each compound unique set
func (m *Model) UniqueKeys() [][]string {
	keys := [][]string{{m.PrimaryKey}}
	for _, f := range m.Fields {
		if f.Unique && !f.ID {
			keys = append(keys, []string{f.Name})
		}
	}
	keys = append(keys, m.UniqueSets...)
	return keys
}

// UniqueKeyFor returns the first unique key fully covered by fields
func (m *Model) UniqueKeyFor(fields []string) ([]string, bool) {
	present := make(map[string]bool, len(fields))
	for _, f := range fields {
		present[f] = true
	}
	for _, key := range m.UniqueKeys() {
		covered := true
		for _, f := range key {
			if !present[f] {
				covered = false
				break
			}
		}
		if covered {
			return key, true
		}
	}
	return nil, false
}

func (m *Model) index() error {
	m.fieldIndex = make(map[string]int, len(m.Fields))
	for i, f := range m.Fields {
		if _, dup := m.fieldIndex[f.Name]; dup {
			return fmt.Errorf("%s: duplicate field %q", m.Name, f.Name)
		}
		m.fieldIndex[f.Name] = i
	}

	m.relationIndex = make(map[string]int, len(m.Relations))
	for i, r := range m.Relations {
		if _, clash := m.fieldIndex[r.Name]; clash {
			return fmt.Errorf("%s: relation %q clashes with a field", m.Name, r.Name)
		}
		if _, dup := m.relationIndex[r.Name]; dup {
			return fmt.Errorf("%s: duplicate relation %q", m.Name, r.Name)
		}
		m.relationIndex[r.Name] = i
	}
	return nil
}

// Registry holds the validated set of models
type Registry struct {
	models map[string]*Model
	order  []string
}

// NewRegistry indexes and validates models: primary keys exist, unique sets
// name real fields, relation targets exist and every foreign key is nullable.
func NewRegistry(models ...*Model) (*Registry, error) {
	r := &Registry{models: make(map[string]*Model, len(models))}

	for _, m := range models {
		if _, dup := r.models[m.Name]; dup {
			return nil, fmt.Errorf("duplicate model %q", m.Name)
		}
		if err := m.index(); err != nil {
			return nil, err
		}
		pk, ok := m.Field(m.PrimaryKey)
		if !ok || !pk.ID {
			return nil, fmt.Errorf("%s: primary key %q is not an id field", m.Name, m.PrimaryKey)
		}
		for _, set := range m.UniqueSets {
			for _, name := range set {
				if _, ok := m.Field(name); !ok {
					return nil, fmt.Errorf("%s: unique set references unknown field %q", m.Name, name)
				}
			}
		}
		r.models[m.Name] = m
		r.order = append(r.order, m.Name)
	}

	for _, m := range models {
		for _, rel := range m.Relations {
			target, ok := r.models[rel.Target]
			if !ok {
				return nil, fmt.Errorf("%s.%s: unknown target model %q", m.Name, rel.Name, rel.Target)
			}
			local, ok := m.Field(rel.LocalField)
			if !ok {
				return nil, fmt.Errorf("%s.%s: unknown local field %q", m.Name, rel.Name, rel.LocalField)
			}
			foreign, ok := target.Field(rel.ForeignField)
			if !ok {
				return nil, fmt.Errorf("%s.%s: unknown foreign field %q on %s", m.Name, rel.Name, rel.ForeignField, target.Name)
			}
			fk := local
			if rel.Kind == OneToMany {
				fk = foreign
			}
			if !fk.Nullable {
				return nil, fmt.Errorf("%s.%s: foreign key %q must be nullable", m.Name, rel.Name, fk.Name)
			}
		}
	}

	return r, nil
}

// MustRegistry is NewRegistry that panics on invalid definitions
func MustRegistry(models ...*Model) *Registry {
	r, err := NewRegistry(models...)
	if err != nil {
		panic("schema: " + err.Error())
	}
	return r
}

// Model returns a model by table name
func (r *Registry) Model(name string) (*Model, bool) {
	m, ok := r.models[name]
	return m, ok
}

// Models returns every model in registration order
func (r *Registry) Models() []*Model {
	out := make([]*Model, len(r.order))
	for i, name := range r.order {
		out[i] = r.models[name]
	}
	return out
}

// CreationOrder returns the models sorted so that every relation target comes
// before the models holding a foreign key to it
func (r *Registry) CreationOrder() []*Model {
	visited := make(map[string]bool, len(r.order))
	var out []*Model

	var visit func(name string)
	visit = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		m := r.models[name]
		deps := []string{}
		for _, rel := range m.Relations {
			if rel.Kind == ManyToOne {
				deps = append(deps, rel.Target)
			}
		}
		sort.Strings(deps)
		for _, dep := range deps {
			visit(dep)
		}
		out = append(out, m)
	}

	for _, name := range r.order {
		visit(name)
	}
	return out
}

// String lists the registry for diagnostics
func (r *Registry) String() string {
	var b strings.Builder
	for _, m := range r.Models() {
		fmt.Fprintf(&b, "%s (%d fields, %d relations)\n", m.Name, len(m.Fields), len(m.Relations))
	}
	return b.String()
}
