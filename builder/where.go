package builder

// Where is a filter tree, similar to Prisma's where clause.
// Each key is a field name, a relation name or one of the combinators
// AND, OR and NOT. A field value can be:
//   - a direct value for equality comparison
//   - nil for IS NULL checks
//   - a WhereOperator for other comparisons
//   - a FieldFilter to combine several operators on one field
//   - a JSONFilter or a types.NullSentinel on Json fields
//
// A relation value is a RelationFilter, or a Where as shorthand for Is.
//
// Example:
//
//	where := builder.Where{
//	    "slug":      "atlas",
//	    "rating":    builder.Gte(4),
//	    "category":  builder.In("sales", "support"),
//	    "voice_id":  nil,
//	    "rentals":   builder.Some(builder.Where{"status": "active"}),
//	    "OR": []builder.Where{
//	        {"name": builder.Contains("bot").Insensitive()},
//	        {"industries": builder.Has("hvac")},
//	    },
//	}
type Where map[string]any

// Combinator keys
const (
	AND = "AND"
	OR  = "OR"
	NOT = "NOT"
)

// Mode controls string comparisons
type Mode string

const (
	ModeDefault     Mode = "default"
	ModeInsensitive Mode = "insensitive"
)

// operator names
const (
	opEquals     = "="
	opNotEquals  = "!="
	opGt         = ">"
	opGte        = ">="
	opLt         = "<"
	opLte        = "<="
	opIn         = "IN"
	opNotIn      = "NOT IN"
	opIsNull     = "IS NULL"
	opIsNotNull  = "IS NOT NULL"
	opLike       = "LIKE"
	opContains   = "CONTAINS"
	opStartsWith = "STARTS_WITH"
	opEndsWith   = "ENDS_WITH"
	opSearch     = "SEARCH"
	opHas        = "HAS"
	opHasEvery   = "HAS_EVERY"
	opHasSome    = "HAS_SOME"
	opIsEmpty    = "IS_EMPTY"
)

// WhereOperator represents a conditional operator with its value
type WhereOperator struct {
	op    string
	value any
	mode  Mode
}

// Insensitive returns a copy of the operator comparing strings case-insensitively
func (wo WhereOperator) Insensitive() WhereOperator {
	wo.mode = ModeInsensitive
	return wo
}

// GetOp returns the operator string
func (wo WhereOperator) GetOp() string {
	return wo.op
}

// GetValue returns the operator value
func (wo WhereOperator) GetValue() any {
	return wo.value
}

// GetMode returns the comparison mode
func (wo WhereOperator) GetMode() Mode {
	return wo.mode
}

// Comparison operators for building WHERE clauses

// Equals creates an equality operator (=)
func Equals(value any) WhereOperator {
	return WhereOperator{op: opEquals, value: value}
}

// NotEquals creates a not equal operator (!=)
func NotEquals(value any) WhereOperator {
	return WhereOperator{op: opNotEquals, value: value}
}

// Gt creates a greater than operator (>)
func Gt(value any) WhereOperator {
	return WhereOperator{op: opGt, value: value}
}

// Gte creates a greater than or equal operator (>=)
func Gte(value any) WhereOperator {
	return WhereOperator{op: opGte, value: value}
}

// Lt creates a less than operator (<)
func Lt(value any) WhereOperator {
	return WhereOperator{op: opLt, value: value}
}

// Lte creates a less than or equal operator (<=)
func Lte(value any) WhereOperator {
	return WhereOperator{op: opLte, value: value}
}

// Like creates a LIKE operator with a raw pattern ('!' escapes wildcards)
func Like(pattern string) WhereOperator {
	return WhereOperator{op: opLike, value: pattern}
}

// ILike creates a case-insensitive LIKE operator
func ILike(pattern string) WhereOperator {
	return WhereOperator{op: opLike, value: pattern, mode: ModeInsensitive}
}

// In creates an IN operator for matching any value in a list.
// An empty list matches nothing.
func In(values ...any) WhereOperator {
	return WhereOperator{op: opIn, value: values}
}

// NotIn creates a NOT IN operator. An empty list matches everything.
func NotIn(values ...any) WhereOperator {
	return WhereOperator{op: opNotIn, value: values}
}

// IsNull creates an IS NULL operator
func IsNull() WhereOperator {
	return WhereOperator{op: opIsNull}
}

// IsNotNull creates an IS NOT NULL operator
func IsNotNull() WhereOperator {
	return WhereOperator{op: opIsNotNull}
}

// Contains matches strings containing value
func Contains(value string) WhereOperator {
	return WhereOperator{op: opContains, value: value}
}

// StartsWith matches strings starting with value
func StartsWith(value string) WhereOperator {
	return WhereOperator{op: opStartsWith, value: value}
}

// EndsWith matches strings ending with value
func EndsWith(value string) WhereOperator {
	return WhereOperator{op: opEndsWith, value: value}
}

// ContainsInsensitive is Contains(value).Insensitive()
func ContainsInsensitive(value string) WhereOperator {
	return Contains(value).Insensitive()
}

// StartsWithInsensitive is StartsWith(value).Insensitive()
func StartsWithInsensitive(value string) WhereOperator {
	return StartsWith(value).Insensitive()
}

// EndsWithInsensitive is EndsWith(value).Insensitive()
func EndsWithInsensitive(value string) WhereOperator {
	return EndsWith(value).Insensitive()
}

// Has checks if a string list contains a value
func Has(value string) WhereOperator {
	return WhereOperator{op: opHas, value: value}
}

// HasEvery checks if a string list contains all values
func HasEvery(values ...string) WhereOperator {
	return WhereOperator{op: opHasEvery, value: values}
}

// HasSome checks if a string list contains any value
func HasSome(values ...string) WhereOperator {
	return WhereOperator{op: opHasSome, value: values}
}

// IsEmpty checks if a string list is empty
func IsEmpty() WhereOperator {
	return WhereOperator{op: opIsEmpty}
}

// FieldFilter combines several operators on one field with AND
//
//	builder.Where{"rating": builder.FieldFilter{builder.Gte(3), builder.Lt(5)}}
type FieldFilter []WhereOperator

// JSONFilter filters a Json field, optionally at a path inside the document.
// Zero-valued members are ignored; the others are combined with AND.
type JSONFilter struct {
	Path []string
	// Equals compares the value at Path; it accepts types.DbNull,
	// types.JsonNull and types.AnyNull
	Equals           any
	StringContains   string
	StringStartsWith string
	StringEndsWith   string
	// ArrayContains matches when the array at Path holds every given
	// element; a non-slice value is treated as a one-element array
	ArrayContains any
	Mode          Mode
}

const (
	relSome  = "some"
	relEvery = "every"
	relNone  = "none"
	relIs    = "is"
	relIsNot = "isNot"
)

// RelationFilter filters on related records
type RelationFilter struct {
	op    string
	where Where
}

// Some matches when at least one related record matches where
func Some(where Where) RelationFilter {
	return RelationFilter{op: relSome, where: where}
}

// Every matches when every related record matches where (and when there are none)
func Every(where Where) RelationFilter {
	return RelationFilter{op: relEvery, where: where}
}

// None matches when no related record matches where
func None(where Where) RelationFilter {
	return RelationFilter{op: relNone, where: where}
}

// Is matches when the related record matches where. Is(nil) matches records
// without a related record.
func Is(where Where) RelationFilter {
	return RelationFilter{op: relIs, where: where}
}

// IsNot matches when the related record does not match where. IsNot(nil)
// matches records that have a related record.
func IsNot(where Where) RelationFilter {
	return RelationFilter{op: relIsNot, where: where}
}
