package builder

// Record is one row keyed by column name. Included relations appear under
// their relation name and relation counts under "_count".
type Record = map[string]any

// Include selects relations to load eagerly. A nil value loads the relation
// with default options.
//
//	builder.Include{"rentals": {Where: builder.Where{"status": "active"}, Take: builder.Ptr(5)}}
type Include map[string]*QueryOptions

// QueryOptions defines options for FindMany queries, similar to Prisma's findMany options
type QueryOptions struct {
	// Where conditions to filter records
	Where Where

	// OrderBy defines sorting order
	OrderBy []OrderBy

	// Cursor is a unique filter; the page starts at that record (inclusive)
	Cursor Where

	// Skip skips a number of records
	Skip *int

	// Take restricts the number of records returned. A negative value takes
	// from the end of the ordered set.
	Take *int

	// Distinct removes records repeating the values of these fields
	Distinct []string

	// Select restricts the returned scalar fields
	Select []string

	// Include loads relations
	Include Include

	// Count adds "_count" with the number of related records per to-many relation
	Count []string
}

// OrderBy defines sorting for a single field
type OrderBy struct {
	// Field name to sort by
	Field string

	// Order direction: "ASC" or "DESC"
	Order string

	// Nulls places NULL values "first" or "last"
	Nulls string

	// Aggregate sorts group-by results by an aggregate of Field:
	// "_count", "_avg", "_sum", "_min" or "_max"
	Aggregate string
}

// UniqueOptions are the options of FindUnique and Delete
type UniqueOptions struct {
	Where   Where
	Select  []string
	Include Include
	Count   []string
}

// CreateOptions are the options of Create
type CreateOptions struct {
	Data    Record
	Select  []string
	Include Include
	Count   []string
}

// CreateManyOptions are the options of CreateMany and CreateManyAndReturn
type CreateManyOptions struct {
	Data []Record

	// SkipDuplicates ignores rows colliding with a unique constraint
	SkipDuplicates bool

	Select  []string
	Include Include
}

// UpdateOptions are the options of Update
type UpdateOptions struct {
	Where   Where
	Data    Record
	Select  []string
	Include Include
	Count   []string
}

// UpdateManyOptions are the options of UpdateMany and UpdateManyAndReturn
type UpdateManyOptions struct {
	Where Where
	Data  Record

	// Limit caps the number of updated rows when set
	Limit *int

	Select  []string
	Include Include
}

// UpsertOptions are the options of Upsert
type UpsertOptions struct {
	Where   Where
	Create  Record
	Update  Record
	Select  []string
	Include Include
	Count   []string
}

// DeleteManyOptions are the options of DeleteMany
type DeleteManyOptions struct {
	Where Where
	Limit *int
}

// CountOptions are the options of Count
type CountOptions struct {
	Where   Where
	OrderBy []OrderBy
	Cursor  Where
	Skip    *int
	Take    *int
}

// AggregateOptions are the options of Aggregate. Count accepts "_all".
type AggregateOptions struct {
	Where   Where
	OrderBy []OrderBy
	Cursor  Where
	Skip    *int
	Take    *int

	Count []string
	Avg   []string
	Sum   []string
	Min   []string
	Max   []string
}

// Having filters groups. Keys are grouped fields (any Where value) or the
// combinators AND, OR and NOT; an Aggregates value filters on aggregates of
// the key's field.
//
//	builder.Having{"rating": builder.Aggregates{"_avg": builder.Gt(4)}}
type Having map[string]any

// Aggregates maps "_count", "_avg", "_sum", "_min" or "_max" to a filter value
type Aggregates map[string]any

// GroupByOptions are the options of GroupBy
type GroupByOptions struct {
	By      []string
	Where   Where
	Having  Having
	OrderBy []OrderBy
	Skip    *int
	Take    *int

	Count []string
	Avg   []string
	Sum   []string
	Min   []string
	Max   []string
}

// AggregateResult holds aggregates keyed by field name. Count uses "_all" for COUNT(*).
// Avg holds float64 (decimal.Decimal for Decimal fields), Sum holds int64,
// float64 or decimal.Decimal following the field kind.
type AggregateResult struct {
	Count map[string]int64
	Avg   map[string]any
	Sum   map[string]any
	Min   map[string]any
	Max   map[string]any
}

// GroupByResult is one group: the grouped field values plus the aggregates
type GroupByResult struct {
	Fields Record
	AggregateResult
}

// Ptr is a helper function to create a pointer to a value
func Ptr[T any](v T) *T {
	return &v
}

// BatchPayload represents the result of batch operations (CreateMany, UpdateMany, DeleteMany)
type BatchPayload struct {
	// Count is the number of records affected
	Count int64
}

const (
	updSet       = "set"
	updIncrement = "increment"
	updDecrement = "decrement"
	updMultiply  = "multiply"
	updDivide    = "divide"
	updPush      = "push"
)

// UpdateOp is an atomic update of one field
type UpdateOp struct {
	op    string
	value any
}

// Set assigns value, the same as passing the value directly
func Set(value any) UpdateOp {
	return UpdateOp{op: updSet, value: value}
}

// Increment adds n to a numeric field
func Increment(n any) UpdateOp {
	return UpdateOp{op: updIncrement, value: n}
}

// Decrement subtracts n from a numeric field
func Decrement(n any) UpdateOp {
	return UpdateOp{op: updDecrement, value: n}
}

// Multiply multiplies a numeric field by n
func Multiply(n any) UpdateOp {
	return UpdateOp{op: updMultiply, value: n}
}

// Divide divides a numeric field by n
func Divide(n any) UpdateOp {
	return UpdateOp{op: updDivide, value: n}
}

// Push appends values to a string list
func Push(values ...string) UpdateOp {
	return UpdateOp{op: updPush, value: values}
}
