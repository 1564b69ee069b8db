package dialect

import (
	"strings"
)

// Binder appends a value to the statement arguments and returns the
// placeholder that refers to it.
type Binder func(value any) string

// ArrayOp is a string-list predicate.
type ArrayOp string

const (
	ArrayHas      ArrayOp = "has"
	ArrayHasEvery ArrayOp = "hasEvery"
	ArrayHasSome  ArrayOp = "hasSome"
	ArrayEquals   ArrayOp = "equals"
)

// Dialect abstracts the differences between PostgreSQL, MySQL and SQLite.
type Dialect interface {
	// Name returns the dialect name ("postgresql", "mysql", "sqlite")
	Name() string

	// QuoteIdentifier quotes a table or column name
	QuoteIdentifier(name string) string

	// QuoteString quotes a string literal (DDL only, values are always bound)
	QuoteString(value string) string

	// MapType maps a schema field kind to the column type of the database.
	// Native SQL types pass through unchanged.
	MapType(kind string, isNullable bool) string

	// MapDefaultValue maps a symbolic default ("now()", "autoincrement()")
	MapDefaultValue(value string) string

	// EmptyListDefault returns the column default of an empty string list
	EmptyListDefault() string

	// AutoIncrementColumn renders an autoincrement integer primary key column
	AutoIncrementColumn(quotedName string) string

	// GetPlaceholder returns the parameter placeholder for a 1-based index
	GetPlaceholder(index int) string

	GetAutoIncrementKeyword() string
	GetNowFunction() string
	GetDriverName() string

	SupportsFullTextSearch() bool

	// GetFullTextSearchQuery renders a full-text predicate over expr
	GetFullTextSearchQuery(expr string, query string, bind Binder) string

	SupportsJSON() bool

	// GetLimitOffsetSyntax renders LIMIT/OFFSET. A negative limit means no limit.
	GetLimitOffsetSyntax(limit, offset int) string

	// SupportsReturning reports INSERT/UPDATE/DELETE ... RETURNING support
	SupportsReturning() bool

	// SupportsUpdateLimit reports UPDATE/DELETE ... LIMIT n support
	SupportsUpdateLimit() bool

	// EmptyInsert renders an INSERT that only uses column defaults
	EmptyInsert(quotedTable string) string

	// InsertKeyword returns the INSERT prefix, honoring skipDuplicates
	InsertKeyword(skipDuplicates bool) string

	// SkipDuplicatesSuffix is appended to an INSERT when skipDuplicates is set
	SkipDuplicatesSuffix() string

	// UpsertClause renders the conflict clause of an atomic upsert
	UpsertClause(conflict []string, assignments []string) string

	// ExcludedColumn references the value proposed for insertion inside UpsertClause
	ExcludedColumn(column string) string

	// ForUpdate returns the row-locking suffix of a SELECT (empty if unsupported)
	ForUpdate() string

	// Like renders a LIKE predicate with '!' as escape character
	Like(expr, pattern string, insensitive bool) string

	// CastDecimal wraps a decimal column so comparisons and ordering are numeric
	CastDecimal(expr string) string

	// OrderBy renders one ORDER BY term, nulls is "", "first" or "last"
	OrderBy(expr, direction, nulls string) string

	// EncodeArray converts a string list into a driver argument
	EncodeArray(values []string) (any, error)

	// ArrayPredicate renders a predicate on a string-list column
	ArrayPredicate(op ArrayOp, expr string, values []string, bind Binder) (string, error)

	// ArrayLength renders the element count of a string-list column
	ArrayLength(expr string) string

	// ArrayPush renders expr with values appended
	ArrayPush(expr string, values []string, bind Binder) (string, error)

	// JSONValue extracts the JSON value at path (the document itself if path is empty)
	JSONValue(expr string, path []string, bind Binder) string

	// JSONText extracts the value at path as text
	JSONText(expr string, path []string, bind Binder) string

	// JSONLiteral converts a bound JSON document into a comparable JSON value
	JSONLiteral(placeholder string) string

	// JSONIsNull matches a JSON null stored in the column
	JSONIsNull(expr string) string

	// JSONArrayContains matches when the JSON array at expr contains every
	// element of the bound JSON array
	JSONArrayContains(expr string, arrayPlaceholder string) string
}

// GetDialect returns the dialect for a provider
func GetDialect(provider string) Dialect {
	provider = strings.ToLower(provider)

	switch provider {
	case "postgresql", "postgres":
		return &PostgreSQLDialect{}
	case "mysql", "mariadb":
		return &MySQLDialect{}
	case "sqlite", "sqlite3":
		return &SQLiteDialect{}
	default:
		return &PostgreSQLDialect{}
	}
}

// IsKnownProvider reports whether GetDialect has a dialect for provider
func IsKnownProvider(provider string) bool {
	switch strings.ToLower(provider) {
	case "postgresql", "postgres", "mysql", "mariadb", "sqlite", "sqlite3":
		return true
	}
	return false
}
