package dialect

import (
	"fmt"
	"strings"
)

// PostgreSQLDialect implements the PostgreSQL dialect
type PostgreSQLDialect struct{}

func (d *PostgreSQLDialect) Name() string {
	return "postgresql"
}

func (d *PostgreSQLDialect) QuoteIdentifier(name string) string {
	return fmt.Sprintf(`"%s"`, strings.ReplaceAll(name, `"`, `""`))
}

func (d *PostgreSQLDialect) QuoteString(value string) string {
	escaped := strings.ReplaceAll(value, "'", "''")
	return fmt.Sprintf("'%s'", escaped)
}

func (d *PostgreSQLDialect) MapType(kind string, isNullable bool) string {
	switch strings.ToLower(kind) {
	case "string":
		return "TEXT"
	case "int":
		return "INTEGER"
	case "bigint":
		return "BIGINT"
	case "boolean", "bool":
		return "BOOLEAN"
	case "datetime":
		return "TIMESTAMP(3)"
	case "float":
		return "DOUBLE PRECISION"
	case "decimal":
		return "DECIMAL(65, 30)"
	case "json":
		return "JSONB"
	case "uuid":
		return "UUID"
	case "string[]":
		return "TEXT[]"
	}
	if isSQLType(strings.ToUpper(kind)) {
		return kind
	}
	return "TEXT"
}

func (d *PostgreSQLDialect) MapDefaultValue(value string) string {
	switch strings.ToLower(value) {
	case "autoincrement()", "autoincrement":
		return ""
	case "now()", "now":
		return "CURRENT_TIMESTAMP"
	case "uuid()", "uuid":
		return "gen_random_uuid()"
	default:
		return value
	}
}

func (d *PostgreSQLDialect) EmptyListDefault() string {
	return "'{}'"
}

func (d *PostgreSQLDialect) AutoIncrementColumn(quotedName string) string {
	return quotedName + " SERIAL PRIMARY KEY"
}

func (d *PostgreSQLDialect) GetPlaceholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

func (d *PostgreSQLDialect) GetAutoIncrementKeyword() string {
	return "SERIAL"
}

func (d *PostgreSQLDialect) GetNowFunction() string {
	return "NOW()"
}

func (d *PostgreSQLDialect) GetDriverName() string {
	return "pgx"
}

func (d *PostgreSQLDialect) SupportsFullTextSearch() bool {
	return true
}

func (d *PostgreSQLDialect) GetFullTextSearchQuery(expr string, query string, bind Binder) string {
	return fmt.Sprintf("to_tsvector(%s) @@ to_tsquery(%s)", expr, bind(query))
}

func (d *PostgreSQLDialect) SupportsJSON() bool {
	return true
}

func (d *PostgreSQLDialect) GetLimitOffsetSyntax(limit, offset int) string {
	if limit >= 0 && offset > 0 {
		return fmt.Sprintf("LIMIT %d OFFSET %d", limit, offset)
	} else if limit >= 0 {
		return fmt.Sprintf("LIMIT %d", limit)
	} else if offset > 0 {
		return fmt.Sprintf("OFFSET %d", offset)
	}
	return ""
}

func (d *PostgreSQLDialect) SupportsReturning() bool {
	return true
}

func (d *PostgreSQLDialect) SupportsUpdateLimit() bool {
	return false
}

func (d *PostgreSQLDialect) EmptyInsert(quotedTable string) string {
	return "INSERT INTO " + quotedTable + " DEFAULT VALUES"
}

func (d *PostgreSQLDialect) InsertKeyword(skipDuplicates bool) string {
	return "INSERT INTO"
}

func (d *PostgreSQLDialect) SkipDuplicatesSuffix() string {
	return " ON CONFLICT DO NOTHING"
}

func (d *PostgreSQLDialect) UpsertClause(conflict []string, assignments []string) string {
	cols := make([]string, len(conflict))
	for i, c := range conflict {
		cols[i] = d.QuoteIdentifier(c)
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(cols, ", "), strings.Join(assignments, ", "))
}

func (d *PostgreSQLDialect) ExcludedColumn(column string) string {
	return "EXCLUDED." + d.QuoteIdentifier(column)
}

func (d *PostgreSQLDialect) ForUpdate() string {
	return " FOR UPDATE"
}

func (d *PostgreSQLDialect) Like(expr, pattern string, insensitive bool) string {
	if insensitive {
		return fmt.Sprintf("%s ILIKE %s ESCAPE '!'", expr, pattern)
	}
	return fmt.Sprintf("%s LIKE %s ESCAPE '!'", expr, pattern)
}

func (d *PostgreSQLDialect) CastDecimal(expr string) string {
	return expr
}

func (d *PostgreSQLDialect) OrderBy(expr, direction, nulls string) string {
	term := expr + " " + orderDirection(direction)
	switch strings.ToLower(nulls) {
	case "first":
		term += " NULLS FIRST"
	case "last":
		term += " NULLS LAST"
	}
	return term
}

func (d *PostgreSQLDialect) EncodeArray(values []string) (any, error) {
	if values == nil {
		return []string{}, nil
	}
	return values, nil
}

func (d *PostgreSQLDialect) ArrayPredicate(op ArrayOp, expr string, values []string, bind Binder) (string, error) {
	if values == nil {
		values = []string{}
	}
	switch op {
	case ArrayHas:
		if len(values) != 1 {
			return "", fmt.Errorf("has expects exactly one value")
		}
		return fmt.Sprintf("%s = ANY(%s)", bind(values[0]), expr), nil
	case ArrayHasEvery:
		return fmt.Sprintf("%s @> CAST(%s AS TEXT[])", expr, bind(values)), nil
	case ArrayHasSome:
		return fmt.Sprintf("%s && CAST(%s AS TEXT[])", expr, bind(values)), nil
	case ArrayEquals:
		return fmt.Sprintf("%s = CAST(%s AS TEXT[])", expr, bind(values)), nil
	}
	return "", fmt.Errorf("unsupported list operation %q", op)
}

func (d *PostgreSQLDialect) ArrayLength(expr string) string {
	return fmt.Sprintf("cardinality(%s)", expr)
}

func (d *PostgreSQLDialect) ArrayPush(expr string, values []string, bind Binder) (string, error) {
	if values == nil {
		values = []string{}
	}
	return fmt.Sprintf("COALESCE(%s, '{}') || CAST(%s AS TEXT[])", expr, bind(values)), nil
}

func (d *PostgreSQLDialect) JSONValue(expr string, path []string, bind Binder) string {
	if len(path) == 0 {
		return expr
	}
	return fmt.Sprintf("(%s #> CAST(%s AS TEXT[]))", expr, bind(path))
}

func (d *PostgreSQLDialect) JSONText(expr string, path []string, bind Binder) string {
	if len(path) == 0 {
		return fmt.Sprintf("(%s #>> '{}')", expr)
	}
	return fmt.Sprintf("(%s #>> CAST(%s AS TEXT[]))", expr, bind(path))
}

func (d *PostgreSQLDialect) JSONLiteral(placeholder string) string {
	return fmt.Sprintf("CAST(%s AS JSONB)", placeholder)
}

func (d *PostgreSQLDialect) JSONIsNull(expr string) string {
	return fmt.Sprintf("%s = 'null'::jsonb", expr)
}

func (d *PostgreSQLDialect) JSONArrayContains(expr string, arrayPlaceholder string) string {
	return fmt.Sprintf("%s @> CAST(%s AS JSONB)", expr, arrayPlaceholder)
}
