package dialect

import (
	"fmt"
	"strings"
)

// SQLiteDialect implements the SQLite dialect
type SQLiteDialect struct{}

func (d *SQLiteDialect) Name() string {
	return "sqlite"
}

func (d *SQLiteDialect) QuoteIdentifier(name string) string {
	return fmt.Sprintf(`"%s"`, strings.ReplaceAll(name, `"`, `""`))
}

func (d *SQLiteDialect) QuoteString(value string) string {
	escaped := strings.ReplaceAll(value, "'", "''")
	return fmt.Sprintf("'%s'", escaped)
}

// MapType keeps the declared types the go-sqlite3 driver converts on read
// (DATETIME, BOOLEAN). Decimals are stored as TEXT to keep their precision.
func (d *SQLiteDialect) MapType(kind string, isNullable bool) string {
	switch strings.ToLower(kind) {
	case "string", "uuid", "json", "string[]", "decimal":
		return "TEXT"
	case "int", "bigint":
		return "INTEGER"
	case "boolean", "bool":
		return "BOOLEAN"
	case "datetime":
		return "DATETIME"
	case "float":
		return "REAL"
	}
	if isSQLType(strings.ToUpper(kind)) {
		return kind
	}
	return "TEXT"
}

func (d *SQLiteDialect) MapDefaultValue(value string) string {
	switch strings.ToLower(value) {
	case "autoincrement()", "autoincrement":
		return ""
	case "now()", "now":
		return "CURRENT_TIMESTAMP"
	default:
		return value
	}
}

func (d *SQLiteDialect) EmptyListDefault() string {
	return "'[]'"
}

func (d *SQLiteDialect) AutoIncrementColumn(quotedName string) string {
	return quotedName + " INTEGER PRIMARY KEY AUTOINCREMENT"
}

func (d *SQLiteDialect) GetPlaceholder(index int) string {
	return "?"
}

func (d *SQLiteDialect) GetAutoIncrementKeyword() string {
	return "AUTOINCREMENT"
}

func (d *SQLiteDialect) GetNowFunction() string {
	return "CURRENT_TIMESTAMP"
}

func (d *SQLiteDialect) GetDriverName() string {
	return "sqlite3"
}

func (d *SQLiteDialect) SupportsFullTextSearch() bool {
	return false
}

// GetFullTextSearchQuery falls back to a substring match without FTS tables
func (d *SQLiteDialect) GetFullTextSearchQuery(expr string, query string, bind Binder) string {
	return d.Like(expr, bind("%"+EscapeLike(query)+"%"), true)
}

func (d *SQLiteDialect) SupportsJSON() bool {
	return true
}

func (d *SQLiteDialect) GetLimitOffsetSyntax(limit, offset int) string {
	if limit >= 0 && offset > 0 {
		return fmt.Sprintf("LIMIT %d OFFSET %d", limit, offset)
	} else if limit >= 0 {
		return fmt.Sprintf("LIMIT %d", limit)
	} else if offset > 0 {
		return fmt.Sprintf("LIMIT -1 OFFSET %d", offset)
	}
	return ""
}

func (d *SQLiteDialect) SupportsReturning() bool {
	return true
}

func (d *SQLiteDialect) SupportsUpdateLimit() bool {
	return false
}

func (d *SQLiteDialect) EmptyInsert(quotedTable string) string {
	return "INSERT INTO " + quotedTable + " DEFAULT VALUES"
}

func (d *SQLiteDialect) InsertKeyword(skipDuplicates bool) string {
	return "INSERT INTO"
}

func (d *SQLiteDialect) SkipDuplicatesSuffix() string {
	return " ON CONFLICT DO NOTHING"
}

func (d *SQLiteDialect) UpsertClause(conflict []string, assignments []string) string {
	cols := make([]string, len(conflict))
	for i, c := range conflict {
		cols[i] = d.QuoteIdentifier(c)
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(cols, ", "), strings.Join(assignments, ", "))
}

func (d *SQLiteDialect) ExcludedColumn(column string) string {
	return "excluded." + d.QuoteIdentifier(column)
}

func (d *SQLiteDialect) ForUpdate() string {
	return ""
}

// Like is case-insensitive for ASCII on SQLite whatever the mode.
func (d *SQLiteDialect) Like(expr, pattern string, insensitive bool) string {
	if insensitive {
		return fmt.Sprintf("LOWER(%s) LIKE LOWER(%s) ESCAPE '!'", expr, pattern)
	}
	return fmt.Sprintf("%s LIKE %s ESCAPE '!'", expr, pattern)
}

func (d *SQLiteDialect) CastDecimal(expr string) string {
	return fmt.Sprintf("CAST(%s AS NUMERIC)", expr)
}

func (d *SQLiteDialect) OrderBy(expr, direction, nulls string) string {
	term := expr + " " + orderDirection(direction)
	switch strings.ToLower(nulls) {
	case "first":
		term += " NULLS FIRST"
	case "last":
		term += " NULLS LAST"
	}
	return term
}

func (d *SQLiteDialect) EncodeArray(values []string) (any, error) {
	return jsonArrayText(values)
}

func (d *SQLiteDialect) ArrayPredicate(op ArrayOp, expr string, values []string, bind Binder) (string, error) {
	switch op {
	case ArrayHas:
		if len(values) != 1 {
			return "", fmt.Errorf("has expects exactly one value")
		}
		return fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%s) WHERE json_each.value = %s)", expr, bind(values[0])), nil
	case ArrayHasEvery, ArrayHasSome, ArrayEquals:
		text, err := jsonArrayText(values)
		if err != nil {
			return "", err
		}
		switch op {
		case ArrayHasEvery:
			return fmt.Sprintf("NOT EXISTS (SELECT 1 FROM json_each(%s) AS w WHERE w.value NOT IN (SELECT value FROM json_each(%s)))", bind(text), expr), nil
		case ArrayHasSome:
			return fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%s) WHERE json_each.value IN (SELECT value FROM json_each(%s)))", expr, bind(text)), nil
		default:
			return fmt.Sprintf("json(%s) = json(%s)", expr, bind(text)), nil
		}
	}
	return "", fmt.Errorf("unsupported list operation %q", op)
}

func (d *SQLiteDialect) ArrayLength(expr string) string {
	return fmt.Sprintf("json_array_length(%s)", expr)
}

func (d *SQLiteDialect) ArrayPush(expr string, values []string, bind Binder) (string, error) {
	text, err := jsonArrayText(values)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(SELECT json_group_array(value) FROM (SELECT value FROM json_each(COALESCE(%s, '[]')) UNION ALL SELECT value FROM json_each(%s)))", expr, bind(text)), nil
}

// JSONValue returns the JSON text at path, so a JSON null stays 'null'
// instead of SQL NULL. The path is inlined: JSONArrayContains renders its
// bound array before expr, so a bound path would break positional placeholders.
func (d *SQLiteDialect) JSONValue(expr string, path []string, bind Binder) string {
	return fmt.Sprintf("(%s -> %s)", expr, d.QuoteString(jsonPathExpression(path)))
}

func (d *SQLiteDialect) JSONText(expr string, path []string, bind Binder) string {
	return fmt.Sprintf("json_extract(%s, %s)", expr, d.QuoteString(jsonPathExpression(path)))
}

func (d *SQLiteDialect) JSONLiteral(placeholder string) string {
	return fmt.Sprintf("json(%s)", placeholder)
}

func (d *SQLiteDialect) JSONIsNull(expr string) string {
	return fmt.Sprintf("json_type(%s) = 'null'", expr)
}

func (d *SQLiteDialect) JSONArrayContains(expr string, arrayPlaceholder string) string {
	return fmt.Sprintf("NOT EXISTS (SELECT 1 FROM json_each(%s) AS w WHERE w.value NOT IN (SELECT value FROM json_each(%s)))", arrayPlaceholder, expr)
}
