package dialect

import (
	"fmt"
	"strings"
)

// MySQLDialect implements the MySQL dialect
type MySQLDialect struct{}

func (d *MySQLDialect) Name() string {
	return "mysql"
}

func (d *MySQLDialect) QuoteIdentifier(name string) string {
	return fmt.Sprintf("`%s`", strings.ReplaceAll(name, "`", "``"))
}

func (d *MySQLDialect) QuoteString(value string) string {
	escaped := strings.ReplaceAll(value, "\\", "\\\\")
	escaped = strings.ReplaceAll(escaped, "'", "''")
	return fmt.Sprintf("'%s'", escaped)
}

func (d *MySQLDialect) MapType(kind string, isNullable bool) string {
	switch strings.ToLower(kind) {
	case "string":
		return "VARCHAR(191)"
	case "int":
		return "INT"
	case "bigint":
		return "BIGINT"
	case "boolean", "bool":
		return "TINYINT(1)"
	case "datetime":
		return "DATETIME(3)"
	case "float":
		return "DOUBLE"
	case "decimal":
		return "DECIMAL(65, 30)"
	case "json", "string[]":
		return "JSON"
	case "uuid":
		return "CHAR(36)"
	}

	upper := strings.ToUpper(kind)
	if isSQLType(upper) {
		switch {
		case strings.HasPrefix(upper, "JSONB"):
			return "JSON"
		case strings.HasPrefix(upper, "TIMESTAMPTZ"):
			return "TIMESTAMP"
		case strings.HasPrefix(upper, "DOUBLE PRECISION"):
			return "DOUBLE"
		case strings.HasPrefix(upper, "BOOLEAN"), strings.HasPrefix(upper, "BOOL"):
			return "TINYINT(1)"
		}
		return kind
	}
	return "VARCHAR(191)"
}

func (d *MySQLDialect) MapDefaultValue(value string) string {
	switch strings.ToLower(value) {
	case "autoincrement()", "autoincrement":
		return ""
	case "now()", "now":
		return "CURRENT_TIMESTAMP(3)"
	case "uuid()", "uuid":
		return "(UUID())"
	default:
		return value
	}
}

func (d *MySQLDialect) EmptyListDefault() string {
	return "(JSON_ARRAY())"
}

func (d *MySQLDialect) AutoIncrementColumn(quotedName string) string {
	return quotedName + " INT NOT NULL AUTO_INCREMENT PRIMARY KEY"
}

func (d *MySQLDialect) GetPlaceholder(index int) string {
	return "?"
}

func (d *MySQLDialect) GetAutoIncrementKeyword() string {
	return "AUTO_INCREMENT"
}

func (d *MySQLDialect) GetNowFunction() string {
	return "NOW(3)"
}

func (d *MySQLDialect) GetDriverName() string {
	return "mysql"
}

func (d *MySQLDialect) SupportsFullTextSearch() bool {
	return true
}

// GetFullTextSearchQuery requires a FULLTEXT index on the column
func (d *MySQLDialect) GetFullTextSearchQuery(expr string, query string, bind Binder) string {
	return fmt.Sprintf("MATCH(%s) AGAINST(%s IN BOOLEAN MODE)", expr, bind(query))
}

func (d *MySQLDialect) SupportsJSON() bool {
	return true
}

func (d *MySQLDialect) GetLimitOffsetSyntax(limit, offset int) string {
	if limit >= 0 && offset > 0 {
		return fmt.Sprintf("LIMIT %d OFFSET %d", limit, offset)
	} else if limit >= 0 {
		return fmt.Sprintf("LIMIT %d", limit)
	} else if offset > 0 {
		// MySQL has no OFFSET without LIMIT
		return fmt.Sprintf("LIMIT 18446744073709551615 OFFSET %d", offset)
	}
	return ""
}

func (d *MySQLDialect) SupportsReturning() bool {
	return false
}

func (d *MySQLDialect) SupportsUpdateLimit() bool {
	return true
}

func (d *MySQLDialect) EmptyInsert(quotedTable string) string {
	return "INSERT INTO " + quotedTable + " () VALUES ()"
}

func (d *MySQLDialect) InsertKeyword(skipDuplicates bool) string {
	if skipDuplicates {
		return "INSERT IGNORE INTO"
	}
	return "INSERT INTO"
}

func (d *MySQLDialect) SkipDuplicatesSuffix() string {
	return ""
}

// UpsertClause ignores the conflict target: MySQL reacts to any unique key.
func (d *MySQLDialect) UpsertClause(conflict []string, assignments []string) string {
	return "ON DUPLICATE KEY UPDATE " + strings.Join(assignments, ", ")
}

func (d *MySQLDialect) ExcludedColumn(column string) string {
	return fmt.Sprintf("VALUES(%s)", d.QuoteIdentifier(column))
}

func (d *MySQLDialect) ForUpdate() string {
	return " FOR UPDATE"
}

func (d *MySQLDialect) Like(expr, pattern string, insensitive bool) string {
	if insensitive {
		return fmt.Sprintf("LOWER(%s) LIKE LOWER(%s) ESCAPE '!'", expr, pattern)
	}
	return fmt.Sprintf("%s LIKE %s ESCAPE '!'", expr, pattern)
}

func (d *MySQLDialect) CastDecimal(expr string) string {
	return expr
}

// OrderBy emulates NULLS FIRST/LAST, MySQL sorts nulls first ascending
func (d *MySQLDialect) OrderBy(expr, direction, nulls string) string {
	dir := orderDirection(direction)
	switch strings.ToLower(nulls) {
	case "first":
		return fmt.Sprintf("%s IS NULL DESC, %s %s", expr, expr, dir)
	case "last":
		return fmt.Sprintf("%s IS NULL ASC, %s %s", expr, expr, dir)
	}
	return expr + " " + dir
}

func (d *MySQLDialect) EncodeArray(values []string) (any, error) {
	return jsonArrayText(values)
}

func (d *MySQLDialect) ArrayPredicate(op ArrayOp, expr string, values []string, bind Binder) (string, error) {
	switch op {
	case ArrayHas:
		if len(values) != 1 {
			return "", fmt.Errorf("has expects exactly one value")
		}
		return fmt.Sprintf("JSON_CONTAINS(%s, JSON_ARRAY(%s))", expr, bind(values[0])), nil
	case ArrayHasEvery, ArrayHasSome, ArrayEquals:
		text, err := jsonArrayText(values)
		if err != nil {
			return "", err
		}
		switch op {
		case ArrayHasEvery:
			return fmt.Sprintf("JSON_CONTAINS(%s, CAST(%s AS JSON))", expr, bind(text)), nil
		case ArrayHasSome:
			return fmt.Sprintf("JSON_OVERLAPS(%s, CAST(%s AS JSON))", expr, bind(text)), nil
		default:
			return fmt.Sprintf("%s = CAST(%s AS JSON)", expr, bind(text)), nil
		}
	}
	return "", fmt.Errorf("unsupported list operation %q", op)
}

func (d *MySQLDialect) ArrayLength(expr string) string {
	return fmt.Sprintf("JSON_LENGTH(%s)", expr)
}

func (d *MySQLDialect) ArrayPush(expr string, values []string, bind Binder) (string, error) {
	text, err := jsonArrayText(values)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("JSON_MERGE_PRESERVE(COALESCE(%s, JSON_ARRAY()), CAST(%s AS JSON))", expr, bind(text)), nil
}

func (d *MySQLDialect) JSONValue(expr string, path []string, bind Binder) string {
	if len(path) == 0 {
		return expr
	}
	return fmt.Sprintf("JSON_EXTRACT(%s, %s)", expr, bind(jsonPathExpression(path)))
}

func (d *MySQLDialect) JSONText(expr string, path []string, bind Binder) string {
	return fmt.Sprintf("JSON_UNQUOTE(JSON_EXTRACT(%s, %s))", expr, bind(jsonPathExpression(path)))
}

func (d *MySQLDialect) JSONLiteral(placeholder string) string {
	return fmt.Sprintf("CAST(%s AS JSON)", placeholder)
}

func (d *MySQLDialect) JSONIsNull(expr string) string {
	return fmt.Sprintf("JSON_TYPE(%s) = 'NULL'", expr)
}

func (d *MySQLDialect) JSONArrayContains(expr string, arrayPlaceholder string) string {
	return fmt.Sprintf("JSON_CONTAINS(%s, CAST(%s AS JSON))", expr, arrayPlaceholder)
}
