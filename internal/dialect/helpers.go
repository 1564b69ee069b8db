package dialect

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// isSQLType checks if a type is already a native SQL type
func isSQLType(typ string) bool {
	sqlTypes := []string{
		"TEXT", "VARCHAR", "CHAR", "DATE", "TIME", "TIMESTAMP", "TIMESTAMPTZ",
		"DECIMAL", "NUMERIC", "SMALLINT", "INTEGER", "INT", "BIGINT",
		"REAL", "DOUBLE PRECISION", "DOUBLE", "BOOLEAN", "BOOL",
		"JSON", "JSONB", "BYTEA", "BLOB", "UUID", "INET", "CIDR", "MONEY",
		"BIT", "VARBIT", "MEDIUMTEXT", "LONGTEXT",
	}
	for _, sqlType := range sqlTypes {
		if strings.HasPrefix(typ, sqlType) {
			return true
		}
	}
	return false
}

// EscapeLike escapes LIKE wildcards using '!' as escape character
func EscapeLike(value string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(value)
}

// jsonPathExpression renders a path as a MySQL/SQLite JSON path ($."a"[0])
func jsonPathExpression(path []string) string {
	var b strings.Builder
	b.WriteString("$")
	for _, p := range path {
		if _, err := strconv.Atoi(p); err == nil {
			fmt.Fprintf(&b, "[%s]", p)
			continue
		}
		b.WriteString(`."`)
		b.WriteString(strings.ReplaceAll(p, `"`, `\"`))
		b.WriteString(`"`)
	}
	return b.String()
}

func jsonArrayText(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func orderDirection(direction string) string {
	if strings.EqualFold(direction, "desc") {
		return "DESC"
	}
	return "ASC"
}
