package migrations

import "strings"

// SplitSQLStatements splits a script on semicolons that are outside quoted
// strings and comments. Empty statements are dropped.
func SplitSQLStatements(sql string) []string {
	var statements []string
	var current strings.Builder
	inString := false
	stringChar := byte(0)

	flush := func() {
		stmt := strings.TrimSpace(current.String())
		if stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	for i := 0; i < len(sql); i++ {
		ch := sql[i]

		if inString {
			current.WriteByte(ch)
			if ch == stringChar && (i == 0 || sql[i-1] != '\\') {
				inString = false
			}
			continue
		}

		switch {
		case ch == '\'' || ch == '"' || ch == '`':
			inString = true
			stringChar = ch
			current.WriteByte(ch)
		case ch == '-' && i+1 < len(sql) && sql[i+1] == '-':
			end := strings.IndexByte(sql[i:], '\n')
			if end < 0 {
				i = len(sql)
			} else {
				i += end
				current.WriteByte('\n')
			}
		case ch == '/' && i+1 < len(sql) && sql[i+1] == '*':
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				i = len(sql)
			} else {
				i += end + 3
			}
		case ch == ';':
			flush()
		default:
			current.WriteByte(ch)
		}
	}

	flush()
	return statements
}
