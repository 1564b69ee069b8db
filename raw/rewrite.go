package raw

import (
	"errors"
	"strings"

	"github.com/carlosnayan/agentdb/internal/dialect"
)

// ErrMultipleStatements rejects scripts passed to the safe variants
var ErrMultipleStatements = errors.New("raw query must contain a single statement")

// Rewrite replaces each `?` outside string literals, quoted identifiers and
// comments with the dialect's placeholder and returns the placeholder count.
// `??` stands for a literal question mark. A trailing semicolon is dropped;
// any other statement separator is an error.
func Rewrite(d dialect.Dialect, query string) (string, int, error) {
	var out strings.Builder
	out.Grow(len(query) + 16)
	n := 0
	ended := false

	for i := 0; i < len(query); i++ {
		ch := query[i]

		if ended && !isSpace(ch) && !startsComment(query, i) {
			return "", 0, ErrMultipleStatements
		}

		switch {
		case ch == '\'' || ch == '"' || ch == '`':
			end := closingQuote(query, i, backslashEscapes(d, query, i))
			out.WriteString(query[i:end])
			i = end - 1
		case startsComment(query, i):
			end := commentEnd(query, i)
			out.WriteString(query[i:end])
			i = end - 1
		case ch == '?' && i+1 < len(query) && query[i+1] == '?':
			out.WriteByte('?')
			i++
		case ch == '?':
			n++
			out.WriteString(d.GetPlaceholder(n))
		case ch == ';':
			ended = true
		default:
			if !ended {
				out.WriteByte(ch)
			}
		}
	}
	return strings.TrimSpace(out.String()), n, nil
}

// closingQuote returns the index just past the literal opened at i. A doubled
// quote escapes the quote character, and so does a backslash when backslash
// is set.
func closingQuote(s string, i int, backslash bool) int {
	q := s[i]
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			if backslash {
				j++
			}
		case q:
			if j+1 < len(s) && s[j+1] == q {
				j++
				continue
			}
			return j + 1
		}
	}
	return len(s)
}

// backslashEscapes reports whether a backslash escapes inside the literal
// opened at i: always in MySQL strings, in PostgreSQL only inside E'...'
// literals
func backslashEscapes(d dialect.Dialect, s string, i int) bool {
	if s[i] == '`' {
		return false
	}
	switch d.Name() {
	case "mysql":
		return true
	case "postgresql":
		if s[i] != '\'' || i == 0 || (s[i-1] != 'E' && s[i-1] != 'e') {
			return false
		}
		return i == 1 || !isIdentChar(s[i-2])
	}
	return false
}

func isIdentChar(ch byte) bool {
	return ch == '_' || ch >= '0' && ch <= '9' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z'
}

func startsComment(s string, i int) bool {
	if i+1 >= len(s) {
		return false
	}
	return (s[i] == '-' && s[i+1] == '-') || (s[i] == '/' && s[i+1] == '*')
}

func commentEnd(s string, i int) int {
	if s[i] == '-' {
		if end := strings.IndexByte(s[i:], '\n'); end >= 0 {
			return i + end + 1
		}
		return len(s)
	}
	if end := strings.Index(s[i+2:], "*/"); end >= 0 {
		return i + 2 + end + 2
	}
	return len(s)
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}
