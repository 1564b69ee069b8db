package builder

import (
	"fmt"
	"strings"

	"github.com/carlosnayan/agentdb/internal/dialect"
)

// Search creates a full-text search operator for String fields.
// PostgreSQL matches every word as a prefix, MySQL needs a FULLTEXT index on
// the column and SQLite falls back to a case-insensitive substring match.
//
//	builder.Where{"description": builder.Search("voice receptionist")}
func Search(query string) WhereOperator {
	return WhereOperator{op: opSearch, value: query}
}

func (c *compiler) search(col, query string) string {
	if c.d.Name() == "postgresql" {
		query = NormalizeTSQuery(query)
	}
	return c.d.GetFullTextSearchQuery(col, query, c.st.bind)
}

// NormalizeTSQuery normalizes a query for PostgreSQL to_tsquery
// Converts spaces to & (AND) and adds :* for prefix matching
func NormalizeTSQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}

	var words []string
	for _, word := range strings.Fields(query) {
		// tsquery operators are dropped
		word = strings.Map(func(r rune) rune {
			switch r {
			case '&', '|', '!', '(', ')', ':', '*', '\'', '\\', '<', '>':
				return -1
			}
			return r
		}, word)
		if word != "" {
			words = append(words, word+":*")
		}
	}

	return strings.Join(words, " & ")
}

// BuildFullTextIndex returns the DDL of the full-text index Search needs, or
// "" when the dialect searches without one
func BuildFullTextIndex(d dialect.Dialect, tableName, fieldName string) string {
	if d.Name() != "mysql" {
		return ""
	}
	indexName := fmt.Sprintf("idx_%s_%s_fulltext", tableName, fieldName)
	return fmt.Sprintf("CREATE FULLTEXT INDEX %s ON %s (%s)",
		d.QuoteIdentifier(indexName), d.QuoteIdentifier(tableName), d.QuoteIdentifier(fieldName))
}
