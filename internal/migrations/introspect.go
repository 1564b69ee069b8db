package migrations

import (
	"context"
	"fmt"
	"sort"

	"github.com/carlosnayan/agentdb/internal/dialect"
	"github.com/carlosnayan/agentdb/internal/driver"
)

// DatabaseSchema is the live layout of the database: table -> columns
type DatabaseSchema struct {
	Tables map[string][]string
}

// HasColumn reports whether table has column
func (s *DatabaseSchema) HasColumn(table, column string) bool {
	for _, c := range s.Tables[table] {
		if c == column {
			return true
		}
	}
	return false
}

// TableNames returns the tables in name order
func (s *DatabaseSchema) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// introspectQueries list (table, column) pairs of user tables
var introspectQueries = map[string]string{
	"postgresql": `
		SELECT CAST(table_name AS TEXT), CAST(column_name AS TEXT)
		FROM information_schema.columns
		WHERE table_schema = current_schema()
		ORDER BY table_name, ordinal_position`,
	"mysql": `
		SELECT table_name, column_name
		FROM information_schema.columns
		WHERE table_schema = DATABASE()
		ORDER BY table_name, ordinal_position`,
	"sqlite": `
		SELECT m.name, p.name
		FROM sqlite_master AS m
		JOIN pragma_table_info(m.name) AS p
		WHERE m.type = 'table' AND m.name NOT LIKE 'sqlite_%'
		ORDER BY m.name, p.cid`,
}

// IntrospectDatabase reads the tables and columns of the connected database
func IntrospectDatabase(ctx context.Context, q driver.Querier, d dialect.Dialect) (*DatabaseSchema, error) {
	query, ok := introspectQueries[d.Name()]
	if !ok {
		return nil, fmt.Errorf("introspection is not supported for %s", d.Name())
	}

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	defer rows.Close()

	out := &DatabaseSchema{Tables: make(map[string][]string)}
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return nil, fmt.Errorf("read column: %w", err)
		}
		out.Tables[table] = append(out.Tables[table], column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	return out, nil
}
