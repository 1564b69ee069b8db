package migrations

import (
	"context"
	"fmt"
	"strings"

	"github.com/carlosnayan/agentdb/internal/dialect"
	"github.com/carlosnayan/agentdb/internal/driver"
	"github.com/carlosnayan/agentdb/schema"
)

// Drift lists what the registry expects and the database lacks
type Drift struct {
	MissingTables  []string
	MissingColumns map[string][]string
}

// Empty reports whether the database matches the registry
func (d *Drift) Empty() bool {
	return len(d.MissingTables) == 0 && len(d.MissingColumns) == 0
}

// DetectDrift compares the registry with the live database. Extra tables and
// columns are ignored.
func DetectDrift(ctx context.Context, q driver.Querier, d dialect.Dialect, reg *schema.Registry) (*Drift, error) {
	live, err := IntrospectDatabase(ctx, q, d)
	if err != nil {
		return nil, err
	}
	return CompareSchema(reg, live), nil
}

// CompareSchema diffs a registry against an introspected schema
func CompareSchema(reg *schema.Registry, live *DatabaseSchema) *Drift {
	drift := &Drift{MissingColumns: make(map[string][]string)}
	for _, m := range reg.CreationOrder() {
		if _, ok := live.Tables[m.Name]; !ok {
			drift.MissingTables = append(drift.MissingTables, m.Name)
			continue
		}
		for _, f := range m.Fields {
			if !live.HasColumn(m.Name, f.Name) {
				drift.MissingColumns[m.Name] = append(drift.MissingColumns[m.Name], f.Name)
			}
		}
	}
	if len(drift.MissingColumns) == 0 {
		drift.MissingColumns = nil
	}
	return drift
}

// FormatDrift renders a drift report, one line per difference
func FormatDrift(drift *Drift) string {
	var output strings.Builder

	for _, table := range drift.MissingTables {
		output.WriteString(fmt.Sprintf("[+] Missing table `%s`\n", table))
	}
	for _, table := range sortedTables(drift.MissingColumns) {
		output.WriteString(fmt.Sprintf("[*] Table `%s` differs\n", table))
		for _, col := range drift.MissingColumns[table] {
			output.WriteString(fmt.Sprintf("  [+] Missing column `%s`\n", col))
		}
	}
	return output.String()
}

func sortedTables(m map[string][]string) []string {
	live := &DatabaseSchema{Tables: m}
	return live.TableNames()
}
