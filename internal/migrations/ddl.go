package migrations

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/carlosnayan/agentdb/builder"
	"github.com/carlosnayan/agentdb/internal/dialect"
	"github.com/carlosnayan/agentdb/schema"
)

// Plan is the DDL of a registry: tables in creation order, then indexes
type Plan struct {
	Tables  []TableDefinition
	Indexes []IndexDefinition
}

// TableDefinition is a table to create
type TableDefinition struct {
	Name        string
	Columns     []ColumnDefinition
	ForeignKeys []ForeignKey
}

// ColumnDefinition is a column of a table to create
type ColumnDefinition struct {
	Name          string
	Type          string
	IsNullable    bool
	IsPrimaryKey  bool
	AutoIncrement bool
	IsUnique      bool
	DefaultValue  string
}

// ForeignKey is a soft reference: deleting the target nulls the column
type ForeignKey struct {
	Name      string
	Column    string
	RefTable  string
	RefColumn string
}

// IndexDefinition is an index to create
type IndexDefinition struct {
	Name      string
	TableName string
	Columns   []string
	IsUnique  bool
	FullText  bool
}

// PlanFor derives the DDL of every model of reg for dialect d
func PlanFor(reg *schema.Registry, d dialect.Dialect) *Plan {
	plan := &Plan{}
	for _, m := range reg.CreationOrder() {
		table := TableDefinition{Name: m.Name}
		for _, f := range m.Fields {
			table.Columns = append(table.Columns, ColumnDefinition{
				Name:          f.Name,
				Type:          columnType(d, f),
				IsNullable:    f.Nullable,
				IsPrimaryKey:  f.Name == m.PrimaryKey,
				AutoIncrement: f.AutoIncrement,
				IsUnique:      f.Unique,
				DefaultValue:  defaultValue(d, f),
			})
			if f.DBType == "TEXT" && f.Kind == schema.String {
				plan.Indexes = append(plan.Indexes, IndexDefinition{
					Name:      fmt.Sprintf("idx_%s_%s_fulltext", m.Name, f.Name),
					TableName: m.Name,
					Columns:   []string{f.Name},
					FullText:  true,
				})
			}
		}

		for _, rel := range m.Relations {
			if rel.IsList() {
				continue
			}
			table.ForeignKeys = append(table.ForeignKeys, ForeignKey{
				Name:      fmt.Sprintf("%s_%s_fkey", m.Name, rel.LocalField),
				Column:    rel.LocalField,
				RefTable:  rel.Target,
				RefColumn: rel.ForeignField,
			})
			plan.Indexes = append(plan.Indexes, IndexDefinition{
				Name:      fmt.Sprintf("%s_%s_idx", m.Name, rel.LocalField),
				TableName: m.Name,
				Columns:   []string{rel.LocalField},
			})
		}

		for _, set := range m.UniqueSets {
			plan.Indexes = append(plan.Indexes, IndexDefinition{
				Name:      fmt.Sprintf("%s_%s_key", m.Name, strings.Join(set, "_")),
				TableName: m.Name,
				Columns:   set,
				IsUnique:  true,
			})
		}
		plan.Tables = append(plan.Tables, table)
	}
	return plan
}

func columnType(d dialect.Dialect, f schema.Field) string {
	if f.DBType != "" {
		return d.MapType(f.DBType, f.Nullable)
	}
	return d.MapType(string(f.Kind), f.Nullable)
}

func defaultValue(d dialect.Dialect, f schema.Field) string {
	switch v := f.Default.(type) {
	case nil:
		return ""
	case bool:
		if d.Name() == "postgresql" {
			return strings.ToUpper(strconv.FormatBool(v))
		}
		if v {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(v)
	case string:
		switch v {
		case schema.DefaultNow:
			return d.MapDefaultValue(v)
		case schema.DefaultEmptyList:
			return d.EmptyListDefault()
		}
		return d.QuoteString(v)
	}
	return fmt.Sprint(f.Default)
}

// Statements renders the plan. Tables and indexes are created only when
// missing, except MySQL indexes which Push checks before creating.
func (p *Plan) Statements(d dialect.Dialect) []string {
	var out []string
	for _, t := range p.Tables {
		out = append(out, CreateTableSQL(d, t))
	}
	for _, idx := range p.Indexes {
		if sql := CreateIndexSQL(d, idx); sql != "" {
			out = append(out, sql)
		}
	}
	return out
}

// SQL renders the plan as one script
func (p *Plan) SQL(d dialect.Dialect) string {
	stmts := p.Statements(d)
	if len(stmts) == 0 {
		return ""
	}
	return strings.Join(stmts, ";\n\n") + ";\n"
}

// CreateTableSQL renders CREATE TABLE IF NOT EXISTS
func CreateTableSQL(d dialect.Dialect, t TableDefinition) string {
	var sql strings.Builder
	sql.WriteString(fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n", d.QuoteIdentifier(t.Name)))

	var columns []string
	for _, col := range t.Columns {
		if col.IsPrimaryKey && col.AutoIncrement {
			columns = append(columns, "  "+d.AutoIncrementColumn(d.QuoteIdentifier(col.Name)))
			continue
		}
		colDef := fmt.Sprintf("  %s %s", d.QuoteIdentifier(col.Name), col.Type)
		if !col.IsNullable {
			colDef += " NOT NULL"
		}
		if col.DefaultValue != "" {
			colDef += " DEFAULT " + col.DefaultValue
		}
		if col.IsPrimaryKey {
			colDef += " PRIMARY KEY"
		} else if col.IsUnique {
			colDef += " UNIQUE"
		}
		columns = append(columns, colDef)
	}

	for _, fk := range t.ForeignKeys {
		columns = append(columns, fmt.Sprintf("  CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE SET NULL ON UPDATE CASCADE",
			d.QuoteIdentifier(fk.Name),
			d.QuoteIdentifier(fk.Column),
			d.QuoteIdentifier(fk.RefTable),
			d.QuoteIdentifier(fk.RefColumn)))
	}

	sql.WriteString(strings.Join(columns, ",\n"))
	sql.WriteString("\n)")
	return sql.String()
}

// CreateIndexSQL renders CREATE INDEX. Full-text indexes only exist where
// Search needs one.
func CreateIndexSQL(d dialect.Dialect, idx IndexDefinition) string {
	if idx.FullText {
		return builder.BuildFullTextIndex(d, idx.TableName, idx.Columns[0])
	}
	unique := ""
	if idx.IsUnique {
		unique = "UNIQUE "
	}
	ifNotExists := "IF NOT EXISTS "
	if d.Name() == "mysql" {
		ifNotExists = ""
	}
	quotedCols := make([]string, len(idx.Columns))
	for i, col := range idx.Columns {
		quotedCols[i] = d.QuoteIdentifier(col)
	}
	return fmt.Sprintf("CREATE %sINDEX %s%s ON %s (%s)",
		unique,
		ifNotExists,
		d.QuoteIdentifier(idx.Name),
		d.QuoteIdentifier(idx.TableName),
		strings.Join(quotedCols, ", "))
}
