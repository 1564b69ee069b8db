package migrations

import (
	"context"
	"fmt"

	contextutil "github.com/carlosnayan/agentdb/internal/context"
	"github.com/carlosnayan/agentdb/internal/dialect"
	"github.com/carlosnayan/agentdb/internal/driver"
	"github.com/carlosnayan/agentdb/schema"
)

// Push creates the missing tables and indexes of reg and returns the
// statements it ran. Existing tables are left untouched: Push never alters or
// drops anything.
func Push(ctx context.Context, q driver.Querier, d dialect.Dialect, reg *schema.Registry) ([]string, error) {
	ctx, cancel := contextutil.WithMigrationTimeout(ctx)
	defer cancel()

	plan := PlanFor(reg, d)
	var ran []string

	for _, t := range plan.Tables {
		sql := CreateTableSQL(d, t)
		if _, err := q.Exec(ctx, sql); err != nil {
			return ran, fmt.Errorf("create table %s: %w", t.Name, err)
		}
		ran = append(ran, sql)
	}

	for _, idx := range plan.Indexes {
		sql := CreateIndexSQL(d, idx)
		if sql == "" {
			continue
		}
		if d.Name() == "mysql" {
			exists, err := mysqlIndexExists(ctx, q, idx)
			if err != nil {
				return ran, err
			}
			if exists {
				continue
			}
		}
		if _, err := q.Exec(ctx, sql); err != nil {
			return ran, fmt.Errorf("create index %s: %w", idx.Name, err)
		}
		ran = append(ran, sql)
	}
	return ran, nil
}

func mysqlIndexExists(ctx context.Context, q driver.Querier, idx IndexDefinition) (bool, error) {
	var n int64
	err := q.QueryRow(ctx,
		"SELECT COUNT(*) FROM information_schema.statistics WHERE table_schema = DATABASE() AND table_name = ? AND index_name = ?",
		idx.TableName, idx.Name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("look up index %s: %w", idx.Name, err)
	}
	return n > 0, nil
}
