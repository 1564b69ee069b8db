package testing

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/carlosnayan/agentdb/internal/dialect"
	"github.com/carlosnayan/agentdb/internal/driver"
	"github.com/carlosnayan/agentdb/schema"
)

// CleanTestData deletes every row, children first
func CleanTestData(t *testing.T, db driver.DB, d dialect.Dialect) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tables := schema.Default().CreationOrder()
	for _, m := range slices.Backward(tables) {
		if _, err := db.Exec(ctx, "DELETE FROM "+d.QuoteIdentifier(m.Name)); err != nil {
			t.Fatalf("failed to clean %s: %v", m.Name, err)
		}
	}
}

// SeedAgent inserts a catalog agent and returns its id
func SeedAgent(t *testing.T, db driver.DB, d dialect.Dialect, name, slug string) int64 {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := "INSERT INTO " + d.QuoteIdentifier(schema.Agents) +
		" (" + d.QuoteIdentifier("name") + ", " + d.QuoteIdentifier("slug") + ") VALUES (" +
		d.GetPlaceholder(1) + ", " + d.GetPlaceholder(2) + ")"

	if d.Name() == "postgresql" {
		var id int64
		if err := db.QueryRow(ctx, query+" RETURNING "+d.QuoteIdentifier("id"), name, slug).Scan(&id); err != nil {
			t.Fatalf("failed to seed agent %s: %v", slug, err)
		}
		return id
	}
	res, err := db.Exec(ctx, query, name, slug)
	if err != nil {
		t.Fatalf("failed to seed agent %s: %v", slug, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("failed to read agent id: %v", err)
	}
	return id
}

// WithTestTransaction runs fn inside a transaction that is always rolled back
func WithTestTransaction(t *testing.T, db driver.DB, fn func(tx driver.Tx)) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tx, err := db.Begin(ctx, driver.TxOptions{})
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
		if err := tx.Rollback(ctx); err != nil {
			t.Logf("warning: failed to rollback transaction: %v", err)
		}
	}()

	fn(tx)
}
