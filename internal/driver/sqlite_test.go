//go:build sqlite

package driver

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func setupSQLiteTestDB(t *testing.T) DB {
	t.Helper()
	db, err := sql.Open("sqlite3", "file:"+filepath.Join(t.TempDir(), "driver.db"))
	if err != nil {
		t.Fatalf("failed to open SQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLDB(db)
}

func TestSQLDBAdapter_SQLite(t *testing.T) {
	db := setupSQLiteTestDB(t)
	ctx := context.Background()

	if _, err := db.Exec(ctx, "CREATE TABLE samples (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT)"); err != nil {
		t.Fatalf("Exec failed: %v", err)
	}

	result, err := db.Exec(ctx, "INSERT INTO samples (name) VALUES (?)", "first")
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if result.RowsAffected() != 1 {
		t.Errorf("RowsAffected = %d, want 1", result.RowsAffected())
	}
	if id, err := result.LastInsertId(); err != nil || id != 1 {
		t.Errorf("LastInsertId = %d, %v", id, err)
	}

	rows, err := db.Query(ctx, "SELECT id, name FROM samples")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	cols, err := rows.Columns()
	if err != nil || len(cols) != 2 || cols[1] != "name" {
		t.Errorf("Columns = %v, %v", cols, err)
	}
	rows.Close()

	tx, err := db.Begin(ctx, TxOptions{})
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if _, err := tx.Exec(ctx, "INSERT INTO samples (name) VALUES (?)", "rolled back"); err != nil {
		t.Fatalf("Exec in transaction failed: %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	var count int
	if err := db.QueryRow(ctx, "SELECT COUNT(*) FROM samples").Scan(&count); err != nil {
		t.Fatalf("QueryRow failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1 after rollback", count)
	}
}
