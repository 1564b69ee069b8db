//go:build sqlite

package testing

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/carlosnayan/agentdb/internal/driver"
	"github.com/carlosnayan/agentdb/internal/migrations"
)

// SetupSQLiteTestDB opens a SQLite database in a temp file
func SetupSQLiteTestDB(t *testing.T) driver.DB {
	t.Helper()
	dbURL := "file:" + filepath.Join(t.TempDir(), "agentdb_test.db")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := migrations.ConnectDatabase(ctx, "sqlite", dbURL, nil)
	if err != nil {
		t.Fatalf("failed to open SQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
