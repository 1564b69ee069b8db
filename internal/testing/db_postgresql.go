//go:build pgx

package testing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/carlosnayan/agentdb/internal/driver"
	"github.com/carlosnayan/agentdb/internal/migrations"
)

// SetupPostgreSQLTestDB creates a scratch PostgreSQL database
func SetupPostgreSQLTestDB(t *testing.T) driver.DB {
	t.Helper()
	baseURL := GetTestDatabaseURL("postgresql")
	if baseURL == "" {
		t.Skip("TEST_DATABASE_URL_POSTGRESQL not set, skipping PostgreSQL test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	adminURL := replaceDatabaseName(baseURL, "postgres")
	admin, err := pgx.Connect(ctx, adminURL)
	if err != nil {
		t.Skipf("PostgreSQL not available: %v", err)
	}
	defer admin.Close(ctx)

	name := testDatabaseName()
	if _, err := admin.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s", name)); err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	db, err := migrations.ConnectDatabase(ctx, "postgresql", replaceDatabaseName(baseURL, name), nil)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		conn, err := pgx.Connect(ctx, adminURL)
		if err != nil {
			return
		}
		defer conn.Close(ctx)
		_, _ = conn.Exec(ctx, fmt.Sprintf("DROP DATABASE IF EXISTS %s", name))
	})
	return db
}
