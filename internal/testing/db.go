// Package testing sets up throwaway databases carrying the marketplace schema.
// Each provider lives behind a build tag (sqlite, pgx, mysql); without the tag
// the setup skips the test.
package testing

import (
	"context"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/carlosnayan/agentdb/internal/dialect"
	"github.com/carlosnayan/agentdb/internal/driver"
	"github.com/carlosnayan/agentdb/internal/migrations"
	"github.com/carlosnayan/agentdb/schema"
)

// SetupTestDB creates a test database with every table of schema.Default
// pushed. The database is dropped when the test ends.
func SetupTestDB(t *testing.T, provider string) (driver.DB, dialect.Dialect) {
	t.Helper()
	SkipIfNoDatabase(t, provider)

	var db driver.DB
	switch provider {
	case "postgresql":
		db = SetupPostgreSQLTestDB(t)
	case "mysql":
		db = SetupMySQLTestDB(t)
	case "sqlite":
		db = SetupSQLiteTestDB(t)
	default:
		t.Fatalf("unsupported provider: %s", provider)
	}

	d := dialect.GetDialect(provider)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := migrations.Push(ctx, db, d, schema.Default()); err != nil {
		t.Fatalf("failed to push schema: %v", err)
	}
	return db, d
}

// GetTestDatabaseURL gets test database URL from environment variables
func GetTestDatabaseURL(provider string) string {
	key := "TEST_DATABASE_URL_" + strings.ToUpper(provider)
	if v := os.Getenv(key); v != "" {
		return v
	}
	return os.Getenv("TEST_DATABASE_URL")
}

// replaceDatabaseName swaps the path of a database URL, keeping the query
//
//nolint:unused // Used by test files with build tags
func replaceDatabaseName(databaseURL, dbName string) string {
	u, err := url.Parse(databaseURL)
	if err != nil || u.Host == "" {
		return databaseURL
	}
	u.Path = "/" + dbName
	return u.String()
}

//nolint:unused // Used by test files with build tags
func testDatabaseName() string {
	return "agentdb_test_" + strings.ReplaceAll(time.Now().Format("20060102150405.000000000"), ".", "_")
}
