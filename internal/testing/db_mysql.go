//go:build mysql

package testing

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver

	"github.com/carlosnayan/agentdb/internal/driver"
	"github.com/carlosnayan/agentdb/internal/migrations"
)

// SetupMySQLTestDB creates a scratch MySQL database
func SetupMySQLTestDB(t *testing.T) driver.DB {
	t.Helper()
	baseURL := GetTestDatabaseURL("mysql")
	if baseURL == "" {
		t.Skip("TEST_DATABASE_URL_MYSQL not set, skipping MySQL test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	admin, err := migrations.ConnectDatabase(ctx, "mysql", replaceDatabaseName(baseURL, ""), nil)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	defer admin.Close()

	name := testDatabaseName()
	if _, err := admin.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s", name)); err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	db, err := migrations.ConnectDatabase(ctx, "mysql", replaceDatabaseName(baseURL, name), nil)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
		cleanup, err := sql.Open("mysql", mysqlAdminDSN(baseURL))
		if err != nil {
			return
		}
		defer cleanup.Close()
		_, _ = cleanup.Exec(fmt.Sprintf("DROP DATABASE IF EXISTS %s", name))
	})
	return db
}

func mysqlAdminDSN(baseURL string) string {
	u := replaceDatabaseName(baseURL, "")
	if dsn, err := migrations.MySQLDSN(u); err == nil {
		return dsn
	}
	return u
}
