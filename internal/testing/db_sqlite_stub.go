//go:build !sqlite

package testing

import (
	"testing"

	"github.com/carlosnayan/agentdb/internal/driver"
)

// SetupSQLiteTestDB skips the test: SQLite tests need -tags=sqlite and cgo
func SetupSQLiteTestDB(t *testing.T) driver.DB {
	t.Skip("SQLite tests are disabled. Run with -tags=sqlite")
	return nil
}
