//go:build !pgx

package testing

import (
	"testing"

	"github.com/carlosnayan/agentdb/internal/driver"
)

// SetupPostgreSQLTestDB skips the test: PostgreSQL tests need -tags=pgx
func SetupPostgreSQLTestDB(t *testing.T) driver.DB {
	t.Skip("PostgreSQL tests are disabled. Run with -tags=pgx")
	return nil
}
