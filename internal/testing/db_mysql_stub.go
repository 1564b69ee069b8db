//go:build !mysql

package testing

import (
	"testing"

	"github.com/carlosnayan/agentdb/internal/driver"
)

// SetupMySQLTestDB skips the test: MySQL tests need -tags=mysql
func SetupMySQLTestDB(t *testing.T) driver.DB {
	t.Skip("MySQL tests are disabled. Run with -tags=mysql")
	return nil
}
