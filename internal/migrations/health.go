package migrations

import (
	"context"
	"fmt"
	"io"
	"time"

	contextutil "github.com/carlosnayan/agentdb/internal/context"
	"github.com/carlosnayan/agentdb/internal/dialect"
	"github.com/carlosnayan/agentdb/internal/driver"
)

// HealthCheck represents the result of a health check
type HealthCheck struct {
	Status       string        `json:"status"`          // "healthy", "unhealthy"
	Database     string        `json:"database"`        // Database name
	ResponseTime time.Duration `json:"response_time"`   // Response time
	Error        string        `json:"error,omitempty"` // Error if any
	Pool         *PoolStats    `json:"pool,omitempty"`
}

var databaseNameQueries = map[string]string{
	"postgresql": "SELECT current_database()",
	"mysql":      "SELECT DATABASE()",
}

// CheckHealth runs SELECT 1 and reads the database name. A zero timeout
// means the default query timeout.
func CheckHealth(ctx context.Context, db driver.DB, d dialect.Dialect, timeout time.Duration) (*HealthCheck, error) {
	ctx, cancel := contextutil.WithQueryTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	var one int64
	err := db.QueryRow(ctx, "SELECT 1").Scan(&one)
	check := &HealthCheck{ResponseTime: time.Since(start), Database: "unknown"}
	if err != nil {
		check.Status = "unhealthy"
		check.Error = err.Error()
		return check, err
	}

	if query, ok := databaseNameQueries[d.Name()]; ok {
		var name *string
		if err := db.QueryRow(ctx, query).Scan(&name); err == nil && name != nil {
			check.Database = *name
		}
	} else if d.Name() == "sqlite" {
		check.Database = "main"
	}

	check.Status = "healthy"
	check.Pool = Stats(db)
	return check, nil
}

// PrintHealthCheck writes the health check result in a readable format
func PrintHealthCheck(w io.Writer, check *HealthCheck) {
	fmt.Fprintf(w, "Health Check:\n")
	fmt.Fprintf(w, "  Status: %s\n", check.Status)
	fmt.Fprintf(w, "  Database: %s\n", check.Database)
	fmt.Fprintf(w, "  Response Time: %v\n", check.ResponseTime)
	if check.Pool != nil {
		fmt.Fprintf(w, "  Connections: %d open, %d idle, %d in use\n", check.Pool.Open, check.Pool.Idle, check.Pool.InUse)
	}
	if check.Error != "" {
		fmt.Fprintf(w, "  Error: %s\n", check.Error)
	}
}
