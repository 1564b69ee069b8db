package builder

import (
	"strings"
	"time"
)

// slowQueryThreshold is the duration above which a statement is logged as slow
const slowQueryThreshold = time.Second

// statementKind returns the leading keyword of a statement, upper-cased
func statementKind(query string) string {
	keyword, _, _ := strings.Cut(strings.TrimSpace(query), " ")
	switch kind := strings.ToUpper(keyword); kind {
	case "SELECT", "INSERT", "UPDATE", "DELETE", "WITH":
		return kind
	}
	return "UNKNOWN"
}

// logQuery logs a statement, warns when it was slow and feeds the N+1 detector
func (r *Runtime) logQuery(table, query string, args []any, start time.Time) {
	duration := time.Since(start)
	r.detector.Record(query, table)

	if r.logger == nil {
		return
	}
	r.logger.Query(query, args, duration)
	if duration > slowQueryThreshold {
		r.logger.Warn("Slow query detected: %s on %s took %v", statementKind(query), table, duration)
	}
}
