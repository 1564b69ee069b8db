package logger

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger([]string{"warn", "error"}, &buf)

	l.Info("connected to %s", "agents")
	if buf.Len() != 0 {
		t.Fatalf("info should be disabled, got %q", buf.String())
	}

	l.Warn("slow query: %s", "SELECT 1")
	if !strings.Contains(buf.String(), "WARN") || !strings.Contains(buf.String(), "slow query: SELECT 1") {
		t.Errorf("unexpected warn output %q", buf.String())
	}
}

func TestLogger_SetLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(nil, &buf)

	l.Query("SELECT 1", nil, time.Millisecond)
	if buf.Len() != 0 {
		t.Fatalf("query logging should be off")
	}

	l.SetLevels([]string{"query"})
	l.Query("SELECT 1", nil, time.Millisecond)
	if !strings.Contains(buf.String(), "QUERY") || !strings.Contains(buf.String(), "SELECT 1") {
		t.Errorf("unexpected query output %q", buf.String())
	}
}

func TestFormatQuery(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		args     []any
		expected string
	}{
		{
			name:     "postgres placeholders",
			query:    `SELECT * FROM "agents" WHERE "id" = $1 AND "slug" = $2`,
			args:     []any{int64(7), "receptionist"},
			expected: `SELECT * FROM "agents" WHERE "id" = 7 AND "slug" = 'receptionist'`,
		},
		{
			name:     "double digit placeholders",
			query:    "$1 $10",
			args:     []any{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
			expected: "1 10",
		},
		{
			name:     "question marks",
			query:    "UPDATE `rentals` SET `status` = ? WHERE `id` = ?",
			args:     []any{"cancelled", nil},
			expected: "UPDATE `rentals` SET `status` = 'cancelled' WHERE `id` = NULL",
		},
		{
			name:     "sensitive value",
			query:    "SELECT ?",
			args:     []any{"my-password-123"},
			expected: "SELECT '***REDACTED***'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatQuery(tt.query, tt.args); got != tt.expected {
				t.Errorf("formatQuery() = %q, want %q", got, tt.expected)
			}
		})
	}
}
