package contextutil

import (
	"context"
	"testing"
	"time"
)

func TestWithQueryTimeout(t *testing.T) {
	ctx, cancel := WithQueryTimeout(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("expected a deadline")
	}
	if remaining := time.Until(deadline); remaining > DefaultQueryTimeout || remaining < DefaultQueryTimeout-time.Second {
		t.Errorf("remaining = %v, want about %v", remaining, DefaultQueryTimeout)
	}
}

func TestWithQueryTimeout_Override(t *testing.T) {
	ctx, cancel := WithQueryTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	deadline, _ := ctx.Deadline()
	if time.Until(deadline) > 50*time.Millisecond {
		t.Errorf("override not applied")
	}
}

func TestWithQueryTimeout_KeepsEarlierDeadline(t *testing.T) {
	parent, cancelParent := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancelParent()

	ctx, cancel := WithQueryTimeout(parent, time.Hour)
	defer cancel()

	deadline, _ := ctx.Deadline()
	if time.Until(deadline) > 10*time.Millisecond {
		t.Errorf("parent deadline should win")
	}
}
