package application

import (
	"testing"
	"time"
)

// The service clock must track wall time, not the construction instant;
// created_at/updated_at and outbox OccurredAt all flow through it.
func TestServiceClockTracksWallTime(t *testing.T) {
	t.Parallel()

	svc := NewService(Dependencies{})

	time.Sleep(50 * time.Millisecond)
	if drift := time.Since(svc.nowFn()); drift > 40*time.Millisecond {
		t.Fatalf("service clock lags wall time by %v; it is pinned at construction", drift)
	}
	if svc.nowFn().Location() != time.UTC {
		t.Fatalf("service clock must report UTC")
	}
}
