package ports

import (
	"context"
	"time"
)

// ReplayStore is the fast-path webhook replay filter. Seen marks the
// event id and reports whether it was already present. It is advisory
// only; the durable webhook_events table remains the arbiter, so
// callers tolerate errors from it.
type ReplayStore interface {
	Seen(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
}
