package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/closedesk/transaction-service/internal/ports"
)

// OutboxWorker drains the transactional outbox: state changes commit
// their events in the same transaction, and this loop is the only thing
// that moves them to the publisher.
type OutboxWorker struct {
	logger     *slog.Logger
	outbox     ports.OutboxRepository
	publisher  ports.EventPublisher
	interval   time.Duration
	batchSize  int
	claimTTL   time.Duration
	maxRetries int
}

func NewOutboxWorker(
	logger *slog.Logger,
	outbox ports.OutboxRepository,
	publisher ports.EventPublisher,
	interval time.Duration,
	batchSize int,
	claimTTL time.Duration,
	maxRetries int,
) *OutboxWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if claimTTL <= 0 {
		claimTTL = 30 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &OutboxWorker{
		logger:     logger,
		outbox:     outbox,
		publisher:  publisher,
		interval:   interval,
		batchSize:  batchSize,
		claimTTL:   claimTTL,
		maxRetries: maxRetries,
	}
}

// deliveryOutcome classifies what happened to one claimed record.
type deliveryOutcome int

const (
	outcomePublished deliveryOutcome = iota
	outcomeRetryScheduled
	outcomeDeadLettered
)

// Run drains the outbox on the configured cadence until the context is
// cancelled.
func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.drainOnce(ctx); err != nil {
			w.logger.ErrorContext(ctx, "outbox drain pass failed",
				"module", "events.outbox_worker",
				"layer", "adapter",
				"operation", "outbox_drain",
				"outcome", "failure",
				"error", err,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *OutboxWorker) drainOnce(ctx context.Context) error {
	claimToken := uuid.NewString()
	records, err := w.outbox.ClaimUnpublished(ctx, w.batchSize, claimToken, time.Now().UTC().Add(w.claimTTL))
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	now := time.Now().UTC()
	tally := map[deliveryOutcome]int{}
	for _, rec := range records {
		tally[w.deliver(ctx, rec, claimToken, now)]++
	}

	w.logger.InfoContext(ctx, "outbox batch drained",
		"module", "events.outbox_worker",
		"layer", "adapter",
		"operation", "outbox_drain",
		"outcome", "success",
		"claimed", len(records),
		"published", tally[outcomePublished],
		"retry_scheduled", tally[outcomeRetryScheduled],
		"dead_lettered", tally[outcomeDeadLettered],
	)
	return nil
}

// deliver publishes one claimed record and settles its row. Marker
// errors are logged, not returned; a row whose marker write fails stays
// claimed until the claim lapses and is retried then.
func (w *OutboxWorker) deliver(ctx context.Context, rec ports.OutboxRecord, claimToken string, now time.Time) deliveryOutcome {
	if rec.RetryCount >= w.maxRetries {
		w.settle(ctx, rec, w.outbox.MarkDeadLettered(ctx, rec.OutboxID, claimToken, "retry budget exhausted before publish", now))
		return outcomeDeadLettered
	}

	publishErr := w.publisher.Publish(ctx, rec.EventType, rec.Payload)
	if publishErr == nil {
		w.settle(ctx, rec, w.outbox.MarkPublished(ctx, rec.OutboxID, claimToken, now))
		return outcomePublished
	}

	retriesAfterFailure := rec.RetryCount + 1
	if retriesAfterFailure >= w.maxRetries {
		w.logger.ErrorContext(ctx, "event dead-lettered",
			"module", "events.outbox_worker",
			"layer", "adapter",
			"operation", "deliver_event",
			"outcome", "failure",
			"outbox_id", rec.OutboxID,
			"event_type", rec.EventType,
			"retry_count", retriesAfterFailure,
			"error", publishErr,
		)
		w.settle(ctx, rec, w.outbox.MarkDeadLettered(ctx, rec.OutboxID, claimToken, publishErr.Error(), now))
		return outcomeDeadLettered
	}

	w.logger.WarnContext(ctx, "event delivery failed; will retry",
		"module", "events.outbox_worker",
		"layer", "adapter",
		"operation", "deliver_event",
		"outcome", "failure",
		"outbox_id", rec.OutboxID,
		"event_type", rec.EventType,
		"retry_count", retriesAfterFailure,
		"error", publishErr,
	)
	w.settle(ctx, rec, w.outbox.MarkFailed(ctx, rec.OutboxID, claimToken, publishErr.Error(), now))
	return outcomeRetryScheduled
}

func (w *OutboxWorker) settle(ctx context.Context, rec ports.OutboxRecord, err error) {
	if err == nil {
		return
	}
	w.logger.WarnContext(ctx, "outbox row settle failed; claim will lapse",
		"module", "events.outbox_worker",
		"layer", "adapter",
		"operation", "settle_outbox_row",
		"outcome", "failure",
		"outbox_id", rec.OutboxID,
		"error", err,
	)
}
