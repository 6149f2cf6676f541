package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/stackyard/taskhub/internal/ports"
)

// OutboxWorker drains the durable outbox on a ticker. Each pass claims a
// batch under a fresh token so overlapping workers never publish the same
// record twice; records that exhaust their retries are dead-lettered rather
// than retried forever.
type OutboxWorker struct {
	logger     *slog.Logger
	outbox     ports.OutboxRepository
	publisher  ports.EventPublisher
	interval   time.Duration
	batchSize  int
	maxRetries int
	claimTTL   time.Duration
}

func NewOutboxWorker(logger *slog.Logger, outbox ports.OutboxRepository, publisher ports.EventPublisher, interval time.Duration, batchSize, maxRetries int) *OutboxWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
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
		maxRetries: maxRetries,
		claimTTL:   time.Minute,
	}
}

func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		if err := w.processOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "outbox iteration failed",
				"module", "events.outbox_worker",
				"layer", "adapter",
				"operation", "process_once",
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

func (w *OutboxWorker) processOnce(ctx context.Context) error {
	claimToken := uuid.NewString()
	records, err := w.outbox.ClaimUnpublished(ctx, w.batchSize, claimToken, time.Now().UTC().Add(w.claimTTL))
	if err != nil {
		return err
	}
	for _, rec := range records {
		now := time.Now().UTC()
		if err := w.publisher.Publish(ctx, rec.EventType, rec.Payload, rec.PartitionKey); err != nil {
			if rec.RetryCount+1 >= w.maxRetries {
				if markErr := w.outbox.MarkDeadLettered(ctx, rec.OutboxID, claimToken, err.Error(), now); markErr != nil {
					w.logMarkFailure(ctx, "mark_dead_lettered", rec, markErr)
				}
				w.logger.ErrorContext(ctx, "outbox record dead-lettered",
					"module", "events.outbox_worker",
					"layer", "adapter",
					"operation", "publish",
					"outcome", "failure",
					"outbox_id", rec.OutboxID,
					"event_type", rec.EventType,
					"retries", rec.RetryCount+1,
					"error", err,
				)
				continue
			}
			if markErr := w.outbox.MarkFailed(ctx, rec.OutboxID, claimToken, err.Error(), now); markErr != nil {
				w.logMarkFailure(ctx, "mark_failed", rec, markErr)
			}
			continue
		}
		// A publish that cannot be marked resurfaces once the claim lapses, so
		// the record is delivered again; consumers de-duplicate on event id.
		if markErr := w.outbox.MarkPublished(ctx, rec.OutboxID, claimToken, now); markErr != nil {
			w.logMarkFailure(ctx, "mark_published", rec, markErr)
		}
	}
	return nil
}

func (w *OutboxWorker) logMarkFailure(ctx context.Context, operation string, rec ports.OutboxRecord, err error) {
	w.logger.ErrorContext(ctx, "outbox state update failed",
		"module", "events.outbox_worker",
		"layer", "adapter",
		"operation", operation,
		"outcome", "failure",
		"outbox_id", rec.OutboxID,
		"event_type", rec.EventType,
		"error", err,
	)
}
