package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stackyard/taskhub/internal/ports"
)

type outboxRepository struct {
	db *gorm.DB
}

func (r *outboxRepository) Enqueue(ctx context.Context, event ports.OutboxEvent) error {
	rec := outboxModel{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      string(event.Payload),
		CreatedAt:    event.OccurredAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return storageErr("enqueue outbox event", err)
	}
	return nil
}

// ClaimUnpublished stamps a claim token on a batch of unpublished rows and
// returns only the rows that carry the token afterwards. A row claimed by a
// competing worker between the select and the update simply drops out of the
// batch, so no record is ever handed to two workers at once.
func (r *outboxRepository) ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]ports.OutboxRecord, error) {
	now := time.Now().UTC()

	var candidates []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("published_at IS NULL").
		Where("dead_lettered_at IS NULL").
		Where("claim_token IS NULL OR claim_until < ?", now).
		Order("created_at ASC").
		Limit(limit).
		Pluck("outbox_id", &candidates).Error
	if err != nil {
		return nil, storageErr("select outbox candidates", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	err = r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id IN ?", candidates).
		Where("published_at IS NULL").
		Where("dead_lettered_at IS NULL").
		Where("claim_token IS NULL OR claim_until < ?", now).
		Updates(map[string]any{
			"claim_token": claimToken,
			"claim_until": claimUntil,
		}).Error
	if err != nil {
		return nil, storageErr("claim outbox records", err)
	}

	var rows []outboxModel
	err = r.db.WithContext(ctx).
		Where("claim_token = ?", claimToken).
		Where("published_at IS NULL").
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, storageErr("load claimed outbox records", err)
	}

	out := make([]ports.OutboxRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, ports.OutboxRecord{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      []byte(row.Payload),
			RetryCount:   row.RetryCount,
			LastError:    row.LastError,
			CreatedAt:    row.CreatedAt,
			PublishedAt:  row.PublishedAt,
			LastErrorAt:  row.LastErrorAt,
			ClaimToken:   row.ClaimToken,
			ClaimUntil:   row.ClaimUntil,
		})
	}
	return out, nil
}

func (r *outboxRepository) MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", outboxID).
		Where("claim_token = ?", claimToken).
		Updates(map[string]any{
			"published_at": at,
			"claim_token":  nil,
			"claim_until":  nil,
		}).Error
	if err != nil {
		return storageErr("mark outbox published", err)
	}
	return nil
}

func (r *outboxRepository) MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", outboxID).
		Where("claim_token = ?", claimToken).
		Updates(map[string]any{
			"retry_count":   gorm.Expr("retry_count + 1"),
			"last_error":    errMsg,
			"last_error_at": at,
			"claim_token":   nil,
			"claim_until":   nil,
		}).Error
	if err != nil {
		return storageErr("mark outbox failed", err)
	}
	return nil
}

func (r *outboxRepository) MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", outboxID).
		Where("claim_token = ?", claimToken).
		Updates(map[string]any{
			"last_error":       errMsg,
			"last_error_at":    at,
			"dead_lettered_at": at,
			"claim_token":      nil,
			"claim_until":      nil,
		}).Error
	if err != nil {
		return storageErr("mark outbox dead-lettered", err)
	}
	return nil
}
