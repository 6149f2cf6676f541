package events

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/stackyard/taskhub/internal/ports"
)

type memOutbox struct {
	mu           sync.Mutex
	records      []ports.OutboxRecord
	published    []uuid.UUID
	failed       []uuid.UUID
	deadLettered []uuid.UUID
	dead         map[uuid.UUID]bool
}

func (m *memOutbox) Enqueue(_ context.Context, event ports.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, ports.OutboxRecord{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      event.Payload,
		CreatedAt:    event.OccurredAt,
	})
	return nil
}

func (m *memOutbox) ClaimUnpublished(_ context.Context, limit int, claimToken string, claimUntil time.Time) ([]ports.OutboxRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ports.OutboxRecord
	for i := range m.records {
		rec := &m.records[i]
		if rec.PublishedAt != nil || rec.ClaimToken != nil || m.dead[rec.OutboxID] {
			continue
		}
		token := claimToken
		until := claimUntil
		rec.ClaimToken = &token
		rec.ClaimUntil = &until
		out = append(out, *rec)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memOutbox) find(outboxID uuid.UUID, claimToken string) *ports.OutboxRecord {
	for i := range m.records {
		rec := &m.records[i]
		if rec.OutboxID == outboxID && rec.ClaimToken != nil && *rec.ClaimToken == claimToken {
			return rec
		}
	}
	return nil
}

func (m *memOutbox) MarkPublished(_ context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec := m.find(outboxID, claimToken); rec != nil {
		rec.PublishedAt = &at
		rec.ClaimToken = nil
		rec.ClaimUntil = nil
		m.published = append(m.published, outboxID)
	}
	return nil
}

func (m *memOutbox) MarkFailed(_ context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec := m.find(outboxID, claimToken); rec != nil {
		rec.RetryCount++
		rec.LastError = &errMsg
		rec.LastErrorAt = &at
		rec.ClaimToken = nil
		rec.ClaimUntil = nil
		m.failed = append(m.failed, outboxID)
	}
	return nil
}

func (m *memOutbox) MarkDeadLettered(_ context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec := m.find(outboxID, claimToken); rec != nil {
		rec.LastError = &errMsg
		rec.LastErrorAt = &at
		rec.ClaimToken = nil
		rec.ClaimUntil = nil
		if m.dead == nil {
			m.dead = map[uuid.UUID]bool{}
		}
		m.dead[outboxID] = true
		m.deadLettered = append(m.deadLettered, outboxID)
	}
	return nil
}

type flakyPublisher struct {
	mu        sync.Mutex
	failures  int
	delivered []string
}

func (p *flakyPublisher) Publish(_ context.Context, eventType string, _ []byte, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return errors.New("broker unavailable")
	}
	p.delivered = append(p.delivered, eventType)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func enqueue(t *testing.T, outbox *memOutbox, eventType string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	err := outbox.Enqueue(context.Background(), ports.OutboxEvent{
		EventID:    id,
		EventType:  eventType,
		Payload:    []byte(`{}`),
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	return id
}

func TestProcessOncePublishesBatch(t *testing.T) {
	t.Parallel()

	outbox := &memOutbox{}
	publisher := &flakyPublisher{}
	enqueue(t, outbox, "session.logged_in")
	enqueue(t, outbox, "task.completed")

	w := NewOutboxWorker(discardLogger(), outbox, publisher, time.Second, 10, 3)
	if err := w.processOnce(context.Background()); err != nil {
		t.Fatalf("process once: %v", err)
	}

	if len(publisher.delivered) != 2 {
		t.Fatalf("want 2 deliveries, got %d", len(publisher.delivered))
	}
	if len(outbox.published) != 2 {
		t.Fatalf("want 2 records marked published, got %d", len(outbox.published))
	}
}

func TestProcessOnceRetriesThenPublishes(t *testing.T) {
	t.Parallel()

	outbox := &memOutbox{}
	publisher := &flakyPublisher{failures: 1}
	id := enqueue(t, outbox, "session.logged_out")

	w := NewOutboxWorker(discardLogger(), outbox, publisher, time.Second, 10, 3)
	if err := w.processOnce(context.Background()); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if len(outbox.failed) != 1 || outbox.failed[0] != id {
		t.Fatalf("first pass must mark the record failed, got %v", outbox.failed)
	}

	if err := w.processOnce(context.Background()); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if len(outbox.published) != 1 || outbox.published[0] != id {
		t.Fatalf("second pass must publish, got %v", outbox.published)
	}
}

type markErrOutbox struct {
	*memOutbox
	markPublishedErr error
}

func (m *markErrOutbox) MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error {
	if m.markPublishedErr != nil {
		return m.markPublishedErr
	}
	return m.memOutbox.MarkPublished(ctx, outboxID, claimToken, at)
}

func TestProcessOnceLogsUnmarkablePublish(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	outbox := &markErrOutbox{memOutbox: &memOutbox{}, markPublishedErr: errors.New("write timeout")}
	publisher := &flakyPublisher{}
	enqueue(t, outbox.memOutbox, "task.completed")

	w := NewOutboxWorker(logger, outbox, publisher, time.Second, 10, 3)
	if err := w.processOnce(context.Background()); err != nil {
		t.Fatalf("process once: %v", err)
	}

	if len(publisher.delivered) != 1 {
		t.Fatalf("want 1 delivery, got %d", len(publisher.delivered))
	}
	logged := buf.String()
	if !strings.Contains(logged, "outbox state update failed") || !strings.Contains(logged, "write timeout") {
		t.Fatalf("failed state update must be logged, got %q", logged)
	}
}

func TestProcessOnceDeadLettersAfterMaxRetries(t *testing.T) {
	t.Parallel()

	outbox := &memOutbox{}
	publisher := &flakyPublisher{failures: 100}
	id := enqueue(t, outbox, "session.expired")

	w := NewOutboxWorker(discardLogger(), outbox, publisher, time.Second, 10, 2)
	for i := 0; i < 3; i++ {
		if err := w.processOnce(context.Background()); err != nil {
			t.Fatalf("pass %d: %v", i, err)
		}
	}

	if len(outbox.deadLettered) != 1 || outbox.deadLettered[0] != id {
		t.Fatalf("record must dead-letter after exhausting retries, got %v", outbox.deadLettered)
	}
	if len(outbox.failed) != 1 {
		t.Fatalf("want exactly one transient failure before dead-letter, got %d", len(outbox.failed))
	}
}
