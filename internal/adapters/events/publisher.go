package events

import (
	"context"
	"log/slog"
)

// LoggingPublisher is the local/dev sink: instead of a broker it records the
// event in the structured log, with a bounded payload preview so ledger and
// task events can be inspected on a laptop run.
type LoggingPublisher struct {
	logger *slog.Logger
}

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error {
	p.logger.InfoContext(ctx, "event published",
		"module", "events.publisher",
		"layer", "adapter",
		"operation", "publish",
		"outcome", "success",
		"event_type", eventType,
		"partition_key", partitionKey,
		"payload_bytes", len(payload),
		"payload_preview", payloadPreview(payload),
	)
	return nil
}

func payloadPreview(payload []byte) string {
	const max = 256
	if len(payload) <= max {
		return string(payload)
	}
	return string(payload[:max]) + "..."
}
