package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/dreamhome/planner/internal/mq"
)

// EventPublisher receives change notifications. *mq.MQ satisfies it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event mq.Event) (string, error)
}

// publishEvent logs and drops publish failures; the change it reports is
// already persisted.
func publishEvent(ctx context.Context, publisher EventPublisher, logger *slog.Logger, event mq.Event) {
	if publisher == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if _, err := publisher.PublishEvent(ctx, event); err != nil {
		logger.Warn("failed to publish event", "type", event.Type, "username", event.Username, "error", err)
	}
}
