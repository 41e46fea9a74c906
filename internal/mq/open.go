package mq

import (
	"context"
	"fmt"

	"github.com/dreamhome/planner/config"
)

// Open connects the backend selected by cfg.Backend. It returns nil, nil
// when no backend is configured.
func Open(ctx context.Context, cfg config.MQConfig) (*MQ, error) {
	var backend Backend
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "rabbitmq":
		client, err := NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		backend = client
	case "pubsub":
		client, err := NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, fmt.Errorf("connect pubsub: %w", err)
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
	return New(backend, cfg.Channel), nil
}
