package mq

import (
	"context"
	"encoding/json"
	"fmt"
)

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// MQ binds a backend to the channel all planner events flow through.
type MQ struct {
	backend Backend
	channel string
}

// New constructs an MQ wrapper publishing to and consuming from channel.
func New(backend Backend, channel string) *MQ {
	return &MQ{backend: backend, channel: channel}
}

// Channel returns the configured channel name.
func (m *MQ) Channel() string {
	return m.channel
}

// PublishEvent encodes event as JSON and sends it with its type as an
// attribute so consumers can filter without decoding.
func (m *MQ) PublishEvent(ctx context.Context, event Event) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("encode event: %w", err)
	}
	return m.backend.Publish(ctx, m.channel, data, map[string]string{
		AttrEventType: event.Type,
		AttrUsername:  event.Username,
	})
}

// SubscribeEvents consumes the channel, decoding each message into an Event.
// Messages that do not decode are acknowledged and dropped.
func (m *MQ) SubscribeEvents(ctx context.Context, handler func(ctx context.Context, event Event) error) error {
	return m.backend.Subscribe(ctx, m.channel, func(ctx context.Context, msg Message) error {
		event, err := DecodeEvent(msg.Data)
		if err != nil {
			return nil
		}
		return handler(ctx, event)
	})
}

// Close closes the underlying backend.
func (m *MQ) Close() error {
	return m.backend.Close()
}
