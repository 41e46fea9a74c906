package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dreamhome/planner/config"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	contentTypeJSON = "application/json"
	appID           = "dreamhome"
)

// RabbitMQClient carries planner events over a RabbitMQ queue named after
// the event channel. Messages go through the default exchange.
type RabbitMQClient struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   queueOptions

	mu       sync.Mutex
	declared map[string]bool
}

type queueOptions struct {
	durable    bool
	autoDelete bool
}

// NewRabbitMQClient dials cfg.URL and opens a channel with the configured
// prefetch.
func NewRabbitMQClient(cfg config.RabbitMQConfig) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.DialConfig(cfg.URL, amqp.Config{
		Properties: amqp.Table{"connection_name": appID},
	})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if cfg.PrefetchCount > 0 {
		if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	return &RabbitMQClient{
		conn:     conn,
		channel:  ch,
		queue:    queueOptions{durable: cfg.QueueDurable, autoDelete: cfg.QueueAutoDelete},
		declared: make(map[string]bool),
	}, nil
}

// Publish sends one event. The event type attribute doubles as the AMQP
// message type; the rest travel as headers. Durable queues get persistent
// deliveries.
func (r *RabbitMQClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if err := r.ensureQueue(channel); err != nil {
		return "", err
	}

	msg := amqp.Publishing{
		ContentType:  contentTypeJSON,
		AppId:        appID,
		MessageId:    uuid.NewString(),
		Type:         attrs[AttrEventType],
		Timestamp:    time.Now().UTC(),
		DeliveryMode: amqp.Transient,
		Headers:      amqp.Table{},
		Body:         data,
	}
	if r.queue.durable {
		msg.DeliveryMode = amqp.Persistent
	}
	for key, value := range attrs {
		msg.Headers[key] = value
	}

	if err := r.channel.PublishWithContext(ctx, "", channel, false, false, msg); err != nil {
		return "", fmt.Errorf("rabbitmq publish to %s: %w", channel, err)
	}
	return msg.MessageId, nil
}

// Subscribe consumes events until ctx is done. A delivery whose handler
// fails is requeued once; a failing redelivery is dropped.
func (r *RabbitMQClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if err := r.ensureQueue(channel); err != nil {
		return err
	}

	tag := appID + "-" + uuid.NewString()
	deliveries, err := r.channel.Consume(channel, tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq consume %s: %w", channel, err)
	}
	defer func() {
		_ = r.channel.Cancel(tag, false)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			if err := handler(ctx, deliveryMessage(delivery)); err != nil {
				_ = delivery.Nack(false, !delivery.Redelivered)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

// Close closes the connection, which also closes its channel.
func (r *RabbitMQClient) Close() error {
	if r.conn == nil || r.conn.IsClosed() {
		return nil
	}
	return r.conn.Close()
}

func (r *RabbitMQClient) ensureQueue(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("rabbitmq channel is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.declared[name] {
		return nil
	}
	if _, err := r.channel.QueueDeclare(name, r.queue.durable, r.queue.autoDelete, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq declare %s: %w", name, err)
	}
	r.declared[name] = true
	return nil
}

// deliveryMessage maps a delivery back to a Message, restoring the event type
// attribute from the AMQP type when a publisher left the header out.
func deliveryMessage(delivery amqp.Delivery) Message {
	attrs := make(map[string]string, len(delivery.Headers)+1)
	for key, value := range delivery.Headers {
		switch typed := value.(type) {
		case string:
			attrs[key] = typed
		case []byte:
			attrs[key] = string(typed)
		default:
			attrs[key] = fmt.Sprint(value)
		}
	}
	if attrs[AttrEventType] == "" && delivery.Type != "" {
		attrs[AttrEventType] = delivery.Type
	}
	return Message{
		ID:         delivery.MessageId,
		Data:       delivery.Body,
		Attributes: attrs,
	}
}
