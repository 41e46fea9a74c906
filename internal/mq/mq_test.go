package mq

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dreamhome/planner/config"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
)

type memoryBackend struct {
	published []Message
}

func (b *memoryBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	b.published = append(b.published, Message{ID: channel, Data: data, Attributes: attrs})
	return "msg-1", nil
}

func (b *memoryBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	for _, msg := range b.published {
		if err := handler(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (b *memoryBackend) Close() error { return nil }

func TestPublishAndSubscribeEvents(t *testing.T) {
	ctx := context.Background()
	backend := &memoryBackend{}
	queue := New(backend, "dreamhome.events")

	event := Event{
		Type:       EventItemAdded,
		Username:   "alice",
		Kind:       "indoor",
		ItemID:     1,
		ItemName:   "Lamp",
		OccurredAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	id, err := queue.PublishEvent(ctx, event)
	require.NoError(t, err)
	require.Equal(t, "msg-1", id)

	require.Len(t, backend.published, 1)
	require.Equal(t, "dreamhome.events", backend.published[0].ID)
	require.Equal(t, EventItemAdded, backend.published[0].Attributes[AttrEventType])
	require.Equal(t, "alice", backend.published[0].Attributes[AttrUsername])

	backend.published = append(backend.published, Message{Data: []byte("not json")})

	var received []Event
	err = queue.SubscribeEvents(ctx, func(ctx context.Context, event Event) error {
		received = append(received, event)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []Event{event}, received)
}

func TestSubscribeEventsPropagatesHandlerError(t *testing.T) {
	backend := &memoryBackend{}
	queue := New(backend, "events")
	_, err := queue.PublishEvent(context.Background(), Event{Type: EventItemDeleted, Username: "bob"})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = queue.SubscribeEvents(context.Background(), func(ctx context.Context, event Event) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
}

func TestDecodeEventRequiresType(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"username":"alice"}`))
	require.Error(t, err)
}

func TestOpenDisabled(t *testing.T) {
	queue, err := Open(context.Background(), config.MQConfig{})
	require.NoError(t, err)
	require.Nil(t, queue)

	_, err = Open(context.Background(), config.MQConfig{Backend: "kafka"})
	require.Error(t, err)
}

func TestDeliveryMessageRestoresAttributes(t *testing.T) {
	msg := deliveryMessage(amqp.Delivery{
		MessageId: "m-1",
		Type:      EventItemEdited,
		Headers:   amqp.Table{AttrUsername: "alice", "attempt": int32(2), "raw": []byte("x")},
		Body:      []byte(`{"type":"item.edited"}`),
	})

	require.Equal(t, "m-1", msg.ID)
	require.Equal(t, EventItemEdited, msg.Attributes[AttrEventType])
	require.Equal(t, "alice", msg.Attributes[AttrUsername])
	require.Equal(t, "2", msg.Attributes["attempt"])
	require.Equal(t, "x", msg.Attributes["raw"])

	msg = deliveryMessage(amqp.Delivery{Type: EventItemAdded, Headers: amqp.Table{AttrEventType: EventItemDeleted}})
	require.Equal(t, EventItemDeleted, msg.Attributes[AttrEventType])
}
