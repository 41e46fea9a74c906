package mq

import (
	"encoding/json"
	"errors"
	"time"
)

const (
	AttrEventType = "event_type"
	AttrUsername  = "username"
)

const (
	EventUserRegistered = "user.registered"
	EventItemAdded      = "item.added"
	EventItemEdited     = "item.edited"
	EventItemDeleted    = "item.deleted"
)

// Event describes a change to a user's account or lists.
type Event struct {
	Type       string    `json:"type"`
	Username   string    `json:"username"`
	Kind       string    `json:"kind,omitempty"`
	ItemID     int       `json:"item_id,omitempty"`
	ItemName   string    `json:"item_name,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// DecodeEvent parses a JSON-encoded event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	if event.Type == "" {
		return Event{}, errors.New("event type is required")
	}
	return event, nil
}
