package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Event[T any] struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Version int       `json:"version"`
	Time    time.Time `json:"time"`
	OrderID string    `json:"order_id,omitempty"`
	Payload T         `json:"payload"`
}

// EventRaw is the envelope consumers decode first, before the payload type is known.
type EventRaw = Event[json.RawMessage]

func NewEvent[T any](eventType, orderID string, payload T) Event[T] {
	return Event[T]{
		ID:      uuid.NewString(),
		Type:    eventType,
		Version: 1,
		Time:    time.Now().UTC(),
		OrderID: orderID,
		Payload: payload,
	}
}
