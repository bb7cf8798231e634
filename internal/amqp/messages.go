package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"riepilogo/internal/core"
)

// InvalidationMessage tells other processes that an owner's data changed.
// It carries no payload beyond routing hints; receivers recompute from the store.
type InvalidationMessage struct {
	Origin    string       `json:"origin"`
	Owner     core.OwnerID `json:"owner"`
	Timestamp time.Time    `json:"timestamp"`
}

func NewInvalidationMessage(origin string, owner core.OwnerID) *InvalidationMessage {
	return &InvalidationMessage{
		Origin:    origin,
		Owner:     owner,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *InvalidationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// InvalidationMessageFromJSON decodes a message, rejecting ones without an origin.
func InvalidationMessageFromJSON(data []byte) (*InvalidationMessage, error) {
	var msg InvalidationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Origin == "" {
		return nil, errors.New("invalidation message without origin")
	}
	return &msg, nil
}
