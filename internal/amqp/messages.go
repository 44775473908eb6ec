package amqp

import (
	"encoding/json"
	"time"
)

// ModelChangedMessage announces that a mutation was committed. It carries only
// the revision; the worker reads the full snapshot from the database.
type ModelChangedMessage struct {
	Revision  uint64    `json:"revision"`
	Timestamp time.Time `json:"timestamp"`
}

// NewModelChangedMessage creates a change message for the given revision.
func NewModelChangedMessage(revision uint64) *ModelChangedMessage {
	return &ModelChangedMessage{
		Revision:  revision,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ModelChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ModelChangedMessageFromJSON creates a message from JSON bytes
func ModelChangedMessageFromJSON(data []byte) (*ModelChangedMessage, error) {
	var msg ModelChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
