package amqp

import (
	"encoding/json"
	"time"

	"fintrack/internal/snapshot"
)

// ChangeMessage announces that one document in one collection changed.
// It carries only the owner, collection and document id; the worker
// reloads the affected collections and recomputes from storage.
type ChangeMessage struct {
	Owner      string              `json:"owner"`
	Collection snapshot.Collection `json:"collection"`
	ID         string              `json:"id"`
	Timestamp  time.Time           `json:"timestamp"`
}

// NewChangeMessage creates a change message stamped with the current time.
func NewChangeMessage(owner string, col snapshot.Collection, id string) *ChangeMessage {
	return &ChangeMessage{
		Owner:      owner,
		Collection: col,
		ID:         id,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON creates a message from JSON bytes.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
