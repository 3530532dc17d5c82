package eventbus

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

const Source = "xhs-mcp"

// Event types published for finished page actions.
const (
	TypeActionCompleted = "action.completed"
	TypeActionFailed    = "action.failed"
	TypeActionCancelled = "action.cancelled"
)

// Event is the envelope put on the bus.
type Event struct {
	EventID   string       `json:"event_id"`
	Source    string       `json:"source"`
	Type      string       `json:"type"`
	Timestamp time.Time    `json:"timestamp"`
	Context   EventContext `json:"context"`
	Payload   EventPayload `json:"payload"`
}

type EventContext struct {
	JobID  string `json:"job_id,omitempty"`
	Action string `json:"action,omitempty"`
}

type EventPayload struct {
	Text     string         `json:"text,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewEventID generates a compact unique event id with a date prefix.
func NewEventID(prefix string, t time.Time) string {
	// 8 random bytes -> 16 hex chars
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return prefix + t.UTC().Format("20060102") + "_" + hex.EncodeToString(b)
}

// Valid checks required fields.
func (e *Event) Valid() bool {
	return e.EventID != "" && e.Source != "" && e.Type != "" && !e.Timestamp.IsZero()
}
