package events

import "time"

// Event is implemented by every import lifecycle and error event.
// The set is closed: only types embedding BaseEvent satisfy it.
type Event interface {
	EventType() string
	Subject() string // file the event concerns, may be empty
	OccurredAt() time.Time
	sealed()
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	Type      string    `json:"type"`
	File      string    `json:"subject,omitempty"`
	Timestamp time.Time `json:"occurred_at"`
}

func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) Subject() string       { return e.File }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (BaseEvent) sealed()                 {}

// NewBaseEvent creates a BaseEvent with the current timestamp.
func NewBaseEvent(eventType, subject string) BaseEvent {
	return BaseEvent{
		Type:      eventType,
		File:      subject,
		Timestamp: time.Now(),
	}
}
