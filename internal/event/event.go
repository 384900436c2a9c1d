package event

import "time"

// EventType identifies something that happened to the conversation or the fact store.
type EventType string

const (
	TurnCompleted EventType = "turn.completed"
	TurnFailed    EventType = "turn.failed"

	FactSaved     EventType = "fact.saved"
	FactDuplicate EventType = "fact.duplicate"
	FactForgotten EventType = "fact.forgotten"
	ForgetMissed  EventType = "forget.missed"
	SaveBlocked   EventType = "save.blocked"

	SessionReset EventType = "session.reset"
	MemoryWiped  EventType = "memory.wiped"
)

// Known lists every event type a hook may subscribe to.
var Known = []EventType{
	TurnCompleted, TurnFailed,
	FactSaved, FactDuplicate, FactForgotten, ForgetMissed, SaveBlocked,
	SessionReset, MemoryWiped,
}

// IsKnown reports whether s names a known event type.
func IsKnown(s string) bool {
	for _, t := range Known {
		if string(t) == s {
			return true
		}
	}
	return false
}

// Event carries data about a lifecycle occurrence.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// NewEvent creates an event with the current timestamp.
func NewEvent(t EventType, data map[string]interface{}) Event {
	return Event{
		Type:      t,
		Timestamp: time.Now(),
		Data:      data,
	}
}
