package realtime

import (
	"time"

	"github.com/google/uuid"
)

// EventType names what happened to a table handle.
type EventType string

const (
	EventTableOpened      EventType = "table_opened"
	EventTableEvicted     EventType = "table_evicted"
	EventTableRemoved     EventType = "table_removed"
	EventMaintenanceSweep EventType = "maintenance_sweep"
)

// Event is one notification pushed to websocket subscribers.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Table     string    `json:"table,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewEvent creates an Event with a fresh ID and the current time.
func NewEvent(typ EventType, table string, payload any) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      typ,
		Table:     table,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
}
