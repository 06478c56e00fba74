package models

import "time"

// Event types recorded in the event log.
const (
	EventTransition   = "TRANSITION"
	EventConfigure    = "CONFIGURE"
	EventFault        = "FAULT"
	EventDoorPresence = "DOOR_PRESENCE"
)

// MotionEvent is a single log entry.
type MotionEvent struct {
	EventID     string       `json:"event_id"`
	OccurredAt  time.Time    `json:"occurred_at"`
	Door        DoorIdentity `json:"door"`
	Type        string       `json:"type"`        // TRANSITION | CONFIGURE | FAULT | DOOR_PRESENCE
	Description string       `json:"description"` // human-readable
	Metadata    any          `json:"metadata,omitempty"`
}
