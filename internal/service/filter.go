package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"power_windows/internal/models"
)

// ErrInvalidFilter wraps every rejected LogFilter.
var ErrInvalidFilter = errors.New("invalid log filter")

var eventTypes = map[string]bool{
	models.EventTransition:   true,
	models.EventConfigure:    true,
	models.EventFault:        true,
	models.EventDoorPresence: true,
}

// LogFilter selects motion events by time range, type and door.
type LogFilter struct {
	From time.Time           // inclusive; zero means no lower bound
	To   time.Time           // inclusive; zero means no upper bound
	Type string              // "", "TRANSITION", "CONFIGURE", "FAULT", "DOOR_PRESENCE"
	Door models.DoorIdentity // "" matches both doors
}

// Normalize moves the bounds to UTC and canonicalises type and door, then
// rejects reversed ranges and unknown values.
func (f LogFilter) Normalize() (LogFilter, error) {
	f.From = utc(f.From)
	f.To = utc(f.To)
	f.Type = strings.ToUpper(strings.TrimSpace(f.Type))
	f.Door = models.DoorIdentity(strings.ToLower(strings.TrimSpace(string(f.Door))))

	switch {
	case !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To):
		return f, fmt.Errorf("%w: 'from' must be <= 'to'", ErrInvalidFilter)
	case f.Type != "" && !eventTypes[f.Type]:
		return f, fmt.Errorf("%w: unknown event type %q", ErrInvalidFilter, f.Type)
	case f.Door != "" && f.Door != models.LeftDoor && f.Door != models.RightDoor:
		return f, fmt.Errorf("%w: unknown door %q", ErrInvalidFilter, f.Door)
	}
	return f, nil
}

func utc(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
