package service

import (
	"context"
	"fmt"

	"power_windows/internal/models"
	"power_windows/internal/repository"
)

// EventLogService answers history queries over the motion events stored by
// EventRecorder. Both roles serve it: a door its own transitions, the hub the
// presence changes of both doors.
type EventLogService struct {
	events repository.EventRepo
}

func NewEventLogService(events repository.EventRepo) *EventLogService {
	return &EventLogService{events: events}
}

// List returns the events matching f. Time range and type are pushed down to
// the repository; the door is filtered here.
func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.MotionEvent, error) {
	f, err := f.Normalize()
	if err != nil {
		return nil, err
	}
	events, err := s.events.List(ctx, f.From, f.To, f.Type)
	if err != nil {
		return nil, fmt.Errorf("list motion events: %w", err)
	}
	if f.Door == "" {
		return events, nil
	}
	kept := make([]models.MotionEvent, 0, len(events))
	for _, e := range events {
		if e.Door == f.Door {
			kept = append(kept, e)
		}
	}
	return kept, nil
}
