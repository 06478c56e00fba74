package service

import (
	"context"
	"time"

	"power_windows/internal/broadcast"
	"power_windows/internal/logger"
	"power_windows/internal/metrics"
	"power_windows/internal/models"
	"power_windows/internal/repository"

	"github.com/google/uuid"
)

// EventSink receives every recorded event after it is stored, e.g. a Kafka topic.
type EventSink interface {
	Publish(ctx context.Context, e models.MotionEvent) error
}

// EventRecorder stores motion events published on a broadcast and forwards
// them to optional sinks. Failures are logged; they never reach the breaker.
type EventRecorder struct {
	repo    repository.EventRepo
	sinks   []EventSink
	halt    Halt
	metrics *metrics.Metrics
	log     *logger.Logger
}

func NewEventRecorder(repo repository.EventRepo, halt Halt, m *metrics.Metrics, log *logger.Logger, sinks ...EventSink) *EventRecorder {
	return &EventRecorder{repo: repo, sinks: sinks, halt: halt, metrics: m, log: log}
}

// Run records events from sub until ctx ends.
func (r *EventRecorder) Run(ctx context.Context, sub *broadcast.Subscription[models.MotionEvent]) error {
	return consume(ctx, sub, consumer{
		name:    "event_recorder",
		log:     r.log,
		metrics: r.metrics,
		halt:    r.halt,
	}, func(e models.MotionEvent) { r.Record(ctx, e) })
}

func (r *EventRecorder) Record(ctx context.Context, e models.MotionEvent) {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	if err := r.repo.Append(ctx, e); err != nil {
		r.log.Warnw("event_append_failed", "type", e.Type, "error", err)
	}
	for _, s := range r.sinks {
		if err := s.Publish(ctx, e); err != nil {
			r.log.Warnw("event_sink_failed", "type", e.Type, "error", err)
		}
	}
}
