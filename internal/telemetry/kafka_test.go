package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"power_windows/internal/config"
	"power_windows/internal/models"

	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	msgs     []kafka.Message
	writeErr error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.writeErr != nil {
		return w.writeErr
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaSink_PublishKeyedByDoor(t *testing.T) {
	w := &fakeWriter{}
	s := newKafkaSink(w, "events", nil)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := s.Publish(context.Background(), models.MotionEvent{
		EventID:    "e-1",
		OccurredAt: at,
		Door:       models.RightDoor,
		Type:       models.EventTransition,
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("messages = %d", len(w.msgs))
	}
	m := w.msgs[0]
	if string(m.Key) != string(models.RightDoor) || !m.Time.Equal(at) {
		t.Fatalf("message = %+v", m)
	}
	if len(m.Headers) != 1 || string(m.Headers[0].Value) != models.EventTransition {
		t.Fatalf("headers = %+v", m.Headers)
	}
	var decoded models.MotionEvent
	if err := json.Unmarshal(m.Value, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.EventID != "e-1" {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func TestKafkaSink_WriteError(t *testing.T) {
	s := newKafkaSink(&fakeWriter{writeErr: errors.New("leader not available")}, "events", nil)
	if err := s.Publish(context.Background(), models.MotionEvent{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewKafkaSink_RequiresBrokers(t *testing.T) {
	if _, err := NewKafkaSink(config.Kafka{Topic: "events"}, nil); !errors.Is(err, errNoBrokers) {
		t.Fatalf("err = %v", err)
	}
	if _, err := NewKafkaSink(config.Kafka{Brokers: []string{"localhost:9092"}}, nil); err == nil {
		t.Fatal("expected topic error")
	}
}

func TestKafkaSink_Close(t *testing.T) {
	w := &fakeWriter{}
	if err := newKafkaSink(w, "events", nil).Close(); err != nil || !w.closed {
		t.Fatalf("close err=%v closed=%v", err, w.closed)
	}
}
