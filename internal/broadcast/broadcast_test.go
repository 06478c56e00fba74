package broadcast

import (
	"context"
	"errors"
	"testing"
	"time"
)

func recvCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestPublish_FansOutToAllSubscribers(t *testing.T) {
	b := New[int](4)
	s1 := b.Subscribe()
	s2 := b.Subscribe()

	if n := b.Publish(7); n != 2 {
		t.Fatalf("expected 2 receivers, got %d", n)
	}
	for i, s := range []*Subscription[int]{s1, s2} {
		v, err := s.Recv(recvCtx(t))
		if err != nil || v != 7 {
			t.Fatalf("sub %d: got %d, %v", i, v, err)
		}
	}
}

func TestPublish_NoSubscribersIsNotAnError(t *testing.T) {
	b := New[string](1)
	if n := b.Publish("x"); n != 0 {
		t.Fatalf("expected 0 receivers, got %d", n)
	}
}

func TestSlowSubscriber_ObservesLagThenResumes(t *testing.T) {
	b := New[int](2)
	s := b.Subscribe()

	for i := 1; i <= 5; i++ {
		b.Publish(i) // never blocks
	}

	_, err := s.Recv(recvCtx(t))
	var lag *LaggedError
	if !errors.As(err, &lag) {
		t.Fatalf("expected LaggedError, got %v", err)
	}
	if lag.Count != 3 {
		t.Fatalf("expected 3 dropped, got %d", lag.Count)
	}

	// Resumes from the oldest value still buffered.
	for _, want := range []int{4, 5} {
		v, err := s.Recv(recvCtx(t))
		if err != nil || v != want {
			t.Fatalf("got %d, %v; want %d", v, err, want)
		}
	}
}

func TestClose_DrainsThenReportsClosed(t *testing.T) {
	b := New[int](2)
	s := b.Subscribe()
	b.Publish(1)
	b.Close()

	if v, err := s.Recv(recvCtx(t)); err != nil || v != 1 {
		t.Fatalf("expected buffered 1, got %d, %v", v, err)
	}
	if _, err := s.Recv(recvCtx(t)); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if n := b.Publish(2); n != 0 {
		t.Fatalf("publish after close delivered to %d", n)
	}
	late := b.Subscribe()
	if _, err := late.Recv(recvCtx(t)); !errors.Is(err, ErrClosed) {
		t.Fatalf("late subscriber: expected ErrClosed, got %v", err)
	}
}

func TestRecv_HonoursContext(t *testing.T) {
	b := New[int](1)
	s := b.Subscribe()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Recv(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New[int](1)
	s := b.Subscribe()
	s.Unsubscribe()
	s.Unsubscribe()
	if b.Subscribers() != 0 {
		t.Fatalf("expected no subscribers")
	}
	if _, err := s.Recv(recvCtx(t)); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
