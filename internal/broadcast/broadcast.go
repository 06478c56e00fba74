// Package broadcast is a bounded multi-consumer queue. Producers never block:
// a subscriber that falls behind loses its oldest messages and is told how
// many on its next receive.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned once the broadcaster is closed and the subscription drained.
var ErrClosed = errors.New("broadcast channel closed")

// LaggedError reports messages dropped for a slow subscriber since its last receive.
type LaggedError struct {
	Count uint64
}

func (e *LaggedError) Error() string {
	return fmt.Sprintf("subscriber lagged by %d messages", e.Count)
}

// Broadcaster fans every published value out to all current subscribers.
type Broadcaster[T any] struct {
	mu       sync.Mutex
	capacity int
	subs     map[*Subscription[T]]struct{}
	closed   bool
}

// New returns a broadcaster whose subscribers buffer up to capacity values.
func New[T any](capacity int) *Broadcaster[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Broadcaster[T]{
		capacity: capacity,
		subs:     make(map[*Subscription[T]]struct{}),
	}
}

// Subscribe registers a new consumer. Values published before the call are not seen.
func (b *Broadcaster[T]) Subscribe() *Subscription[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := &Subscription[T]{ch: make(chan T, b.capacity), parent: b}
	if b.closed {
		close(s.ch)
		return s
	}
	b.subs[s] = struct{}{}
	return s
}

// Publish delivers v to every subscriber and returns how many received it.
// A full subscriber drops its oldest buffered value to make room.
func (b *Broadcaster[T]) Publish(v T) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0
	}
	for s := range b.subs {
		select {
		case s.ch <- v:
			continue
		default:
		}
		// Only publishers write, and they hold b.mu, so one pop always frees a slot.
		select {
		case <-s.ch:
			s.dropped.Add(1)
		default:
		}
		select {
		case s.ch <- v:
		default:
			s.dropped.Add(1)
		}
	}
	return len(b.subs)
}

// Subscribers returns the current subscriber count.
func (b *Broadcaster[T]) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close ends the stream; subscribers drain what is buffered, then get ErrClosed.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for s := range b.subs {
		close(s.ch)
		delete(b.subs, s)
	}
}

func (b *Broadcaster[T]) remove(s *Subscription[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[s]; ok {
		delete(b.subs, s)
		close(s.ch)
	}
}

// Subscription is one consumer's view of a Broadcaster.
type Subscription[T any] struct {
	ch      chan T
	dropped atomic.Uint64
	parent  *Broadcaster[T]
}

// Recv blocks for the next value. It returns *LaggedError first if values were
// dropped since the previous call; the caller should log and call Recv again.
func (s *Subscription[T]) Recv(ctx context.Context) (T, error) {
	var zero T
	if n := s.dropped.Swap(0); n > 0 {
		return zero, &LaggedError{Count: n}
	}
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case v, ok := <-s.ch:
		if !ok {
			return zero, ErrClosed
		}
		return v, nil
	}
}

// Unsubscribe detaches the subscription; further Recv calls return ErrClosed.
func (s *Subscription[T]) Unsubscribe() {
	s.parent.remove(s)
}
