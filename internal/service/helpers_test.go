package service

import (
	"sync"
	"testing"
	"time"

	"power_windows/internal/hardware"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type haltRecorder struct {
	mu      sync.Mutex
	reasons []string
	errs    []error
}

func (h *haltRecorder) Halt(reason string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reasons = append(h.reasons, reason)
	h.errs = append(h.errs, err)
}

func (h *haltRecorder) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.reasons)
}

func (h *haltRecorder) Reason(i int) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reasons[i]
}

// newBoard returns a simulated board behind a relay driver with no settle sleep.
func newBoard() (*hardware.Simulated, *hardware.RelayDriver) {
	board := hardware.NewSimulated()
	return board, hardware.NewRelayDriver(board, board, hardware.WithSleep(func(time.Duration) {}))
}

// eventually polls cond until it holds or the timeout elapses.
func eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}
