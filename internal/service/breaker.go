package service

import (
	"sync/atomic"

	"power_windows/internal/logger"
	"power_windows/internal/metrics"
)

// FaultThreshold is the number of faults a door node tolerates; the next one halts it.
const FaultThreshold = 3

// Halt terminates the node. Production halts exit the process.
type Halt func(reason string, err error)

// LogHalt returns a Halt that logs at fatal level, which exits the process.
func LogHalt(log *logger.Logger) Halt {
	return func(reason string, err error) {
		log.Fatalw("node_halt", "reason", reason, "error", err)
	}
}

// FaultBreaker counts faults for the lifetime of the process and halts the node
// once the count exceeds its threshold. Successes never reset the count.
type FaultBreaker struct {
	count     atomic.Uint32
	threshold uint32
	halt      Halt
	// beforeHalt runs ahead of halt when the breaker trips. Set before use.
	beforeHalt func()
	log        *logger.Logger
	metrics    *metrics.Metrics
}

func NewFaultBreaker(threshold uint32, halt Halt, log *logger.Logger, m *metrics.Metrics) *FaultBreaker {
	return &FaultBreaker{threshold: threshold, halt: halt, log: log, metrics: m}
}

// Record counts err and halts when the threshold is exceeded. It returns the new count.
func (b *FaultBreaker) Record(err error) uint32 {
	n := b.count.Add(1)
	b.metrics.Fault()
	b.log.Errorw("door_fault", "error", err, "count", n, "threshold", b.threshold)
	if n > b.threshold {
		if b.beforeHalt != nil {
			b.beforeHalt()
		}
		b.halt("fault threshold exceeded", err)
	}
	return n
}

// BeforeHalt registers fn to run when the breaker trips, ahead of the halt.
// It must be called before the breaker is shared between goroutines.
func (b *FaultBreaker) BeforeHalt(fn func()) { b.beforeHalt = fn }

func (b *FaultBreaker) Count() uint32 { return b.count.Load() }
