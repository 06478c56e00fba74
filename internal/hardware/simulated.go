package hardware

import (
	"sync"
	"time"
)

// Simulated is an in-memory board. Sense readings are set explicitly or derived
// from a simple motor model that stalls after a fixed travel time.
type Simulated struct {
	mu sync.Mutex

	pins        map[Pin]bool
	energizedAt map[Pin]time.Time
	millivolts  map[Channel]uint16
	writes      []PinWrite

	writeErr      error
	energizeErr   error
	readErr       error
	bothEnergized bool

	travel  time.Duration
	stallMV uint16
	now     func() time.Time
}

// PinWrite records one SetPin call.
type PinWrite struct {
	Pin  Pin
	High bool
}

// NewSimulated returns a board with every pin low and every channel at 0 mV.
func NewSimulated() *Simulated {
	return &Simulated{
		pins:        make(map[Pin]bool),
		energizedAt: make(map[Pin]time.Time),
		millivolts:  make(map[Channel]uint16),
		now:         time.Now,
	}
}

// SetMotor enables the stall model.
func (s *Simulated) SetMotor(travel time.Duration, stallMV uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.travel = travel
	s.stallMV = stallMV
}

func (s *Simulated) SetPin(pin Pin, high bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeErr != nil {
		return s.writeErr
	}
	if high && s.energizeErr != nil {
		return s.energizeErr
	}
	if high && !s.pins[pin] {
		s.energizedAt[pin] = s.now()
	}
	s.pins[pin] = high
	s.writes = append(s.writes, PinWrite{Pin: pin, High: high})
	if s.pins[PinOpenRelay] && s.pins[PinCloseRelay] {
		s.bothEnergized = true
	}
	return nil
}

func (s *Simulated) ReadMillivolts(ch Channel) (uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.readErr != nil {
		return 0, s.readErr
	}
	if s.travel > 0 {
		if pin, ok := senseRelay(ch); ok && s.pins[pin] && s.now().Sub(s.energizedAt[pin]) >= s.travel {
			return s.stallMV, nil
		}
	}
	return s.millivolts[ch], nil
}

func senseRelay(ch Channel) (Pin, bool) {
	switch ch {
	case ChannelOpeningSense:
		return PinOpenRelay, true
	case ChannelClosingSense:
		return PinCloseRelay, true
	}
	return 0, false
}

// SetMillivolts fixes the reading of ch.
func (s *Simulated) SetMillivolts(ch Channel, mv uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.millivolts[ch] = mv
}

// FailWrites makes every SetPin return err until called with nil.
func (s *Simulated) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// FailEnergize makes every SetPin(pin, true) return err until called with nil.
// Releases still succeed.
func (s *Simulated) FailEnergize(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.energizeErr = err
}

// FailReads makes every ReadMillivolts return err until called with nil.
func (s *Simulated) FailReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readErr = err
}

// Pin reports the level of pin.
func (s *Simulated) Pin(pin Pin) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pins[pin]
}

// Writes returns a copy of every SetPin call so far.
func (s *Simulated) Writes() []PinWrite {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PinWrite(nil), s.writes...)
}

// EverBothEnergized reports whether both relays were ever high at once.
func (s *Simulated) EverBothEnergized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bothEnergized
}

func (s *Simulated) Close() error { return nil }
