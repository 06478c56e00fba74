package service

import (
	"errors"
	"fmt"
	"time"

	"power_windows/internal/hardware"
	"power_windows/internal/models"
)

// ErrInvalidTransition is an interrupt requested from a state that cannot be interrupted.
// It means the state machine is corrupted and the node must halt.
var ErrInvalidTransition = errors.New("invalid motion transition")

// Relay is the actuator side of a door, implemented by hardware.RelayDriver.
type Relay interface {
	StartOpening() error
	StartClosing() error
	Interrupt() error
	ReadCurrent() (hardware.Current, error)
	Direction() hardware.Direction
}

// MotionController owns the MotionState of one door and drives its relay pair.
// It is not safe for concurrent use; DoorService serialises access.
type MotionController struct {
	state      models.MotionState
	lastHandle time.Time
	relay      Relay
	now        func() time.Time
}

func NewMotionController(relay Relay, now func() time.Time) *MotionController {
	if now == nil {
		now = time.Now
	}
	return &MotionController{state: models.StateIdle, relay: relay, now: now}
}

func (m *MotionController) State() models.MotionState { return m.state }

// LastHandleTime is the time of the last accepted opening or closing command.
func (m *MotionController) LastHandleTime() time.Time { return m.lastHandle }

// Energized reports whether either relay is on.
func (m *MotionController) Energized() bool {
	return m.relay.Direction() != hardware.DirectionNone
}

// StartOpening handles open-continuous (continuous=true) and open-fully.
func (m *MotionController) StartOpening(continuous bool) error {
	return m.start(continuous, direction{
		continuous:  models.StateOpeningContinuous,
		fully:       models.StateOpeningFully,
		interrupted: models.StateOpeningInterrupted,
		finished:    models.StateOpeningFinished,
		energize:    m.relay.StartOpening,
	})
}

// StartClosing handles close-continuous (continuous=true) and close-fully.
func (m *MotionController) StartClosing(continuous bool) error {
	return m.start(continuous, direction{
		continuous:  models.StateClosingContinuous,
		fully:       models.StateClosingFully,
		interrupted: models.StateClosingInterrupted,
		finished:    models.StateClosingFinished,
		energize:    m.relay.StartClosing,
	})
}

type direction struct {
	continuous, fully, interrupted, finished models.MotionState
	energize                                 func() error
}

func (m *MotionController) start(continuous bool, d direction) error {
	m.lastHandle = m.now()

	switch m.state {
	case d.continuous:
		// Re-asserting continuous only slides the timeout; fully upgrades in place.
		if !continuous {
			m.state = d.fully
		}
		return nil
	case d.fully, d.finished, d.interrupted:
		return nil
	}

	target := d.fully
	if continuous {
		target = d.continuous
	}
	if err := d.energize(); err != nil {
		// The relay pair is in an unknown position; release both.
		if relErr := m.Release(); relErr != nil {
			// A relay may still be on. Stay in the motion state so the
			// supervisors keep watching current and timeout.
			m.state = target
			return errors.Join(err, relErr)
		}
		return err
	}
	m.state = target
	return nil
}

// InterruptOpening stops an opening motion after an overload.
// OpeningContinuous becomes OpeningInterrupted, OpeningFully becomes OpeningFinished.
func (m *MotionController) InterruptOpening() error {
	switch m.state {
	case models.StateOpeningContinuous:
		return m.interrupt(models.StateOpeningInterrupted)
	case models.StateOpeningFully:
		return m.interrupt(models.StateOpeningFinished)
	}
	from := m.state
	_ = m.Release()
	return fmt.Errorf("%w: interrupt opening from %s", ErrInvalidTransition, from)
}

// InterruptClosing stops a closing motion after an overload.
func (m *MotionController) InterruptClosing() error {
	switch m.state {
	case models.StateClosingContinuous:
		return m.interrupt(models.StateClosingInterrupted)
	case models.StateClosingFully:
		return m.interrupt(models.StateClosingFinished)
	}
	from := m.state
	_ = m.Release()
	return fmt.Errorf("%w: interrupt closing from %s", ErrInvalidTransition, from)
}

// Release de-energizes both relays regardless of state. The state becomes Idle
// only once the relays are confirmed off.
func (m *MotionController) Release() error {
	if err := m.relay.Interrupt(); err != nil {
		return err
	}
	m.state = models.StateIdle
	return nil
}

func (m *MotionController) interrupt(next models.MotionState) error {
	if err := m.relay.Interrupt(); err != nil {
		return err
	}
	m.state = next
	return nil
}

// Stop is a soft stop. It is ignored while a fully motion runs.
func (m *MotionController) Stop() error {
	if m.state.IsFully() {
		return nil
	}
	if err := m.relay.Interrupt(); err != nil {
		return err
	}
	m.state = models.StateIdle
	return nil
}

func (m *MotionController) ReadCurrent() (hardware.Current, error) {
	return m.relay.ReadCurrent()
}
