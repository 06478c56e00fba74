package service

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"power_windows/internal/broadcast"
	"power_windows/internal/logger"
	"power_windows/internal/metrics"
	"power_windows/internal/models"
)

// Reasons a supervisor stops a motion.
const (
	ReasonOverload   = "overload"
	ReasonTimeout    = "timeout"
	ReasonDebugDwell = "debug_dwell"
)

// DebugDwell is how long a fully motion runs in debug mode before it is auto-finished.
const DebugDwell = 4000 * time.Millisecond

var errNotMotionCommand = errors.New("not a motion command")

// DoorOptions configures a DoorService.
type DoorOptions struct {
	Identity models.DoorIdentity
	Config   models.DoorConfig
	// Debug replaces current-based overload detection with a fixed dwell in fully states.
	Debug   bool
	Now     func() time.Time
	Breaker *FaultBreaker
	// Events receives one TRANSITION event per state change. Optional.
	Events  *broadcast.Broadcaster[models.MotionEvent]
	Metrics *metrics.Metrics
	Log     *logger.Logger
}

// DoorService is the per-door record: MotionState, LastHandleTime and DoorConfig
// behind one lock. Commands and supervisor ticks both go through it.
type DoorService struct {
	mu        sync.Mutex
	identity  models.DoorIdentity
	motion    *MotionController
	config    models.DoorConfig
	debug     bool
	enteredAt time.Time

	now     func() time.Time
	breaker *FaultBreaker
	events  *broadcast.Broadcaster[models.MotionEvent]
	metrics *metrics.Metrics
	log     *logger.Logger
}

func NewDoorService(relay Relay, opts DoorOptions) *DoorService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log == nil {
		opts.Log = logger.NewNop()
	}
	s := &DoorService{
		identity:  opts.Identity,
		motion:    NewMotionController(relay, opts.Now),
		config:    opts.Config,
		debug:     opts.Debug,
		enteredAt: opts.Now(),
		now:       opts.Now,
		breaker:   opts.Breaker,
		events:    opts.Events,
		metrics:   opts.Metrics,
		log:       opts.Log,
	}
	// The relays may have been left on by a previous run; the state starts Idle.
	if err := s.motion.Release(); err != nil {
		s.log.Errorw("door_startup_release_failed", "door", s.identity, "error", err)
	}
	s.metrics.MotionState(s.identity, models.StateIdle)
	return s
}

func (s *DoorService) Identity() models.DoorIdentity { return s.identity }

// Apply executes a motion command.
func (s *DoorService) Apply(cmd models.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.motion.State()
	var err error
	switch cmd.Kind {
	case models.CommandStop:
		err = s.motion.Stop()
	case models.CommandOpenContinuous:
		err = s.motion.StartOpening(true)
	case models.CommandCloseContinuous:
		err = s.motion.StartClosing(true)
	case models.CommandOpenFully:
		err = s.motion.StartOpening(false)
	case models.CommandCloseFully:
		err = s.motion.StartClosing(false)
	default:
		return fmt.Errorf("%w: %s", errNotMotionCommand, cmd.Kind)
	}
	s.transitioned(prev, cmd.Kind.String())
	if err != nil {
		s.metrics.CommandApplied(cmd.Kind, "error")
		return fmt.Errorf("apply %s: %w", cmd.Kind, err)
	}
	s.metrics.CommandApplied(cmd.Kind, "ok")
	return nil
}

// Release forces both relays off and the door to Idle, whatever its state.
func (s *DoorService) Release(cause string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.motion.State()
	err := s.motion.Release()
	s.transitioned(prev, cause)
	if err != nil {
		return fmt.Errorf("release relays: %w", err)
	}
	return nil
}

// Supervise runs one tick of overload and continuous-timeout supervision.
func (s *DoorService) Supervise() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	st := s.motion.State()

	cur, readErr := s.motion.ReadCurrent()
	if readErr != nil {
		readErr = fmt.Errorf("read current: %w", readErr)
	}

	switch {
	case s.debug:
		if readErr == nil {
			s.log.Debugw("door_current", "state", st, "opening", cur.Opening, "closing", cur.Closing)
		}
		if st.IsFully() && now.Sub(s.enteredAt) >= DebugDwell {
			return errors.Join(readErr, s.interrupt(st, ReasonDebugDwell))
		}
	case readErr == nil && st.IsMoving():
		if st.IsOpening() && cur.Opening > uint32(s.config.OpeningCurrentThreshold) {
			s.log.Infow("door_overload", "direction", "opening", "current", cur.Opening,
				"threshold", s.config.OpeningCurrentThreshold)
			return s.interrupt(st, ReasonOverload)
		}
		if st.IsClosing() && cur.Closing > uint32(s.config.ClosingCurrentThreshold) {
			s.log.Infow("door_overload", "direction", "closing", "current", cur.Closing,
				"threshold", s.config.ClosingCurrentThreshold)
			return s.interrupt(st, ReasonOverload)
		}
	}

	if st.IsContinuous() && now.Sub(s.motion.LastHandleTime()) >= s.config.HandleTimeThreshold() {
		err := s.motion.Stop()
		if err == nil {
			s.metrics.Interrupt(ReasonTimeout)
		}
		s.transitioned(st, ReasonTimeout)
		if err != nil {
			return errors.Join(readErr, fmt.Errorf("timeout stop: %w", err))
		}
	}
	return readErr
}

func (s *DoorService) interrupt(st models.MotionState, reason string) error {
	var err error
	if st.IsOpening() {
		err = s.motion.InterruptOpening()
	} else {
		err = s.motion.InterruptClosing()
	}
	if err == nil {
		s.metrics.Interrupt(reason)
	}
	s.transitioned(st, reason)
	return err
}

// transitioned records a state change. Callers hold s.mu.
func (s *DoorService) transitioned(prev models.MotionState, cause string) {
	cur := s.motion.State()
	if cur == prev {
		return
	}
	now := s.now()
	s.enteredAt = now
	s.metrics.MotionState(s.identity, cur)
	s.log.Infow("door_transition", "from", prev.String(), "to", cur.String(), "cause", cause)
	if s.events == nil {
		return
	}
	s.events.Publish(models.MotionEvent{
		OccurredAt:  now,
		Door:        s.identity,
		Type:        models.EventTransition,
		Description: fmt.Sprintf("%s -> %s", prev, cur),
		Metadata: map[string]any{
			"from":  prev.String(),
			"to":    cur.String(),
			"cause": cause,
		},
	})
}

// SetConfig replaces the active thresholds; the next tick uses them.
func (s *DoorService) SetConfig(cfg models.DoorConfig) {
	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()
}

func (s *DoorService) Config() models.DoorConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

func (s *DoorService) State() models.MotionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.motion.State()
}

// Snapshot is the diagnostic view served by the door's read endpoints.
func (s *DoorService) Snapshot() models.DoorSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	var faults uint32
	if s.breaker != nil {
		faults = s.breaker.Count()
	}
	return models.DoorSnapshot{
		Identity:       s.identity,
		State:          s.motion.State(),
		LastHandleTime: s.motion.LastHandleTime(),
		Config:         s.config,
		Active:         s.motion.Energized(),
		FaultCount:     faults,
		Debug:          s.debug,
		UpdatedAt:      s.now().UTC(),
	}
}
