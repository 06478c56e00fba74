package models

// MotionState is the per-door motion state machine position.
type MotionState uint8

const (
	StateIdle MotionState = iota
	StateOpeningContinuous
	StateOpeningFully
	StateOpeningInterrupted
	StateOpeningFinished
	StateClosingContinuous
	StateClosingFully
	StateClosingInterrupted
	StateClosingFinished
)

var motionStateNames = [...]string{
	StateIdle:               "IDLE",
	StateOpeningContinuous:  "OPENING_CONTINUOUS",
	StateOpeningFully:       "OPENING_FULLY",
	StateOpeningInterrupted: "OPENING_INTERRUPTED",
	StateOpeningFinished:    "OPENING_FINISHED",
	StateClosingContinuous:  "CLOSING_CONTINUOUS",
	StateClosingFully:       "CLOSING_FULLY",
	StateClosingInterrupted: "CLOSING_INTERRUPTED",
	StateClosingFinished:    "CLOSING_FINISHED",
}

// AllMotionStates lists every state in declaration order.
func AllMotionStates() []MotionState {
	out := make([]MotionState, len(motionStateNames))
	for i := range motionStateNames {
		out[i] = MotionState(i)
	}
	return out
}

func (s MotionState) String() string {
	if int(s) < len(motionStateNames) {
		return motionStateNames[s]
	}
	return "UNKNOWN"
}

// MarshalText renders the state by name in JSON payloads.
func (s MotionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name produced by MarshalText.
func (s *MotionState) UnmarshalText(text []byte) error {
	for i, name := range motionStateNames {
		if name == string(text) {
			*s = MotionState(i)
			return nil
		}
	}
	return &UnknownNameError{Kind: "motion state", Name: string(text)}
}

// IsOpening reports whether the state belongs to the opening family.
func (s MotionState) IsOpening() bool {
	switch s {
	case StateOpeningContinuous, StateOpeningFully, StateOpeningInterrupted, StateOpeningFinished:
		return true
	}
	return false
}

// IsClosing reports whether the state belongs to the closing family.
func (s MotionState) IsClosing() bool {
	switch s {
	case StateClosingContinuous, StateClosingFully, StateClosingInterrupted, StateClosingFinished:
		return true
	}
	return false
}

// IsMoving reports whether a relay is energized in this state.
func (s MotionState) IsMoving() bool {
	switch s {
	case StateOpeningContinuous, StateOpeningFully, StateClosingContinuous, StateClosingFully:
		return true
	}
	return false
}

// IsContinuous reports whether the state is subject to the inactivity timeout.
func (s MotionState) IsContinuous() bool {
	return s == StateOpeningContinuous || s == StateClosingContinuous
}

// IsFully reports whether the state runs to completion.
func (s MotionState) IsFully() bool {
	return s == StateOpeningFully || s == StateClosingFully
}
