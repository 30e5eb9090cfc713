package audio

import (
	"sync/atomic"

	"github.com/localcue/dictate/internal/apperr"
)

// State is one of the five audio lifecycle states. Values outside 0-4 are
// never produced by this package but are defended against on load (any
// foreign byte decodes to StateError).
type State uint8

const (
	StateIdle State = iota
	StateRecording
	StateDeviceLost
	StateRecovering
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRecording:
		return "Recording"
	case StateDeviceLost:
		return "DeviceLost"
	case StateRecovering:
		return "Recovering"
	case StateError:
		return "Error"
	default:
		return "Error"
	}
}

// legalEdges enumerates every allowed transition in the state machine.
// Recovering never transitions back to Recording — recovery always lands
// on Idle; the user must explicitly restart recording.
var legalEdges = map[State]map[State]bool{
	StateIdle:       {StateRecording: true},
	StateRecording:  {StateIdle: true, StateDeviceLost: true},
	StateDeviceLost: {StateRecovering: true},
	StateRecovering: {StateIdle: true, StateError: true},
	StateError:      {StateRecovering: true},
}

// CanTransition reports whether from->to is a legal edge in the table above.
func CanTransition(from, to State) bool {
	return legalEdges[from][to]
}

// AtomicState is a five-state machine readable and writable from any
// goroutine without locking. TransitionTo validates edges and returns
// *apperr.AudioStateTransitionError on an illegal one; hot-path callers
// that have already checked CanTransition use Store directly, keeping the
// callback path allocation-free.
type AtomicState struct {
	v atomic.Uint32
}

// NewAtomicState creates a state machine starting at Idle.
func NewAtomicState() *AtomicState {
	s := &AtomicState{}
	s.v.Store(uint32(StateIdle))
	return s
}

// Load reads the current state with acquire semantics (Go's atomic.Uint32
// already provides sequential consistency, satisfying the acquire/release
// requirement). Any value outside the five defined states decodes to
// StateError defensively.
func (s *AtomicState) Load() State {
	v := s.v.Load()
	if v > uint32(StateError) {
		return StateError
	}
	return State(v)
}

// Store writes the new state unconditionally. Callers must have already
// validated the transition with CanTransition; Store itself does not
// re-validate so that state-machine tests can also exercise illegal writes
// directly when probing defensive decoding.
func (s *AtomicState) Store(to State) {
	s.v.Store(uint32(to))
}

// TransitionTo attempts to move from the current state to `to`. It returns
// an error, and leaves the state unchanged, if the edge is illegal.
func (s *AtomicState) TransitionTo(to State) error {
	from := s.Load()
	if !CanTransition(from, to) {
		return &apperr.AudioStateTransitionError{From: from.String(), To: to.String()}
	}
	s.Store(to)
	return nil
}
