package audio

import "testing"

func TestLegalTransitions(t *testing.T) {
	legal := []struct{ from, to State }{
		{StateIdle, StateRecording},
		{StateRecording, StateIdle},
		{StateRecording, StateDeviceLost},
		{StateDeviceLost, StateRecovering},
		{StateError, StateRecovering},
		{StateRecovering, StateIdle},
		{StateRecovering, StateError},
	}
	for _, c := range legal {
		if !CanTransition(c.from, c.to) {
			t.Errorf("CanTransition(%s, %s) = false; want true", c.from, c.to)
		}
	}
}

func TestIllegalTransitions(t *testing.T) {
	illegal := []struct{ from, to State }{
		{StateRecovering, StateRecording}, // recovery never re-enters Recording
		{StateIdle, StateDeviceLost},
		{StateIdle, StateError},
		{StateDeviceLost, StateIdle},
		{StateDeviceLost, StateRecording},
		{StateError, StateIdle},
		{StateError, StateRecording},
		{StateRecording, StateRecovering},
	}
	for _, c := range illegal {
		if CanTransition(c.from, c.to) {
			t.Errorf("CanTransition(%s, %s) = true; want false", c.from, c.to)
		}
	}
}

func TestTransitionToRejectsIllegalEdge(t *testing.T) {
	s := NewAtomicState()
	if err := s.TransitionTo(StateDeviceLost); err == nil {
		t.Error("Idle -> DeviceLost should be rejected")
	}
	if got := s.Load(); got != StateIdle {
		t.Errorf("state after rejected transition = %s; want Idle", got)
	}

	if err := s.TransitionTo(StateRecording); err != nil {
		t.Fatalf("Idle -> Recording: %v", err)
	}
	if got := s.Load(); got != StateRecording {
		t.Errorf("state = %s; want Recording", got)
	}
}

func TestForeignByteDecodesToError(t *testing.T) {
	s := NewAtomicState()
	s.v.Store(250)
	if got := s.Load(); got != StateError {
		t.Errorf("Load of foreign byte = %s; want Error", got)
	}
}

func TestStateStrings(t *testing.T) {
	want := map[State]string{
		StateIdle:       "Idle",
		StateRecording:  "Recording",
		StateDeviceLost: "DeviceLost",
		StateRecovering: "Recovering",
		StateError:      "Error",
		State(99):       "Error",
	}
	for s, name := range want {
		if s.String() != name {
			t.Errorf("State(%d).String() = %q; want %q", s, s.String(), name)
		}
	}
}
