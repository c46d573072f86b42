package realtime

import (
	"errors"
	"testing"
)

func TestAttempt_AcceptedPath(t *testing.T) {
	a := NewAttempt("/ws/delivery-orders")
	for _, s := range []AttemptState{AttemptAuthenticating, AttemptAccepted, AttemptOpen, AttemptClosed} {
		if err := a.Transition(s); err != nil {
			t.Fatalf("Transition(%s): %v", s, err)
		}
	}
	if a.State() != AttemptClosed {
		t.Errorf("State = %s, want closed", a.State())
	}
}

func TestAttempt_RejectedIsTerminal(t *testing.T) {
	a := NewAttempt("/ws/driver-location")
	_ = a.Transition(AttemptAuthenticating)
	if err := a.Transition(AttemptRejected); err != nil {
		t.Fatalf("Transition(rejected): %v", err)
	}
	for _, s := range []AttemptState{AttemptOpen, AttemptClosed, AttemptAuthenticating, AttemptAccepted} {
		if err := a.Transition(s); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("Transition(%s) from rejected err = %v, want ErrInvalidTransition", s, err)
		}
	}
}

func TestAttempt_InvalidTransitions(t *testing.T) {
	testCases := []struct {
		name string
		path []AttemptState
		next AttemptState
	}{
		{"skip authentication", nil, AttemptAccepted},
		{"authenticate twice", []AttemptState{AttemptAuthenticating}, AttemptAuthenticating},
		{"open before accept", []AttemptState{AttemptAuthenticating}, AttemptOpen},
		{"reject after accept", []AttemptState{AttemptAuthenticating, AttemptAccepted}, AttemptRejected},
		{"reopen closed", []AttemptState{AttemptAuthenticating, AttemptAccepted, AttemptClosed}, AttemptOpen},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := NewAttempt("/ws/x")
			for _, s := range tc.path {
				if err := a.Transition(s); err != nil {
					t.Fatalf("setup Transition(%s): %v", s, err)
				}
			}
			before := a.State()
			if err := a.Transition(tc.next); !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("err = %v, want ErrInvalidTransition", err)
			}
			if a.State() != before {
				t.Errorf("state changed to %s on refused transition", a.State())
			}
		})
	}
}
