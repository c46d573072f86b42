package realtime

import (
	"errors"
	"fmt"
	"sync"
)

// AttemptState is the lifecycle state of one upgrade attempt.
type AttemptState int

const (
	AttemptReceived AttemptState = iota
	AttemptAuthenticating
	AttemptAccepted
	AttemptOpen
	AttemptRejected
	AttemptClosed
)

func (s AttemptState) String() string {
	switch s {
	case AttemptReceived:
		return "received"
	case AttemptAuthenticating:
		return "authenticating"
	case AttemptAccepted:
		return "accepted"
	case AttemptOpen:
		return "open"
	case AttemptRejected:
		return "rejected"
	case AttemptClosed:
		return "closed"
	default:
		return fmt.Sprintf("AttemptState(%d)", int(s))
	}
}

// ErrInvalidTransition is returned when an attempt is moved to a state it cannot reach.
var ErrInvalidTransition = errors.New("realtime: invalid attempt transition")

var attemptTransitions = map[AttemptState][]AttemptState{
	AttemptReceived:       {AttemptAuthenticating},
	AttemptAuthenticating: {AttemptAccepted, AttemptRejected},
	AttemptAccepted:       {AttemptOpen, AttemptClosed},
	AttemptOpen:           {AttemptClosed},
}

// Attempt tracks one upgrade request from receipt to close. Authentication runs exactly once.
type Attempt struct {
	Path string

	mu    sync.Mutex
	state AttemptState
}

// NewAttempt returns an attempt in the Received state.
func NewAttempt(path string) *Attempt {
	return &Attempt{Path: path, state: AttemptReceived}
}

// State returns the current state.
func (a *Attempt) State() AttemptState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Transition moves the attempt to next, or returns ErrInvalidTransition leaving the state unchanged.
func (a *Attempt) Transition(next AttemptState) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range attemptTransitions[a.state] {
		if s == next {
			a.state = next
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.state, next)
}
