package translit

import (
	"errors"
	"fmt"
)

// CaseState is a step in running one case.
type CaseState int

const (
	StateIdle CaseState = iota
	StateReset
	StateInputSubmitted
	StatePartialObserved
	StateAwaitingSettle
	StateSettled
	StateCompared
	StatePassed
	StateFailed
	StateTimedOut
	StateStaleState
)

var caseStateNames = map[CaseState]string{ //nolint:gochecknoglobals
	StateIdle:            "Idle",
	StateReset:           "Reset",
	StateInputSubmitted:  "InputSubmitted",
	StatePartialObserved: "PartialObserved",
	StateAwaitingSettle:  "AwaitingSettle",
	StateSettled:         "Settled",
	StateCompared:        "Compared",
	StatePassed:          "Passed",
	StateFailed:          "Failed",
	StateTimedOut:        "TimedOut",
	StateStaleState:      "StaleState",
}

func (s CaseState) String() string {
	if name, ok := caseStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("CaseState(%d)", int(s))
}

// IsTerminal is true for the states a case ends in.
func (s CaseState) IsTerminal() bool {
	switch s {
	case StatePassed, StateFailed, StateTimedOut, StateStaleState:
		return true
	}
	return false
}

// Failed is reachable from every non-terminal state, for errors from the page itself and for a
// case refused because another is running.
var caseTransitions = map[CaseState][]CaseState{ //nolint:gochecknoglobals
	StateIdle:            {StateReset, StateStaleState, StateFailed},
	StateReset:           {StateInputSubmitted, StateStaleState, StateTimedOut, StateFailed},
	StateInputSubmitted:  {StatePartialObserved, StateAwaitingSettle, StateTimedOut, StateFailed},
	StatePartialObserved: {StateInputSubmitted, StateTimedOut, StateFailed},
	StateAwaitingSettle:  {StateSettled, StateTimedOut, StateFailed},
	StateSettled:         {StateCompared, StateTimedOut, StateFailed},
	StateCompared:        {StatePassed, StateFailed},
}

// CanTransition reports whether a case may go from one state to the other.
func CanTransition(from, to CaseState) bool {
	for _, s := range caseTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// caseTracker records the path of one case through the state machine.
type caseTracker struct {
	state CaseState
	trail []CaseState
}

func newCaseTracker() *caseTracker {
	return &caseTracker{state: StateIdle, trail: []CaseState{StateIdle}}
}

// to moves to the next state. An illegal transition is a bug in this package, so it panics.
func (c *caseTracker) to(next CaseState) {
	if !CanTransition(c.state, next) {
		panic(fmt.Sprintf("illegal case state transition %s -> %s", c.state, next))
	}
	c.state = next
	c.trail = append(c.trail, next)
}

// fail moves to the terminal state that matches err.
func (c *caseTracker) fail(err error) {
	var timeout *TimeoutError
	var stale *StaleStateError
	switch {
	case errors.As(err, &stale):
		c.to(StateStaleState)
	case errors.As(err, &timeout):
		c.to(StateTimedOut)
	default:
		c.to(StateFailed)
	}
}
