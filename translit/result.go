package translit

import (
	"time"
)

// ExecutionResult is the outcome of one case. Exactly one is produced per case.
type ExecutionResult struct {
	CaseID       string
	Expected     string
	ActualOutput string
	Passed       bool
	Elapsed      time.Duration

	// State is the terminal state; Trail is every state the case went through, starting at Idle.
	State CaseState
	Trail []CaseState

	// Err is nil if the case passed. Otherwise it is an *AssertionMismatch, *TimeoutError,
	// *StaleStateError, or an error from the page.
	Err error
}

func (r ExecutionResult) finish(tracker *caseTracker, start time.Time) ExecutionResult {
	r.State = tracker.state
	r.Trail = append([]CaseState(nil), tracker.trail...)
	r.Elapsed = time.Since(start)
	r.Passed = r.Err == nil && r.State == StatePassed
	return r
}
