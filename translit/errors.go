package translit

import (
	"errors"
	"fmt"
	"time"

	"github.com/sinhala-translit/translit-test-harness/framework/trtest"
	"github.com/sinhala-translit/translit-test-harness/testmodel"
)

var (
	// ErrSessionBroken means an earlier case left the page in a state that a reset could not
	// recover from. Every later case on the same session fails with it.
	ErrSessionBroken = errors.New("session is broken: page could not be reset after an earlier failure")

	// ErrSessionBusy means RunCase was called while another case was running on the same session.
	ErrSessionBusy = errors.New("session is already running a case")
)

// Phase names the part of the protocol that was waiting when a TimeoutError happened.
type Phase string

const (
	PhaseSettle  Phase = "settle"
	PhasePartial Phase = "partial"
	PhaseCase    Phase = "case"
)

// NavigationError means the page could not be opened or never became ready. Nothing can be run
// after it.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("could not open %s: %s", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

func (e *NavigationError) FailureKind() trtest.FailureKind { return trtest.KindError }

// StaleStateError means the input surface did not reach its baseline, so output from an earlier
// case could still be showing.
type StaleStateError struct {
	ResidualInput  string
	ResidualOutput string
	Err            error
}

func (e *StaleStateError) Error() string {
	msg := "page did not return to an empty state"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.ResidualInput != "" {
		msg += fmt.Sprintf(" (input still %q)", e.ResidualInput)
	}
	if e.ResidualOutput != "" {
		msg += fmt.Sprintf(" (output still %q)", e.ResidualOutput)
	}
	return msg
}

func (e *StaleStateError) Unwrap() error { return e.Err }

func (e *StaleStateError) FailureKind() trtest.FailureKind { return trtest.KindStaleState }

// TimeoutError means the page did not reach the awaited condition in time.
type TimeoutError struct {
	Phase        Phase
	Timeout      time.Duration
	LastObserved string
}

func (e *TimeoutError) Error() string {
	if e.LastObserved == "" {
		return fmt.Sprintf("timed out after %s waiting for %s; no output was observed", e.Timeout, e.Phase)
	}
	return fmt.Sprintf("timed out after %s waiting for %s; last observed output %q",
		e.Timeout, e.Phase, e.LastObserved)
}

func (e *TimeoutError) FailureKind() trtest.FailureKind { return trtest.KindTimeout }

// AssertionMismatch means the page produced settled output that differs from the expected value.
type AssertionMismatch struct {
	CaseID   string
	Expected string
	Actual   string

	// Checkpoint is empty for the final comparison, or names an intermediate check.
	Checkpoint string
}

func (e *AssertionMismatch) Error() string {
	if e.Checkpoint != "" {
		return fmt.Sprintf("case %s: %s output did not match", e.CaseID, e.Checkpoint)
	}
	return fmt.Sprintf("case %s: output did not match", e.CaseID)
}

func (e *AssertionMismatch) FailureKind() trtest.FailureKind { return trtest.KindMismatch }
func (e *AssertionMismatch) ExpectedValue() string           { return e.Expected }
func (e *AssertionMismatch) ActualValue() string             { return e.Actual }

// IsFatal is true for errors that make the rest of the run pointless: the page cannot be reached,
// or the fixtures cannot be trusted.
func IsFatal(err error) bool {
	var nav *NavigationError
	var mf *testmodel.MalformedFixtureError
	return errors.As(err, &nav) || errors.As(err, &mf)
}

// KindOf classifies err for reporting.
func KindOf(err error) trtest.FailureKind {
	return trtest.KindOf(err)
}

func isFlaky(err error) bool {
	return KindOf(err).IsFlaky()
}
