package trtest

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// FailureKind classifies why a test failed. The empty kind means the test passed.
type FailureKind string

const (
	KindNone       FailureKind = ""
	KindMismatch   FailureKind = "mismatch"
	KindTimeout    FailureKind = "timeout"
	KindStaleState FailureKind = "stale-state"
	KindError      FailureKind = "error"
)

// IsFlaky returns true for kinds that indicate a harness/synchronization problem rather than
// a wrong value.
func (k FailureKind) IsFlaky() bool {
	return k == KindTimeout || k == KindStaleState
}

// KindedError is implemented by errors that know their own FailureKind.
type KindedError interface {
	error
	FailureKind() FailureKind
}

// ValueMismatch is implemented by errors that describe an expected/actual value pair. Loggers
// print both values in full.
type ValueMismatch interface {
	error
	ExpectedValue() string
	ActualValue() string
}

// KindOf returns the FailureKind of an error: the kind declared by the first KindedError in its
// chain, KindError for any other non-nil error, or KindNone for nil.
func KindOf(err error) FailureKind {
	if err == nil {
		return KindNone
	}
	var ke KindedError
	if errors.As(err, &ke) {
		return ke.FailureKind()
	}
	return KindError
}

type Results struct {
	Tests    []TestResult
	Failures []TestResult

	// Aborted is non-empty if the run was stopped early by T.AbortRun.
	Aborted string
}

type TestResult struct {
	TestID   TestID
	Errors   []error
	Kind     FailureKind
	Duration time.Duration
	Tags     []string
}

func (r Results) OK() bool {
	return len(r.Failures) == 0 && r.Aborted == ""
}

// MergeResults combines the results of independent runs, such as parallel workers. Test order
// is preserved within each input.
func MergeResults(all ...Results) Results {
	var ret Results
	var aborted []string
	for _, r := range all {
		ret.Tests = append(ret.Tests, r.Tests...)
		ret.Failures = append(ret.Failures, r.Failures...)
		if r.Aborted != "" {
			aborted = append(aborted, r.Aborted)
		}
	}
	ret.Aborted = strings.Join(aborted, "; ")
	return ret
}

// FailuresOfKind returns the failures whose kind matches any of the given kinds.
func (r Results) FailuresOfKind(kinds ...FailureKind) []TestResult {
	var ret []TestResult
	for _, f := range r.Failures {
		for _, k := range kinds {
			if f.Kind == k {
				ret = append(ret, f)
				break
			}
		}
	}
	return ret
}

type TestID []string

func (t TestID) String() string {
	return strings.Join(t, "/")
}

func (t TestID) Plus(name string) TestID {
	return append(append(TestID(nil), t...), name)
}

type TestFailure struct {
	ID  TestID
	Err error
}

func (f TestFailure) Error() string {
	return fmt.Sprintf("[%s]: %s", f.ID, f.Err)
}

func (f TestFailure) Unwrap() error { return f.Err }
