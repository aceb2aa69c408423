package translit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sinhala-translit/translit-test-harness/framework"
	"github.com/sinhala-translit/translit-test-harness/framework/helpers"
	"github.com/sinhala-translit/translit-test-harness/testmodel"

	"golang.org/x/time/rate"
)

// Session runs cases one at a time against a single page. It is safe to share between
// goroutines, but cases never overlap: a second RunCase while one is running fails with
// ErrSessionBusy.
type Session struct {
	surface Surface
	config  Config
	logger  framework.Logger

	lock sync.Mutex

	brokenLock sync.Mutex
	broken     error
}

// NewSession binds a Session to a page surface. The config is validated here so that a bad
// setting is reported before any case runs.
func NewSession(surface Surface, config Config, logger framework.Logger) (*Session, error) {
	if surface == nil {
		return nil, errors.New("surface is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = framework.NullLogger()
	}
	return &Session{surface: surface, config: config, logger: logger}, nil
}

func (s *Session) Config() Config {
	return s.config
}

// Broken returns the reason the session was marked broken, or nil.
func (s *Session) Broken() error {
	s.brokenLock.Lock()
	defer s.brokenLock.Unlock()
	return s.broken
}

func (s *Session) markBroken(err error) {
	s.brokenLock.Lock()
	s.broken = err
	s.brokenLock.Unlock()
}

// ResetInputSurface clears the input and waits until both input and output are empty and have
// stayed empty for ResetQuietPeriod. Calling it on a page that is already reset is harmless.
func (s *Session) ResetInputSurface(ctx context.Context) error {
	if err := s.surface.Clear(ctx); err != nil {
		return &StaleStateError{Err: fmt.Errorf("clearing input: %w", err)}
	}
	var state baselineState
	err := helpers.PollUntil(ctx, s.config.PollInterval, s.config.ResetTimeout, func(now time.Time) (bool, error) {
		input, err := s.surface.InputValue(ctx)
		if err != nil {
			return false, err
		}
		output, err := s.currentOutput(ctx)
		if err != nil {
			return false, err
		}
		state.observe(input, output, now)
		return state.reached(now, s.config.ResetQuietPeriod), nil
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, helpers.ErrPollTimedOut):
		return &StaleStateError{ResidualInput: state.residualInput, ResidualOutput: state.residualOutput}
	case ctx.Err() != nil:
		return err
	default:
		return &StaleStateError{ResidualInput: state.residualInput, ResidualOutput: state.residualOutput, Err: err}
	}
}

// SubmitInput enters text into the page. In DeliveryIncremental mode one keystroke is sent per
// character, KeystrokeDelay apart. If ctx has a deadline that falls before the last keystroke is
// due, typing stops early with an error wrapping context.DeadlineExceeded.
func (s *Session) SubmitInput(ctx context.Context, text string, mode DeliveryMode) error {
	switch mode {
	case DeliveryAtomic:
		return s.surface.Fill(ctx, text)
	case DeliveryIncremental:
		limit := rate.Inf
		if s.config.KeystrokeDelay > 0 {
			limit = rate.Every(s.config.KeystrokeDelay)
		}
		limiter := rate.NewLimiter(limit, 1)
		for _, r := range text {
			if err := limiter.Wait(ctx); err != nil {
				if _, ok := ctx.Deadline(); ok && ctx.Err() == nil {
					// the limiter refuses to wait past the deadline instead of waiting for it
					return fmt.Errorf("typing input: %w", context.DeadlineExceeded)
				}
				return err
			}
			if err := s.surface.Type(ctx, r); err != nil {
				return fmt.Errorf("typing %q: %w", r, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("invalid delivery mode %s", mode)
	}
}

// AwaitSettledOutput polls the output until it is non-empty and has not changed for
// SettleQuietPeriod, and returns it as observed. A non-positive timeout means Config.SettleTimeout.
func (s *Session) AwaitSettledOutput(ctx context.Context, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = s.config.SettleTimeout
	}
	if s.config.SettleQuietPeriod >= timeout {
		return "", fmt.Errorf("settle quiet period %s must be shorter than timeout %s",
			s.config.SettleQuietPeriod, timeout)
	}
	var state ObservationState
	err := helpers.PollUntil(ctx, s.config.PollInterval, timeout, func(now time.Time) (bool, error) {
		text, err := s.currentOutput(ctx)
		if err != nil {
			return false, err
		}
		state.Observe(text, now)
		return state.Settled(now, s.config.SettleQuietPeriod), nil
	})
	if errors.Is(err, helpers.ErrPollTimedOut) {
		return "", &TimeoutError{Phase: PhaseSettle, Timeout: timeout, LastObserved: NormalizeOutput(state.LastObservedText)}
	}
	if err != nil {
		return "", err
	}
	s.logger.Printf("output settled: %q", state.LastObservedText)
	return state.LastObservedText, nil
}

// ExtractNormalizedOutput returns the trimmed text of the true output element, or "" if the page
// shows no output.
func (s *Session) ExtractNormalizedOutput(ctx context.Context) (string, error) {
	text, err := s.currentOutput(ctx)
	if err != nil {
		return "", err
	}
	return NormalizeOutput(text), nil
}

// ObservePartialOutput waits up to wait for any output to appear, and returns it normalized.
// Unlike AwaitSettledOutput it does not wait for the output to stop changing.
func (s *Session) ObservePartialOutput(ctx context.Context, wait time.Duration) (string, error) {
	var last string
	err := helpers.PollUntil(ctx, s.config.PollInterval, wait, func(time.Time) (bool, error) {
		text, err := s.ExtractNormalizedOutput(ctx)
		if err != nil {
			return false, err
		}
		last = text
		return text != "", nil
	})
	if errors.Is(err, helpers.ErrPollTimedOut) {
		return "", &TimeoutError{Phase: PhasePartial, Timeout: wait}
	}
	return last, err
}

func (s *Session) currentOutput(ctx context.Context) (string, error) {
	candidates, err := s.surface.OutputCandidates(ctx)
	if err != nil {
		return "", err
	}
	selected, _ := SelectOutput(candidates)
	return selected.Text, nil
}

// RunCase resets the page, submits the case's input in the configured delivery mode, waits for
// the output to settle, and compares it exactly with the expected value.
func (s *Session) RunCase(ctx context.Context, tc testmodel.TestCase) ExecutionResult {
	return s.runExclusive(ctx, tc.ID, tc.Expected, func(ctx context.Context, tracker *caseTracker) (string, error) {
		if err := s.SubmitInput(ctx, tc.Input, s.config.Mode); err != nil {
			return "", err
		}
		tracker.to(StateInputSubmitted)
		return s.settleAndExtract(ctx, tracker)
	})
}

// RunInteractiveCase types the partial input, checks that some output is already showing, types
// the rest, and then compares the settled output with ExpectedFull. Input is always typed one
// character at a time.
func (s *Session) RunInteractiveCase(ctx context.Context, ic testmodel.InteractiveCase) ExecutionResult {
	return s.runExclusive(ctx, ic.ID, ic.ExpectedFull, func(ctx context.Context, tracker *caseTracker) (string, error) {
		if err := s.SubmitInput(ctx, ic.PartialInput, DeliveryIncremental); err != nil {
			return "", err
		}
		tracker.to(StateInputSubmitted)

		partial, err := s.ObservePartialOutput(ctx, s.config.PartialWait)
		if err != nil {
			var timeout *TimeoutError
			if errors.As(err, &timeout) {
				return "", &AssertionMismatch{CaseID: ic.ID, Checkpoint: "partial", Expected: "(any output)"}
			}
			return "", err
		}
		tracker.to(StatePartialObserved)
		s.logger.Printf("partial output after %q: %q", ic.PartialInput, partial)

		if err := s.SubmitInput(ctx, ic.Remainder(), DeliveryIncremental); err != nil {
			return "", err
		}
		tracker.to(StateInputSubmitted)
		return s.settleAndExtract(ctx, tracker)
	})
}

func (s *Session) settleAndExtract(ctx context.Context, tracker *caseTracker) (string, error) {
	tracker.to(StateAwaitingSettle)
	settled, err := s.AwaitSettledOutput(ctx, s.config.SettleTimeout)
	if err != nil {
		return "", err
	}
	tracker.to(StateSettled)
	return NormalizeOutput(settled), nil
}

func (s *Session) runExclusive(
	ctx context.Context,
	caseID, expected string,
	submitAndRead func(context.Context, *caseTracker) (string, error),
) ExecutionResult {
	start := time.Now()
	result := ExecutionResult{CaseID: caseID, Expected: expected}
	tracker := newCaseTracker()

	if !s.lock.TryLock() {
		result.Err = ErrSessionBusy
		tracker.fail(result.Err)
		return result.finish(tracker, start)
	}
	defer s.lock.Unlock()

	if broken := s.Broken(); broken != nil {
		result.Err = &StaleStateError{Err: fmt.Errorf("%w (%s)", ErrSessionBroken, broken)}
		tracker.fail(result.Err)
		return result.finish(tracker, start)
	}

	caseCtx, cancel := context.WithTimeout(ctx, s.config.CaseTimeout)
	defer cancel()

	s.logger.Printf("case %s: resetting input surface", caseID)
	tracker.to(StateReset)
	actual, err := func() (string, error) {
		if err := s.ResetInputSurface(caseCtx); err != nil {
			return "", err
		}
		return submitAndRead(caseCtx, tracker)
	}()
	if err == nil {
		result.ActualOutput = actual
		tracker.to(StateCompared)
		if actual == expected {
			tracker.to(StatePassed)
			return result.finish(tracker, start)
		}
		err = &AssertionMismatch{CaseID: caseID, Expected: expected, Actual: actual}
	} else if ctx.Err() == nil && (caseCtx.Err() != nil || errors.Is(err, context.DeadlineExceeded)) {
		err = &TimeoutError{Phase: PhaseCase, Timeout: s.config.CaseTimeout, LastObserved: s.peekOutput(ctx)}
	}

	result.Err = err
	var mismatch *AssertionMismatch
	if errors.As(err, &mismatch) && mismatch.Checkpoint == "" {
		result.ActualOutput = mismatch.Actual
	}
	tracker.fail(err)
	s.logger.Printf("case %s: %s", caseID, err)

	result = result.finish(tracker, start)

	if isFlaky(err) && ctx.Err() == nil {
		s.recoverPage(ctx)
	}
	return result
}

// recoverPage makes one attempt to bring the page back to its baseline after a timeout or stale
// state, so that the next case starts clean. If it fails, the session is broken for good.
func (s *Session) recoverPage(ctx context.Context) {
	resetCtx, cancel := context.WithTimeout(ctx, s.config.ResetTimeout+s.config.PollInterval)
	defer cancel()
	if err := s.ResetInputSurface(resetCtx); err != nil {
		s.logger.Printf("recovery reset failed, no further cases will run on this page: %s", err)
		s.markBroken(err)
	}
}

func (s *Session) peekOutput(ctx context.Context) string {
	peekCtx, cancel := context.WithTimeout(ctx, s.config.PollInterval*5)
	defer cancel()
	text, err := s.ExtractNormalizedOutput(peekCtx)
	if err != nil {
		return ""
	}
	return text
}
