package translittests

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sinhala-translit/translit-test-harness/data"
	"github.com/sinhala-translit/translit-test-harness/framework"
	"github.com/sinhala-translit/translit-test-harness/framework/trtest"
	"github.com/sinhala-translit/translit-test-harness/translit"

	"golang.org/x/sync/errgroup"
)

// SurfaceOpener opens a new, independent page. It is called once per worker. If the returned
// surface implements io.Closer, it is closed when the worker is done.
type SurfaceOpener func(ctx context.Context, logger framework.Logger) (translit.Surface, error)

// SuiteParams controls a run of the fixture catalogue.
type SuiteParams struct {
	Catalogue *data.Catalogue
	Config    translit.Config

	// Filter selects cases by their "suite/case title" test IDs.
	Filter     trtest.Filter
	TestLogger trtest.TestLogger

	// Parallel is the number of page sessions; values below 2 mean a single session.
	Parallel int

	// SkipInteractive excludes interactive cases, which always type character by character and
	// so take much longer than the rest.
	SkipInteractive bool
}

// RunTranslitTestSuite runs every selected case and returns the combined results. Each case
// produces exactly one result or, if the run was aborted, is reported as skipped.
func RunTranslitTestSuite(ctx context.Context, open SurfaceOpener, params SuiteParams) trtest.Results {
	if params.Catalogue == nil {
		return trtest.Results{Failures: []trtest.TestResult{
			{Errors: []error{errors.New("no fixture catalogue")}, Kind: trtest.KindError},
		}}
	}
	if params.TestLogger == nil {
		params.TestLogger = &trtest.MultiTestLogger{}
	}
	plan := planCases(params.Catalogue, params.Filter, !params.SkipInteractive)
	shards := shard(plan, params.Parallel)

	testLogger := params.TestLogger
	if len(shards) > 1 {
		if _, ok := testLogger.(*trtest.SynchronizedTestLogger); !ok {
			testLogger = &trtest.SynchronizedTestLogger{Logger: testLogger}
		}
	}
	config := trtest.TestConfiguration{
		Filter:     params.Filter,
		TestLogger: testLogger,
	}
	abort := &abortState{}

	if len(shards) == 1 {
		return runWorker(ctx, open, params.Config, config, shards[0], abort, "")
	}

	all := make([]trtest.Results, len(shards))
	g, gctx := errgroup.WithContext(ctx)
	for i, entries := range shards {
		g.Go(func() error {
			all[i] = runWorker(gctx, open, params.Config, config, entries, abort, fmt.Sprintf("[worker %d] ", i+1))
			return nil
		})
	}
	_ = g.Wait()

	results := trtest.MergeResults(all...)
	results.Aborted = abort.reason()
	return results
}

// abortState lets a fatal error in one worker stop all the others.
type abortState struct {
	lock sync.Mutex
	why  string
}

func (a *abortState) set(reason string) {
	a.lock.Lock()
	if a.why == "" {
		a.why = reason
	}
	a.lock.Unlock()
}

func (a *abortState) reason() string {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.why
}

func runWorker(
	ctx context.Context,
	open SurfaceOpener,
	caseConfig translit.Config,
	config trtest.TestConfiguration,
	entries []planEntry,
	abort *abortState,
	logPrefix string,
) trtest.Results {
	return trtest.Run(config, func(t *trtest.T) {
		t.Defer(func() {
			if reason := abort.reason(); reason != "" {
				t.AbortRun(reason)
			}
		})
		logger := framework.LoggerWithPrefix(t.DebugLogger(), logPrefix)

		var session *translit.Session
		surface, err := open(ctx, logger)
		if err == nil {
			if c, ok := surface.(io.Closer); ok {
				t.Defer(func() { _ = c.Close() })
			}
			session, err = translit.NewSession(surface, caseConfig, logger)
		}
		if err != nil {
			// no case can run without a page, so this stops the other workers too
			t.Fail(err)
			abort.set(err.Error())
		}

		for i, group := range groupBySuite(entries) {
			if i > 0 && abort.reason() == "" {
				pause(ctx, caseConfig.InterCaseDelay)
			}
			t.Run(group[0].suite.Name, func(t *trtest.T) {
				runGroup(ctx, t, session, group, abort)
			})
		}
	})
}

func runGroup(ctx context.Context, t *trtest.T, session *translit.Session, group []planEntry, abort *abortState) {
	for i, e := range group {
		if ctx.Err() != nil {
			abort.set("interrupted")
		}
		if reason := abort.reason(); reason != "" {
			t.Run(e.title(), func(t *trtest.T) {
				t.SkipWithReason("run aborted: " + reason)
			})
			continue
		}
		if i > 0 {
			pause(ctx, session.Config().InterCaseDelay)
		}
		t.Run(e.title(), func(t *trtest.T) {
			if tags := e.tags(); len(tags) > 0 {
				t.Tag(tags...)
				t.Debug("tags: %s", strings.Join(tags, ", "))
			}
			var result translit.ExecutionResult
			if e.isInteract {
				result = session.RunInteractiveCase(ctx, e.interactive)
			} else {
				result = session.RunCase(ctx, e.testCase)
			}
			reportResult(t, result)
			if result.Err != nil && translit.IsFatal(result.Err) {
				abort.set(result.Err.Error())
			}
		})
	}
}

func reportResult(t *trtest.T, result translit.ExecutionResult) {
	t.Debug("%s finished in state %s after %s", result.CaseID, result.State, result.Elapsed)
	if result.Err != nil {
		t.Fail(result.Err)
		return
	}
	if !result.Passed {
		t.Errorf("case %s did not pass but reported no error", result.CaseID)
	}
}

// pause waits for d unless ctx is done first.
func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
