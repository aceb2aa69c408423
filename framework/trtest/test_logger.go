package trtest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sinhala-translit/translit-test-harness/framework"

	"github.com/fatih/color"
)

var consoleTestErrorColor = color.New(color.FgYellow)              //nolint:gochecknoglobals
var consoleTestFailedColor = color.New(color.FgRed)                //nolint:gochecknoglobals
var consoleTestFlakyColor = color.New(color.FgMagenta)             //nolint:gochecknoglobals
var consoleTestPassedColor = color.New(color.Faint, color.FgGreen) //nolint:gochecknoglobals
var consoleTestSkippedColor = color.New(color.Faint, color.FgBlue) //nolint:gochecknoglobals
var consoleDebugOutputColor = color.New(color.Faint)               //nolint:gochecknoglobals
var allTestsPassedColor = color.New(color.FgGreen)                 //nolint:gochecknoglobals

// TestLogger receives status information about each test as the run proceeds.
//
// TestStarted and TestFinished/TestSkipped are called for every scope, including parent scopes
// that only group other tests. EndLog is called once when the run is over.
type TestLogger interface {
	TestStarted(id TestID)
	TestError(id TestID, err error)
	TestFinished(id TestID, result TestResult, debugOutput framework.CapturedOutput)
	TestSkipped(id TestID, reason string)
	EndLog(results Results) error
}

type nullTestLogger struct{}

func (n nullTestLogger) TestStarted(TestID)                                        {}
func (n nullTestLogger) TestError(TestID, error)                                   {}
func (n nullTestLogger) TestFinished(TestID, TestResult, framework.CapturedOutput) {}
func (n nullTestLogger) TestSkipped(TestID, string)                                {}
func (n nullTestLogger) EndLog(Results) error                                      { return nil }

// ConsoleTestLogger prints human-readable progress. Value mismatches and harness failures
// (timeouts, stale page state) are labelled and colored differently.
type ConsoleTestLogger struct {
	DebugOutputOnFailure bool
	DebugOutputOnSuccess bool

	// Out defaults to os.Stdout.
	Out io.Writer
}

func (c ConsoleTestLogger) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c ConsoleTestLogger) TestStarted(id TestID) {
	_, _ = fmt.Fprintf(c.out(), "[%s]\n", id)
}

func (c ConsoleTestLogger) TestError(id TestID, err error) {
	label := ""
	col := consoleTestErrorColor
	switch kind := KindOf(err); kind {
	case KindMismatch:
		label = "MISMATCH: "
	case KindTimeout, KindStaleState:
		label = strings.ToUpper(string(kind)) + ": "
		col = consoleTestFlakyColor
	}
	var vm ValueMismatch
	if errors.As(err, &vm) {
		_, _ = col.Fprintf(c.out(), "  %soutput did not match\n", label)
		_, _ = col.Fprintf(c.out(), "    expected: %q\n", vm.ExpectedValue())
		_, _ = col.Fprintf(c.out(), "    actual:   %q\n", vm.ActualValue())
		return
	}
	for i, line := range strings.Split(err.Error(), "\n") {
		if i == 0 {
			line = label + line
		}
		_, _ = col.Fprintf(c.out(), "  %s\n", line)
	}
}

func (c ConsoleTestLogger) TestFinished(id TestID, result TestResult, debugOutput framework.CapturedOutput) {
	failed := len(result.Errors) != 0
	switch {
	case failed && result.Kind.IsFlaky():
		_, _ = consoleTestFlakyColor.Fprintf(c.out(), "  FAILED (%s, %s): %s\n",
			result.Kind, formatDuration(result.Duration), id)
	case failed:
		_, _ = consoleTestFailedColor.Fprintf(c.out(), "  FAILED (%s): %s\n", formatDuration(result.Duration), id)
	default:
		_, _ = consoleTestPassedColor.Fprintf(c.out(), "  ok (%s)\n", formatDuration(result.Duration))
	}
	if len(debugOutput) > 0 &&
		((failed && c.DebugOutputOnFailure) || (!failed && c.DebugOutputOnSuccess)) {
		_, _ = consoleDebugOutputColor.Fprintln(c.out(), debugOutput.ToString("    DEBUG "))
	}
}

func (c ConsoleTestLogger) TestSkipped(id TestID, reason string) {
	if reason == "" {
		_, _ = consoleTestSkippedColor.Fprintf(c.out(), "  SKIPPED: %s\n", id)
	} else {
		_, _ = consoleTestSkippedColor.Fprintf(c.out(), "  SKIPPED: %s (%s)\n", id, reason)
	}
}

func (c ConsoleTestLogger) EndLog(results Results) error {
	PrintResults(c.out(), results)
	return nil
}

// PrintResults writes a summary of the run, listing harness failures separately from value
// mismatches.
func PrintResults(w io.Writer, results Results) {
	if results.Aborted != "" {
		_, _ = consoleTestFailedColor.Fprintf(w, "RUN ABORTED: %s\n", results.Aborted)
	}
	if len(results.Failures) == 0 {
		if results.Aborted == "" {
			_, _ = allTestsPassedColor.Fprintln(w, "All tests passed")
		}
		return
	}
	flaky := results.FailuresOfKind(KindTimeout, KindStaleState)
	regressions := results.FailuresOfKind(KindMismatch, KindError)
	if len(regressions) > 0 {
		_, _ = consoleTestFailedColor.Fprintf(w, "FAILED TESTS (%d):\n", len(regressions))
		for _, f := range regressions {
			_, _ = consoleTestFailedColor.Fprintf(w, "  * %s\n", f.TestID)
		}
	}
	if len(flaky) > 0 {
		_, _ = consoleTestFlakyColor.Fprintf(w, "HARNESS FAILURES (%d):\n", len(flaky))
		for _, f := range flaky {
			_, _ = consoleTestFlakyColor.Fprintf(w, "  * %s [%s]\n", f.TestID, f.Kind)
		}
	}
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// MultiTestLogger sends every event to each of its loggers in turn.
type MultiTestLogger struct {
	Loggers []TestLogger
}

func (m *MultiTestLogger) TestStarted(id TestID) {
	for _, l := range m.Loggers {
		l.TestStarted(id)
	}
}

func (m *MultiTestLogger) TestError(id TestID, err error) {
	for _, l := range m.Loggers {
		l.TestError(id, err)
	}
}

func (m *MultiTestLogger) TestFinished(id TestID, result TestResult, debugOutput framework.CapturedOutput) {
	for _, l := range m.Loggers {
		l.TestFinished(id, result, debugOutput)
	}
}

func (m *MultiTestLogger) TestSkipped(id TestID, reason string) {
	for _, l := range m.Loggers {
		l.TestSkipped(id, reason)
	}
}

// EndLog calls EndLog on every logger, and returns the first error if any failed.
func (m *MultiTestLogger) EndLog(results Results) error {
	var firstErr error
	for _, l := range m.Loggers {
		if err := l.EndLog(results); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SynchronizedTestLogger serializes calls to a TestLogger that is shared by several runs going
// on at once, such as parallel page sessions.
type SynchronizedTestLogger struct {
	Logger TestLogger
	lock   sync.Mutex
}

func (s *SynchronizedTestLogger) TestStarted(id TestID) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.Logger.TestStarted(id)
}

func (s *SynchronizedTestLogger) TestError(id TestID, err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.Logger.TestError(id, err)
}

func (s *SynchronizedTestLogger) TestFinished(id TestID, result TestResult, debugOutput framework.CapturedOutput) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.Logger.TestFinished(id, result, debugOutput)
}

func (s *SynchronizedTestLogger) TestSkipped(id TestID, reason string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.Logger.TestSkipped(id, reason)
}

func (s *SynchronizedTestLogger) EndLog(results Results) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.Logger.EndLog(results)
}
