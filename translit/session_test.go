package translit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sinhala-translit/translit-test-harness/framework"
	"github.com/sinhala-translit/translit-test-harness/testmodel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, page *fakePage, config Config) *Session {
	t.Helper()
	s, err := NewSession(page, config, nil)
	require.NoError(t, err)
	return s
}

func TestNewSessionValidatesConfig(t *testing.T) {
	config := testConfig()
	config.SettleQuietPeriod = config.SettleTimeout
	_, err := NewSession(newFakePage(), config, nil)
	assert.Error(t, err)

	_, err = NewSession(nil, testConfig(), nil)
	assert.Error(t, err)
}

func TestRunCasePasses(t *testing.T) {
	page := newFakePage()
	s := newTestSession(t, page, testConfig())

	tc := testmodel.TestCase{ID: "Pos_Fun_003", Input: "eyaa gedhara giyaa.", Expected: "එයා ගෙදර ගියා."}
	result := s.RunCase(context.Background(), tc)

	require.NoError(t, result.Err)
	assert.True(t, result.Passed)
	assert.Equal(t, "Pos_Fun_003", result.CaseID)
	assert.Equal(t, "එයා ගෙදර ගියා.", result.ActualOutput)
	assert.Equal(t, StatePassed, result.State)
	assert.Equal(t, []CaseState{
		StateIdle, StateReset, StateInputSubmitted, StateAwaitingSettle, StateSettled, StateCompared, StatePassed,
	}, result.Trail)
	assert.Greater(t, result.Elapsed, time.Duration(0))
	assert.Equal(t, []string{"eyaa gedhara giyaa."}, page.fills)
}

func TestRunCaseComparesExactly(t *testing.T) {
	s := newTestSession(t, newFakePage(), testConfig())

	// the page output is trimmed, the expected value is not
	tc := testmodel.TestCase{ID: "Nev_Fun_001", Input: "mama gedhara yanavaa", Expected: "මම ගෙදර යනවා "}
	result := s.RunCase(context.Background(), tc)

	assert.False(t, result.Passed)
	assert.Equal(t, StateFailed, result.State)
	assert.Equal(t, "මම ගෙදර යනවා", result.ActualOutput)
	var mismatch *AssertionMismatch
	require.True(t, errors.As(result.Err, &mismatch))
	assert.Equal(t, "මම ගෙදර යනවා ", mismatch.ExpectedValue())
	assert.Equal(t, "මම ගෙදර යනවා", mismatch.ActualValue())
	assert.Nil(t, s.Broken())
}

func TestAwaitSettledOutputWaitsForFinalValue(t *testing.T) {
	page := newFakePage()
	page.script = func(elapsed time.Duration) string {
		switch {
		case elapsed < 30*time.Millisecond:
			return ""
		case elapsed < 60*time.Millisecond:
			return "a"
		case elapsed < 90*time.Millisecond:
			return "ab"
		default:
			return "abc"
		}
	}
	s := newTestSession(t, page, testConfig())
	require.NoError(t, s.SubmitInput(context.Background(), "x", DeliveryAtomic))

	start := time.Now()
	text, err := s.AwaitSettledOutput(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "abc", NormalizeOutput(text))
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond+testConfig().SettleQuietPeriod-10*time.Millisecond)
}

func TestAwaitSettledOutputTimesOutOnEmptyOutput(t *testing.T) {
	page := newFakePage()
	page.translate = func(string) string { return "" }
	s := newTestSession(t, page, testConfig())
	require.NoError(t, s.SubmitInput(context.Background(), "mama", DeliveryAtomic))

	_, err := s.AwaitSettledOutput(context.Background(), 200*time.Millisecond)
	var timeout *TimeoutError
	require.True(t, errors.As(err, &timeout))
	assert.Equal(t, PhaseSettle, timeout.Phase)
	assert.Equal(t, 200*time.Millisecond, timeout.Timeout)
	assert.Equal(t, "", timeout.LastObserved)
}

func TestAwaitSettledOutputTimesOutOnChangingOutput(t *testing.T) {
	page := newFakePage()
	page.script = func(elapsed time.Duration) string {
		return time.Duration(elapsed / (20 * time.Millisecond)).String()
	}
	s := newTestSession(t, page, testConfig())
	require.NoError(t, s.SubmitInput(context.Background(), "x", DeliveryAtomic))

	_, err := s.AwaitSettledOutput(context.Background(), 200*time.Millisecond)
	var timeout *TimeoutError
	require.True(t, errors.As(err, &timeout))
	assert.NotEmpty(t, timeout.LastObserved)
}

func TestAwaitSettledOutputRejectsTimeoutShorterThanQuietPeriod(t *testing.T) {
	s := newTestSession(t, newFakePage(), testConfig())
	_, err := s.AwaitSettledOutput(context.Background(), testConfig().SettleQuietPeriod)
	assert.Error(t, err)
}

func TestRunCaseTimesOutAndRecovers(t *testing.T) {
	page := newFakePage()
	page.translate = func(string) string { return "" }
	s := newTestSession(t, page, testConfig())

	result := s.RunCase(context.Background(), testmodel.TestCase{ID: "t", Input: "mama", Expected: "මම"})
	assert.False(t, result.Passed)
	assert.Equal(t, StateTimedOut, result.State)
	var timeout *TimeoutError
	require.True(t, errors.As(result.Err, &timeout))
	assert.Nil(t, s.Broken())

	page.translate = dictionaryTranslate
	result = s.RunCase(context.Background(), testmodel.TestCase{ID: "u", Input: "mama", Expected: "මම"})
	assert.True(t, result.Passed)
}

func TestResetInputSurfaceIsIdempotent(t *testing.T) {
	page := newFakePage()
	s := newTestSession(t, page, testConfig())
	require.NoError(t, s.ResetInputSurface(context.Background()))
	require.NoError(t, s.ResetInputSurface(context.Background()))

	out, err := s.ExtractNormalizedOutput(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestResetInputSurfaceWaitsForResidualOutput(t *testing.T) {
	page := newFakePage()
	page.clearLag = 80 * time.Millisecond
	s := newTestSession(t, page, testConfig())
	require.NoError(t, s.SubmitInput(context.Background(), "mama", DeliveryAtomic))
	_, err := s.AwaitSettledOutput(context.Background(), 0)
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, s.ResetInputSurface(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestStaleStateBreaksSession(t *testing.T) {
	page := newFakePage()
	page.input = "old input"
	page.inputAt = time.Now()
	page.ignoreClear = true
	s := newTestSession(t, page, testConfig())

	err := s.ResetInputSurface(context.Background())
	var stale *StaleStateError
	require.True(t, errors.As(err, &stale))
	assert.Equal(t, "old input", stale.ResidualInput)

	result := s.RunCase(context.Background(), testmodel.TestCase{ID: "a", Input: "mama", Expected: "මම"})
	assert.Equal(t, StateStaleState, result.State)
	require.True(t, errors.As(result.Err, &stale))
	require.Error(t, s.Broken())

	page.ignoreClear = false
	result = s.RunCase(context.Background(), testmodel.TestCase{ID: "b", Input: "mama", Expected: "මම"})
	assert.False(t, result.Passed)
	assert.Equal(t, StateStaleState, result.State)
	assert.True(t, errors.Is(result.Err, ErrSessionBroken))
	assert.Equal(t, []CaseState{StateIdle, StateStaleState}, result.Trail)
}

func TestRunCaseTimeoutCoversWholeCase(t *testing.T) {
	config := testConfig()
	config.ResetTimeout = time.Second
	config.SettleTimeout = 200 * time.Millisecond
	config.CaseTimeout = 200 * time.Millisecond
	page := newFakePage()
	page.input = "old input"
	page.ignoreClear = true
	s := newTestSession(t, page, config)

	start := time.Now()
	result := s.RunCase(context.Background(), testmodel.TestCase{ID: "a", Input: "mama", Expected: "මම"})
	assert.Equal(t, StateTimedOut, result.State)
	var timeout *TimeoutError
	require.True(t, errors.As(result.Err, &timeout))
	assert.Equal(t, PhaseCase, timeout.Phase)
	assert.Less(t, result.Elapsed, 900*time.Millisecond)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestNoCrossCaseContamination(t *testing.T) {
	page := newFakePage()
	page.clearLag = 50 * time.Millisecond
	s := newTestSession(t, page, testConfig())

	cases := []testmodel.TestCase{
		{ID: "1", Input: "api thaama kanavaa", Expected: "අපි තාම කනවා"},
		{ID: "2", Input: "mama", Expected: "මම"},
		{ID: "3", Input: "eyaa gedhara giyaa.", Expected: "එයා ගෙදර ගියා."},
		{ID: "4", Input: "mama", Expected: "මම"},
	}
	for _, tc := range cases {
		result := s.RunCase(context.Background(), tc)
		assert.True(t, result.Passed, "case %s: %v", tc.ID, result.Err)
		assert.Equal(t, tc.Expected, result.ActualOutput)
	}
}

func TestSubmitInputIncrementalTypesEachRune(t *testing.T) {
	page := newFakePage()
	s := newTestSession(t, page, testConfig())

	start := time.Now()
	require.NoError(t, s.SubmitInput(context.Background(), "mamaමම", DeliveryIncremental))
	assert.Equal(t, "mamaමම", page.typedText())
	assert.GreaterOrEqual(t, time.Since(start), 5*testConfig().KeystrokeDelay)
}

func TestSubmitInputIncrementalIsCancellable(t *testing.T) {
	config := testConfig()
	config.KeystrokeDelay = time.Hour
	s := newTestSession(t, newFakePage(), config)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := s.SubmitInput(ctx, "abc", DeliveryIncremental)
	assert.Error(t, err)
}

func TestRunInteractiveCase(t *testing.T) {
	page := newFakePage()
	s := newTestSession(t, page, testConfig())

	ic := testmodel.InteractiveCase{
		ID:           "Pos_UI_001",
		Input:        "mama kaeema kannavaa",
		PartialInput: "mama kae",
		ExpectedFull: "මම කෑම කන්නවා",
	}
	result := s.RunInteractiveCase(context.Background(), ic)
	require.NoError(t, result.Err)
	assert.True(t, result.Passed)
	assert.Equal(t, "මම කෑම කන්නවා", result.ActualOutput)
	assert.Equal(t, "mama kaeema kannavaa", page.typedText())
	assert.Contains(t, result.Trail, StatePartialObserved)
}

func TestRunInteractiveCaseFailsWithoutPartialOutput(t *testing.T) {
	page := newFakePage()
	page.translate = func(input string) string {
		if input == "mama kaeema kannavaa" {
			return "මම කෑම කන්නවා"
		}
		return ""
	}
	s := newTestSession(t, page, testConfig())

	ic := testmodel.InteractiveCase{ID: "ui", Input: "mama kaeema kannavaa", PartialInput: "mama kae", ExpectedFull: "මම කෑම කන්නවා"}
	result := s.RunInteractiveCase(context.Background(), ic)
	assert.False(t, result.Passed)
	assert.Equal(t, StateFailed, result.State)
	var mismatch *AssertionMismatch
	require.True(t, errors.As(result.Err, &mismatch))
	assert.Equal(t, "partial", mismatch.Checkpoint)
	assert.Equal(t, "", result.ActualOutput)
}

func TestRunCaseRefusesReentry(t *testing.T) {
	page := newFakePage()
	page.fillStarted = make(chan struct{})
	page.fillRelease = make(chan struct{})
	s := newTestSession(t, page, testConfig())

	var wg sync.WaitGroup
	var first ExecutionResult
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = s.RunCase(context.Background(), testmodel.TestCase{ID: "1", Input: "mama", Expected: "මම"})
	}()
	<-page.fillStarted

	second := s.RunCase(context.Background(), testmodel.TestCase{ID: "2", Input: "api", Expected: "අපි"})
	assert.True(t, errors.Is(second.Err, ErrSessionBusy))
	assert.False(t, second.Passed)
	assert.Equal(t, StateFailed, second.State)
	assert.Equal(t, []CaseState{StateIdle, StateFailed}, second.Trail)

	close(page.fillRelease)
	wg.Wait()
	assert.True(t, first.Passed)
}

func TestSessionLogsToGivenLogger(t *testing.T) {
	var logger framework.CapturingLogger
	s, err := NewSession(newFakePage(), testConfig(), &logger)
	require.NoError(t, err)
	_ = s.RunCase(context.Background(), testmodel.TestCase{ID: "a", Input: "mama", Expected: "මම"})
	assert.Contains(t, logger.Output().ToString(""), `output settled: "\n  මම \n"`)
}

func TestRunCaseIncrementalTypingPastCaseTimeoutIsATimeout(t *testing.T) {
	config := testConfig()
	config.Mode = DeliveryIncremental
	config.KeystrokeDelay = 20 * time.Millisecond
	config.SettleTimeout = 150 * time.Millisecond
	config.CaseTimeout = 200 * time.Millisecond
	page := newFakePage()
	s := newTestSession(t, page, config)

	tc := testmodel.TestCase{ID: "long", Input: "mama gedhara yanavaa", Expected: "මම ගෙදර යනවා"}
	require.Greater(t, config.TypingTime(tc.Input), config.CaseTimeout)

	result := s.RunCase(context.Background(), tc)
	assert.False(t, result.Passed)
	assert.Equal(t, StateTimedOut, result.State)
	var timeout *TimeoutError
	require.True(t, errors.As(result.Err, &timeout), "got %T: %s", result.Err, result.Err)
	assert.Equal(t, PhaseCase, timeout.Phase)
	assert.Less(t, len(page.typedText()), len(tc.Input))
	assert.Nil(t, s.Broken())
}

func TestSubmitInputReportsDeadlineBeforeItPasses(t *testing.T) {
	config := testConfig()
	config.KeystrokeDelay = time.Hour
	s := newTestSession(t, newFakePage(), config)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	err := s.SubmitInput(ctx, "ab", DeliveryIncremental)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	assert.NoError(t, ctx.Err())
}

// changeOnSettle replaces the page output as soon as the session reports that it has settled.
type changeOnSettle struct {
	page *fakePage
}

func (c changeOnSettle) Println(...interface{}) {}

func (c changeOnSettle) Printf(message string, _ ...interface{}) {
	if strings.HasPrefix(message, "output settled") {
		c.page.lock.Lock()
		c.page.script = func(time.Duration) string { return "changed" }
		c.page.lock.Unlock()
	}
}

func TestRunCaseComparesTheSettledOutput(t *testing.T) {
	page := newFakePage()
	s, err := NewSession(page, testConfig(), changeOnSettle{page: page})
	require.NoError(t, err)

	result := s.RunCase(context.Background(), testmodel.TestCase{ID: "a", Input: "mama", Expected: "මම"})
	require.NoError(t, result.Err)
	assert.Equal(t, "මම", result.ActualOutput)
}

func TestBrokenIsSafeDuringRecovery(t *testing.T) {
	page := newFakePage()
	page.input = "old input"
	page.inputAt = time.Now()
	page.ignoreClear = true
	s := newTestSession(t, page, testConfig())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.RunCase(context.Background(), testmodel.TestCase{ID: "a", Input: "mama", Expected: "මම"})
	}()
	for {
		_ = s.Broken()
		select {
		case <-done:
			assert.Error(t, s.Broken())
			return
		default:
		}
	}
}
