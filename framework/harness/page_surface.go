package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sinhala-translit/translit-test-harness/framework"
	"github.com/sinhala-translit/translit-test-harness/servicedef"
	"github.com/sinhala-translit/translit-test-harness/translit"

	"github.com/playwright-community/playwright-go"
)

const (
	// defaultActionTimeout applies to a page action when the caller's context has no deadline.
	defaultActionTimeout = 10 * time.Second

	maxNetworkIdleWait = 5 * time.Second
)

// collectCandidatesScript returns every element matching the output selector, in document
// order, with the attributes needed to tell the output apart from the input.
const collectCandidatesScript = `(selector) => Array.from(document.querySelectorAll(selector)).map(el => ({
	tag: el.tagName,
	role: el.getAttribute('role') || '',
	contentEditable: el.isContentEditable === true,
	text: el.textContent || ''
}))`

// PageSurface is one open translator page. It implements translit.Surface.
type PageSurface struct {
	browserContext playwright.BrowserContext
	page           playwright.Page
	input          playwright.Locator
	params         servicedef.SurfaceParams
	logger         framework.Logger

	closeOnce sync.Once
	closeErr  error
}

var _ translit.Surface = (*PageSurface)(nil)

func openPage(
	ctx context.Context,
	browser playwright.Browser,
	params servicedef.SurfaceParams,
	logger framework.Logger,
) (*PageSurface, error) {
	browserContext, err := browser.NewContext()
	if err != nil {
		return nil, fmt.Errorf("could not create browser context: %w", err)
	}
	readyMS := float64(params.PageReadyTimeout.Milliseconds())
	browserContext.SetDefaultTimeout(readyMS)
	browserContext.SetDefaultNavigationTimeout(readyMS)

	page, err := browserContext.NewPage()
	if err != nil {
		_ = browserContext.Close()
		return nil, fmt.Errorf("could not create page: %w", err)
	}

	s := &PageSurface{
		browserContext: browserContext,
		page:           page,
		params:         params,
		logger:         logger,
	}
	if err := s.navigate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *PageSurface) navigate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := actionTimeout(ctx, s.params.PageReadyTimeout)
	s.logger.Printf("Opening %s", s.params.BaseURL)
	if _, err := s.page.Goto(s.params.BaseURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   timeout,
	}); err != nil {
		return err
	}

	// the page keeps some connections open on and off, so network idle is not guaranteed
	if err := s.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: actionTimeout(ctx, min(s.params.PageReadyTimeout, maxNetworkIdleWait)),
	}); err != nil {
		s.logger.Printf("Page did not reach network idle, continuing: %s", err)
	}

	s.input = s.page.GetByRole(*playwright.AriaRoleTextbox, playwright.PageGetByRoleOptions{
		Name:  s.params.InputLabel,
		Exact: playwright.Bool(true),
	})
	if err := s.input.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: timeout,
	}); err != nil {
		return fmt.Errorf("input %q did not become visible: %w", s.params.InputLabel, err)
	}
	s.logger.Printf("Page is ready")
	return nil
}

// actionTimeout converts the remaining time on ctx into a Playwright timeout in milliseconds.
func actionTimeout(ctx context.Context, fallback time.Duration) *float64 {
	if fallback <= 0 {
		fallback = defaultActionTimeout
	}
	d := fallback
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < d {
			d = remaining
		}
	}
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return playwright.Float(float64(d.Milliseconds()))
}

func (s *PageSurface) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.input.Clear(playwright.LocatorClearOptions{Timeout: actionTimeout(ctx, defaultActionTimeout)})
}

func (s *PageSurface) Fill(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.input.Fill(text, playwright.LocatorFillOptions{Timeout: actionTimeout(ctx, defaultActionTimeout)})
}

// Type sends one character as a real key press, so the page sees the same keyboard events a user
// would produce.
func (s *PageSurface) Type(ctx context.Context, r rune) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	opts := playwright.LocatorPressSequentiallyOptions{Timeout: actionTimeout(ctx, defaultActionTimeout)}
	if r == '\n' {
		return s.input.Press("Enter", playwright.LocatorPressOptions{Timeout: opts.Timeout})
	}
	return s.input.PressSequentially(string(r), opts)
}

func (s *PageSurface) InputValue(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.input.InputValue(playwright.LocatorInputValueOptions{Timeout: actionTimeout(ctx, defaultActionTimeout)})
}

// OutputCandidates reads every element with the output styling in one round trip.
func (s *PageSurface) OutputCandidates(ctx context.Context) ([]translit.OutputCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := s.page.Evaluate(collectCandidatesScript, s.params.OutputSelector)
	if err != nil {
		return nil, fmt.Errorf("reading output elements: %w", err)
	}
	return decodeCandidates(raw)
}

func decodeCandidates(raw any) ([]translit.OutputCandidate, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var ret []translit.OutputCandidate
	if err := json.Unmarshal(data, &ret); err != nil {
		return nil, fmt.Errorf("unexpected output element data %s: %w", string(data), err)
	}
	return ret, nil
}

// Close closes the page and its browser context. Calling it again has no effect.
func (s *PageSurface) Close() error {
	s.closeOnce.Do(func() {
		if err := s.page.Close(); err != nil {
			_ = s.browserContext.Close()
			s.closeErr = err
			return
		}
		s.closeErr = s.browserContext.Close()
	})
	return s.closeErr
}
