package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sinhala-translit/translit-test-harness/framework"
	"github.com/sinhala-translit/translit-test-harness/servicedef"
	"github.com/sinhala-translit/translit-test-harness/translit"

	"github.com/playwright-community/playwright-go"
)

// TestHarness owns the browser that all page sessions run in.
//
// It checks on startup that the translator page is reachable, then launches a single browser.
// Each call to NewSession opens the page in a fresh browser context, so sessions share no
// cookies, storage, or page state and can be used from different goroutines.
//
// It contains no test logic, only the mechanism that test suites build on.
type TestHarness struct {
	params   servicedef.SurfaceParams
	siteInfo SiteInfo
	pw       *playwright.Playwright
	browser  playwright.Browser
	logger   framework.Logger

	lock     sync.Mutex
	sessions []*PageSurface
	closed   bool
}

// NewTestHarness probes the page over HTTP and launches the browser. An unreachable page is
// reported as a *translit.NavigationError.
func NewTestHarness(
	ctx context.Context,
	params servicedef.SurfaceParams,
	debugLogger framework.Logger,
	startupOutput io.Writer,
) (*TestHarness, error) {
	if debugLogger == nil {
		debugLogger = framework.NullLogger()
	}
	if startupOutput == nil {
		startupOutput = io.Discard
	}
	params = params.WithDefaults()

	siteInfo, err := probeSite(ctx, params.BaseURL, params.PageReadyTimeout, startupOutput)
	if err != nil {
		return nil, &translit.NavigationError{URL: params.BaseURL, Err: err}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start Playwright: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(params.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("could not launch browser: %w", err)
	}
	debugLogger.Printf("Launched Chromium %s (headless: %t)", browser.Version(), params.Headless)

	return &TestHarness{
		params:   params,
		siteInfo: siteInfo,
		pw:       pw,
		browser:  browser,
		logger:   debugLogger,
	}, nil
}

// SiteInfo returns what was learned about the page when the harness started.
func (h *TestHarness) SiteInfo() SiteInfo {
	return h.siteInfo
}

func (h *TestHarness) Params() servicedef.SurfaceParams {
	return h.params
}

// NewSession opens the page in a new browser context and waits until its input is visible. Any
// failure is a *translit.NavigationError.
func (h *TestHarness) NewSession(ctx context.Context, logger framework.Logger) (*PageSurface, error) {
	if logger == nil {
		logger = h.logger
	}
	h.lock.Lock()
	closed := h.closed
	h.lock.Unlock()
	if closed {
		return nil, errors.New("test harness is closed")
	}

	surface, err := openPage(ctx, h.browser, h.params, logger)
	if err != nil {
		return nil, &translit.NavigationError{URL: h.params.BaseURL, Err: err}
	}

	h.lock.Lock()
	defer h.lock.Unlock()
	h.sessions = append(h.sessions, surface)
	return surface, nil
}

// Close shuts down every page, the browser, and the Playwright driver. It returns the first
// error encountered but always tries every step.
func (h *TestHarness) Close() error {
	h.lock.Lock()
	if h.closed {
		h.lock.Unlock()
		return nil
	}
	h.closed = true
	sessions := h.sessions
	h.sessions = nil
	h.lock.Unlock()

	var errs []error
	for _, s := range sessions {
		errs = append(errs, s.Close())
	}
	errs = append(errs, h.browser.Close(), h.pw.Stop())
	return errors.Join(errs...)
}
