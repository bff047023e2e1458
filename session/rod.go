package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/config"
	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/models"
)

// RodRunner implements Runner on a shared headless browser. Isolation is
// per-attempt: every Open creates a dedicated CDP browser context with the
// proxy bound to it, so cookies, cache, and local storage all start empty
// and no state leaks between attempts.
type RodRunner struct {
	browser    *rod.Browser
	browserCfg config.BrowserConfig
	booking    config.BookingConfig
}

// NewRodRunner launches the shared headless browser.
func NewRodRunner(browserCfg config.BrowserConfig, booking config.BookingConfig) (*RodRunner, error) {
	l := launcher.New().
		Headless(browserCfg.Headless).
		NoSandbox(browserCfg.NoSandbox)

	if browserCfg.BrowserBin != "" {
		l = l.Bin(browserCfg.BrowserBin)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewBookingError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewBookingError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	return &RodRunner{
		browser:    browser,
		browserCfg: browserCfg,
		booking:    booking,
	}, nil
}

// Open creates an isolated browser context routed through the proxy and a
// page inside it. A proxy the browser cannot create a context/page for is
// reported as SESSION_OPEN_FAILED so the caller can discard it.
func (r *RodRunner) Open(ctx context.Context, proxy *models.ProxyRecord) (*Handle, error) {
	bc, err := proto.TargetCreateBrowserContext{
		ProxyServer: proxy.URL(),
	}.Call(r.browser)
	if err != nil {
		return nil, models.NewBookingError(
			models.ErrCodeSessionOpen,
			"failed to create isolated browser context",
			err,
		)
	}

	page, err := r.browser.Page(proto.TargetCreateTarget{
		URL:              "about:blank",
		BrowserContextID: bc.BrowserContextID,
	})
	if err != nil {
		_ = proto.TargetDisposeBrowserContext{BrowserContextID: bc.BrowserContextID}.Call(r.browser)
		return nil, models.NewBookingError(
			models.ErrCodeSessionOpen,
			"failed to open page in browser context",
			err,
		)
	}

	// Stealth must be injected before any navigation happens.
	if r.browserCfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	return &Handle{
		proxy:     proxy,
		startedAt: time.Now(),
		page:      page,
		browser:   r.browser,
		contextID: bc.BrowserContextID,
	}, nil
}

// Submit navigates to the booking form, fills it for the candidate,
// submits, and returns the captured network records.
//
// Ordering matters: the capture recorder is attached before Navigate so
// the assignment response cannot slip past between page load and listener
// registration.
func (r *RodRunner) Submit(ctx context.Context, h *Handle, task *models.Candidate) ([]models.NetworkEvent, error) {
	recCtx, cancel := context.WithCancel(context.Background())
	h.rec = newRecorder(r.booking.CaptureFragment)
	h.cancelRec = cancel
	h.rec.attach(recCtx, h.page)

	p := h.page.Context(ctx)

	if err := p.Navigate(r.booking.URL); err != nil {
		return nil, categorizeError(err, "navigation to booking form failed")
	}
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("DOM did not stabilize before fill, proceeding", "error", err)
	}

	if err := fillBookingForm(p, task); err != nil {
		return nil, err
	}
	if err := submitForm(p); err != nil {
		return nil, err
	}

	// Give the assignment XHR time to land; the wait is bounded by ctx.
	if err := p.WaitDOMStable(500*time.Millisecond, 0.1); err != nil {
		slog.Debug("DOM did not stabilize after submit", "error", err)
	}
	if err := sleepCtx(ctx, time.Second); err != nil {
		return h.rec.snapshot(), categorizeError(err, "submission interrupted")
	}

	return h.rec.snapshot(), nil
}

// Complete finishes the booking after a positive match: confirms the
// assignment and captures the confirmation page as the artifact.
func (r *RodRunner) Complete(ctx context.Context, h *Handle, task *models.Candidate) (*models.Artifact, error) {
	p := h.page.Context(ctx)

	if err := confirmBooking(p); err != nil {
		return nil, err
	}
	if err := p.WaitDOMStable(500*time.Millisecond, 0.1); err != nil {
		slog.Debug("confirmation page did not stabilize", "error", err)
	}

	html, err := p.HTML()
	if err != nil {
		return nil, categorizeError(err, "failed to capture confirmation page")
	}
	ref := evalStringOrEmpty(p, `() => window.location.href`)

	return &models.Artifact{
		Ref:        ref,
		HTML:       html,
		CapturedAt: time.Now(),
	}, nil
}

// Close tears down the session: stops capture, closes the page, and
// disposes the browser context (which discards its storage). Idempotent.
func (r *RodRunner) Close(h *Handle) error {
	if h == nil || !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	if h.cancelRec != nil {
		h.cancelRec()
	}
	if err := h.page.Close(); err != nil {
		slog.Debug("page close failed", "error", err)
	}
	if h.contextID != "" {
		err := proto.TargetDisposeBrowserContext{BrowserContextID: h.contextID}.Call(h.browser)
		if err != nil {
			slog.Debug("browser context dispose failed", "error", err)
		}
	}
	return nil
}

// Shutdown kills the shared browser process. Call on graceful shutdown to
// prevent zombie Chrome processes.
func (r *RodRunner) Shutdown() {
	slog.Info("session runner shutting down: closing browser")
	r.browser.MustClose()
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// categorizeError wraps raw errors into typed BookingErrors.
func categorizeError(err error, msg string) *models.BookingError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewBookingError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewBookingError(models.ErrCodeTimeout, "attempt canceled", err)
	default:
		return models.NewBookingError(models.ErrCodeSubmission, msg, err)
	}
}
