// Package browser drives the publish target's web UI through an automated
// Chrome instance. The target exposes no publishing API, so publishing is an
// ordered sequence of DOM interactions: inject an exported session, open the
// upload modal, submit the media file, fill caption/schedule, and confirm.
//
// The flow tolerates an opaque, change-prone third-party UI: element lookup
// goes through selector fallback chains, server-side processing is bridged by
// fixed configurable waits (the UI exposes no reliable completion signal),
// and every failure is step-tagged and accompanied by best-effort screenshot,
// URL and title capture. The browser is torn down on every exit path.
package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/hieund/repostbot/internal/logger"
)

// scheduleTimeLayout is the format the target UI's schedule picker accepts.
const scheduleTimeLayout = "02-01-2006 15:04"

// attemptTimeout caps a whole publish attempt; a wedged page must not hold
// the single worker slot forever.
const attemptTimeout = 5 * time.Minute

// Config holds browser automation settings. The wait durations are fixed,
// empirically chosen stand-ins for server-side processing the target UI
// exposes no programmatic signal for.
type Config struct {
	Headless          bool
	Stealth           bool // engage anti-automation-detection measures
	TargetURL         string
	DiagnosticsDir    string
	UserAgent         string
	PageLoadWait      time.Duration
	SessionReloadWait time.Duration
	ProcessingWait    time.Duration
	FinalizeWait      time.Duration
	ConfirmWait       time.Duration
	SelectorWait      time.Duration // per strategy in a fallback chain
}

// Request carries the inputs for one publish attempt.
type Request struct {
	MediaPath   string
	CookiesJSON string
	Caption     string     // empty = no caption step
	ScheduleAt  *time.Time // in-platform schedule; nil = publish immediately
}

// Controller drives publish attempts. It is stateless between attempts; all
// per-attempt state lives for the duration of one Publish call.
type Controller struct {
	cfg    Config
	logger *logger.Logger
}

// NewController creates a browser automation controller.
func NewController(cfg Config, log *logger.Logger) *Controller {
	return &Controller{cfg: cfg, logger: log}
}

// Publish runs the full publish flow for one media file. The returned error,
// if any, is a *StepError naming the failing step. Precondition violations
// (unreadable media, unparseable session export) are reported without
// launching a browser.
func (c *Controller) Publish(ctx context.Context, req Request) error {
	mediaPath, err := filepath.Abs(req.MediaPath)
	if err == nil {
		_, err = os.Stat(mediaPath)
	}
	if err != nil {
		return &StepError{Step: StepInit, Err: fmt.Errorf("media file not readable: %w", err)}
	}

	cookies, skippedInExport, err := ParseCookieExport(req.CookiesJSON)
	if err != nil {
		return &StepError{Step: StepInjectSession, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()

	a := &attempt{
		controller: c,
		req:        req,
		mediaPath:  mediaPath,
		cookies:    cookies,
		skipped:    skippedInExport,
	}
	defer a.close()

	if err := runSteps(ctx, a.steps()); err != nil {
		stepErr := err.(*StepError)
		a.captureDiagnostics(stepErr.Step)
		return stepErr
	}
	return nil
}

// attempt is the transient per-invocation state: the browser instance and the
// cookie set being injected. It is always torn down via close().
type attempt struct {
	controller *Controller
	req        Request
	mediaPath  string
	cookies    []Cookie
	skipped    int

	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
}

func (a *attempt) steps() []step {
	cfg := a.controller.cfg
	return []step{
		{name: StepInitDriver, run: a.initDriver},
		{name: StepOpenTargetPage, run: func(ctx context.Context) error {
			return chromedp.Run(a.browserCtx,
				chromedp.Navigate(cfg.TargetURL),
				chromedp.Sleep(cfg.PageLoadWait),
			)
		}},
		{name: StepInjectSession, run: a.injectSession},
		{name: StepLocateTrigger, run: a.locateAndClick(publishTriggerChain)},
		{name: StepUploadMedia, run: a.uploadMedia},
		{name: StepAwaitProcessing, run: a.wait(cfg.ProcessingWait)},
		{name: StepFillCaption, skip: a.req.Caption == "", run: a.fillCaption},
		{name: StepFillSchedule, skip: a.req.ScheduleAt == nil, run: a.fillSchedule},
		{name: StepAwaitFinalize, run: a.wait(cfg.FinalizeWait)},
		{name: StepSubmitPublish, run: a.locateAndClick(submitPublishChain)},
		{name: StepAwaitConfirmation, run: a.wait(cfg.ConfirmWait)},
	}
}

// initDriver launches Chrome configured to resemble an ordinary user session.
// The target platform fingerprints naive automation, so the automation flag
// is masked and a realistic user agent and locale are set.
func (a *attempt) initDriver(ctx context.Context) error {
	cfg := a.controller.cfg

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-features", "PasswordLeakDetection,PasswordManagerOnboarding"),
		chromedp.Flag("lang", "vi-VN"),
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(1920, 1080),
	}
	if cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	}
	if cfg.Stealth {
		opts = append(opts,
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.Flag("enable-automation", false),
		)
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	a.cancelAlloc = cancelAlloc
	a.cancelBrowser = cancelBrowser
	a.browserCtx = browserCtx

	actions := []chromedp.Action{}
	if cfg.Stealth {
		// Mask navigator.webdriver before any page script observes it.
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(
				`Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`,
			).Do(ctx)
			return err
		}))
	}
	// An empty Run still starts the browser process.
	if err := chromedp.Run(browserCtx, actions...); err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	return nil
}

// injectSession adds each cookie from the session export individually; a
// cookie the browser rejects is skipped rather than aborting the import. The
// page is reloaded afterward so the session takes effect.
func (a *attempt) injectSession(ctx context.Context) error {
	cfg := a.controller.cfg
	imported := 0
	rejected := 0

	err := chromedp.Run(a.browserCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, c := range a.cookies {
				params := network.SetCookie(c.Name, c.Value).
					WithDomain(c.Domain).
					WithPath(c.Path).
					WithSecure(c.Secure).
					WithHTTPOnly(c.HTTPOnly)
				if c.Expires > 0 {
					expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
					params = params.WithExpires(&expires)
				}
				if err := params.Do(ctx); err != nil {
					rejected++
					continue
				}
				imported++
			}
			return nil
		}),
		chromedp.Reload(),
		chromedp.Sleep(cfg.SessionReloadWait),
	)
	if err != nil {
		return fmt.Errorf("failed to apply session cookies: %w", err)
	}

	// Partial success is not an error; whether the publish flow succeeds is
	// the real test of the session.
	a.controller.logger.Info("session cookies imported",
		logger.Field{Key: "imported", Value: imported},
		logger.Field{Key: "rejected", Value: rejected},
		logger.Field{Key: "malformed_in_export", Value: a.skipped})

	// A login button still visible after the reload means the imported
	// session did not take. Not fatal here; the trigger chain will produce
	// the actionable failure if the page really is logged out.
	checkCtx, cancel := context.WithTimeout(a.browserCtx, 2*time.Second)
	loginVisible := chromedp.Run(checkCtx, chromedp.WaitVisible(loginButtonSelector, chromedp.ByQuery)) == nil
	cancel()
	if loginVisible {
		a.controller.logger.Warn("login button visible after session import, session may be expired")
	}
	return nil
}

// locateAndClick resolves a selector fallback chain and clicks the winner.
func (a *attempt) locateAndClick(chain Chain) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sel, idx, err := chain.Resolve(a.browserCtx, a.controller.cfg.SelectorWait, a.probe)
		if err != nil {
			return err
		}
		if idx > 0 {
			a.controller.logger.Debug("selector fallback used",
				logger.Field{Key: "strategy_index", Value: idx},
				logger.Field{Key: "selector", Value: sel.Expr})
		}
		return chromedp.Run(a.browserCtx, chromedp.Click(sel.Expr, queryOption(sel)))
	}
}

// probe waits for a selector to resolve to a visible element within the
// bounded attempt context.
func (a *attempt) probe(ctx context.Context, sel Selector) error {
	return chromedp.Run(ctx, chromedp.WaitVisible(sel.Expr, queryOption(sel)))
}

func queryOption(sel Selector) chromedp.QueryOption {
	if sel.Kind == ByXPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// uploadMedia submits the local file path to the video file input.
func (a *attempt) uploadMedia(ctx context.Context) error {
	return chromedp.Run(a.browserCtx,
		chromedp.WaitReady(fileInputSelector, chromedp.ByQuery),
		chromedp.SetUploadFiles(fileInputSelector, []string{a.mediaPath}, chromedp.ByQuery),
	)
}

// fillCaption focuses the caption input, selects all existing content and
// replaces it with the request's caption.
func (a *attempt) fillCaption(ctx context.Context) error {
	return chromedp.Run(a.browserCtx,
		chromedp.WaitVisible(captionInputSelector, chromedp.ByQuery),
		chromedp.Click(captionInputSelector, chromedp.ByQuery),
		chromedp.Sleep(300*time.Millisecond),
		chromedp.KeyEvent("a", chromedp.KeyModifiers(input.ModifierCtrl)),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return input.InsertText(a.req.Caption).Do(ctx)
		}),
	)
}

// fillSchedule types the formatted time into the scheduling control and
// confirms via the picker's OK button.
func (a *attempt) fillSchedule(ctx context.Context) error {
	formatted := a.req.ScheduleAt.Format(scheduleTimeLayout)
	return chromedp.Run(a.browserCtx,
		chromedp.Click(scheduleInputSelector, chromedp.ByQuery),
		chromedp.SendKeys(scheduleInputSelector, formatted, chromedp.ByQuery),
		chromedp.Click(scheduleOKXPath, chromedp.BySearch),
	)
}

// wait returns a step function sleeping for a fixed duration. These waits
// stand in for server-side transcoding the UI reports no completion for.
func (a *attempt) wait(d time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return chromedp.Run(a.browserCtx, chromedp.Sleep(d))
	}
}

// close tears the browser down. Safe to call when the driver never launched.
func (a *attempt) close() {
	if a.cancelBrowser != nil {
		a.cancelBrowser()
	}
	if a.cancelAlloc != nil {
		a.cancelAlloc()
	}
}
