// Package driver automates the club portal's booking workflow against a
// live browser page. The portal offers no API and no stable selectors,
// so every step is a cascade of location strategies tried in order.
package driver

import (
	"context"
	"fmt"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"

	"github.com/courtbot-app/courtbot/internal/browser"
	"github.com/courtbot-app/courtbot/internal/profile"
)

// Wait budgets in milliseconds. Every remote interaction is bounded; a
// timed-out wait is a failed step, not a hang.
const (
	shortWaitMs = 3_000.0
	stepWaitMs  = 10_000.0
	loginWaitMs = 20_000.0
	gotoWaitMs  = 30_000.0
)

// Credentials authenticate against the club portal.
type Credentials struct {
	Username string
	Password string
}

// Options configures a Driver.
type Options struct {
	SessionID    string
	DashboardURL string
	Credentials  Credentials
	// Companions are known partner-name fragments used as the last
	// companion-selection strategy.
	Companions []string
	Launcher   browser.Launcher
	Profiles   *profile.Store
	Logger     zerolog.Logger
}

// Driver owns one browser page and walks it through the booking
// workflow. Not safe for concurrent use; the registry serialises calls.
type Driver struct {
	opts  Options
	log   zerolog.Logger
	state state

	instance *browser.Instance
	browserC playwright.BrowserContext
	page     playwright.Page
}

// New creates an uninitialised driver. No browser resources are
// acquired until Init.
func New(opts Options) *Driver {
	return &Driver{
		opts:  opts,
		log:   opts.Logger.With().Str("session_id", opts.SessionID).Logger(),
		state: stateUninitialized,
	}
}

// Init acquires the browser, context and page. Failure is fatal to the
// call and propagated; there is no internal retry.
func (d *Driver) Init(ctx context.Context) error {
	if d.page != nil {
		return nil
	}

	instance, err := d.opts.Launcher.Launch(ctx, d.opts.SessionID)
	if err != nil {
		return fmt.Errorf("failed to acquire browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{}
	if d.opts.Profiles != nil {
		if path, ok := d.opts.Profiles.StatePath(d.opts.SessionID); ok {
			contextOpts.StorageStatePath = playwright.String(path)
		}
	}

	browserCtx, err := instance.Browser.NewContext(contextOpts)
	if err != nil {
		instance.Close(ctx)
		return fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		instance.Close(ctx)
		return fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(stepWaitMs)

	d.instance = instance
	d.browserC = browserCtx
	d.page = page
	d.state = stateUninitialized
	return nil
}

// Connected reports whether the underlying browser connection is still
// alive. A dead connection means the next user must recreate the driver.
func (d *Driver) Connected() bool {
	return d.instance != nil && d.instance.Browser.IsConnected()
}

// Close tears down the browser resources and leaves the driver in the
// terminal closed state: every workflow operation rejects a closed
// driver until Init revives it. Idempotent.
func (d *Driver) Close(ctx context.Context) error {
	if d.instance == nil {
		d.state = stateClosed
		return nil
	}

	if d.page != nil {
		_ = d.page.Close()
	}
	if d.browserC != nil {
		_ = d.browserC.Close()
	}
	err := d.instance.Close(ctx)

	d.page = nil
	d.browserC = nil
	d.instance = nil
	d.state = stateClosed
	return err
}

// firstMatch returns the first element matched by any selector in the
// cascade, or nil when every strategy comes up empty. Strategy failure
// is a value, not an exception.
func (d *Driver) firstMatch(selectors []string) playwright.ElementHandle {
	for _, sel := range selectors {
		el, err := d.page.QuerySelector(sel)
		if err == nil && el != nil {
			return el
		}
	}
	return nil
}

// clickWithRetry clicks an element, retrying with a forced click when
// the plain click throws (overlays intercept pointer events on some
// layouts).
func clickWithRetry(el playwright.ElementHandle) error {
	if err := el.Click(playwright.ElementHandleClickOptions{
		Timeout: playwright.Float(shortWaitMs),
	}); err != nil {
		return el.Click(playwright.ElementHandleClickOptions{
			Force:   playwright.Bool(true),
			Timeout: playwright.Float(shortWaitMs),
		})
	}
	return nil
}

// clickStructural waits for a structural path and clicks it. No text
// fallback: callers use it for steps where the positional path is the
// only reliable handle.
func (d *Driver) clickStructural(selector string, timeoutMs float64) error {
	el, err := d.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(timeoutMs),
	})
	if err != nil {
		return err
	}
	if el == nil {
		return fmt.Errorf("no element for %q", selector)
	}
	return clickWithRetry(el)
}
