package driver

import (
	"context"
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"
)

// NavigateToBooking walks from the dashboard to the court schedule for
// the given sport and day. It always restarts from the dashboard URL:
// the portal has no reliable back navigation and stale page state causes
// selector failures further down, so the reset is deliberate.
func (d *Driver) NavigateToBooking(ctx context.Context, sport, dayName string) error {
	if err := d.requireAtLeast("navigateToBooking", stateAuthenticated); err != nil {
		return err
	}

	if _, err := d.page.Goto(d.opts.DashboardURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(gotoWaitMs),
	}); err != nil {
		return &NavigationError{Step: "return to dashboard", Err: err}
	}

	for _, link := range navigationChain {
		if err := d.clickStructural(link.selector, stepWaitMs); err != nil {
			return &NavigationError{Step: link.step, Err: err}
		}
	}

	if err := d.selectSport(sport); err != nil {
		return &NavigationError{Step: "select sport", Err: err}
	}

	if err := d.clickStructural(durationSelector, stepWaitMs); err != nil {
		return &NavigationError{Step: "select duration", Err: err}
	}
	if err := d.clickStructural(continueSelector, stepWaitMs); err != nil {
		return &NavigationError{Step: "continue to schedule", Err: err}
	}

	// Day selection is best effort: the schedule often defaults to the
	// requested day already, so a missing abbreviation is logged and
	// skipped rather than aborting the whole flow.
	if err := d.selectDay(dayName); err != nil {
		d.log.Warn().Err(err).Str("day", dayName).Msg("day selection failed, continuing with default view")
	}

	d.switchToHourlyView()

	d.state = stateNavigated
	return nil
}

// selectSport prefers a visible-text match ("Tennis"/"Pickleball") and
// falls back to the structural path for the sport when the text engine
// throws.
func (d *Driver) selectSport(sport string) error {
	if sport == "" {
		return fmt.Errorf("unknown sport %q", sport)
	}

	label := strings.ToUpper(sport[:1]) + strings.ToLower(sport[1:])
	if err := d.page.Click("text="+label, playwright.PageClickOptions{
		Timeout: playwright.Float(shortWaitMs),
	}); err == nil {
		return nil
	}

	fallback, ok := sportFallbackSelectors[strings.ToLower(sport)]
	if !ok {
		return fmt.Errorf("unknown sport %q", sport)
	}
	return d.clickStructural(fallback, stepWaitMs)
}

// selectDay clicks the first element whose exact text equals the
// two-letter day abbreviation. Known risk: when no element matches, the
// flow continues on whatever day the view defaults to; there is no
// post-selection date verification.
func (d *Driver) selectDay(dayName string) error {
	abbrev := dayAbbrev(dayName)

	els, err := d.page.QuerySelectorAll(genericBlockSelector + ", a, button")
	if err != nil {
		return err
	}
	for _, el := range els {
		text, err := el.TextContent()
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) != abbrev {
			continue
		}
		return clickWithRetry(el)
	}
	return fmt.Errorf("no element with day abbreviation %q", abbrev)
}

// switchToHourlyView tries each view-toggle variant in order. All of
// them failing only means the default granularity is used.
func (d *Driver) switchToHourlyView() {
	for _, sel := range hourlyViewSelectors {
		if err := d.page.Click(sel, playwright.PageClickOptions{
			Timeout: playwright.Float(shortWaitMs),
		}); err == nil {
			return
		}
	}
	d.log.Warn().Msg("could not switch to hourly view, assuming default view")
}
