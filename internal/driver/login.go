package driver

import (
	"context"
	"net/url"
	"strings"

	"github.com/playwright-community/playwright-go"
)

// Login authenticates against the portal. Requires an initialised,
// uninitialised-state driver; transitions to authenticated on success.
// Re-login against an already-authenticated dashboard short-circuits.
func (d *Driver) Login(ctx context.Context) error {
	if err := d.requireState("login", stateUninitialized); err != nil {
		return err
	}

	if _, err := d.page.Goto(d.opts.DashboardURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(gotoWaitMs),
	}); err != nil {
		return &LoginError{Reason: "dashboard unreachable: " + err.Error()}
	}

	// Already logged in from a persisted profile or a previous page.
	if marker, err := d.page.QuerySelector(authMarkerSelector); err == nil && marker != nil {
		d.log.Debug().Msg("dashboard already authenticated, skipping login form")
		d.state = stateAuthenticated
		return nil
	}

	username := d.firstMatch(usernameSelectors)
	if username == nil {
		return &LoginError{Reason: "username field not found", LastURL: d.page.URL()}
	}
	password := d.firstMatch(passwordSelectors)
	if password == nil {
		return &LoginError{Reason: "password field not found", LastURL: d.page.URL()}
	}
	submit := d.findSubmitControl()
	if submit == nil {
		return &LoginError{Reason: "submit control not found", LastURL: d.page.URL()}
	}

	if err := username.Fill(d.opts.Credentials.Username); err != nil {
		return &LoginError{Reason: "could not fill username: " + err.Error(), LastURL: d.page.URL()}
	}
	if err := password.Fill(d.opts.Credentials.Password); err != nil {
		return &LoginError{Reason: "could not fill password: " + err.Error(), LastURL: d.page.URL()}
	}
	if err := clickWithRetry(submit); err != nil {
		return &LoginError{Reason: "could not click submit: " + err.Error(), LastURL: d.page.URL()}
	}

	if err := d.page.WaitForURL(d.dashboardGlob(), playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(loginWaitMs),
	}); err != nil {
		// The navigation can complete before the wait attaches; check
		// the URL once more before declaring failure.
		if !d.onDashboard() {
			return &LoginError{Reason: "did not reach dashboard after submit", LastURL: d.page.URL()}
		}
	}

	d.state = stateAuthenticated
	d.saveProfile()
	return nil
}

// findSubmitControl tries submit-typed controls first, then any button
// whose visible text matches a known login word.
func (d *Driver) findSubmitControl() playwright.ElementHandle {
	if el := d.firstMatch(submitSelectors); el != nil {
		return el
	}

	buttons, err := d.page.QuerySelectorAll("button")
	if err != nil {
		return nil
	}
	for _, b := range buttons {
		text, err := b.TextContent()
		if err != nil {
			continue
		}
		if containsAnyFold(text, submitTextWords) {
			return b
		}
	}
	return nil
}

// dashboardGlob builds the URL pattern the post-submit wait targets.
func (d *Driver) dashboardGlob() string {
	u, err := url.Parse(d.opts.DashboardURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return d.opts.DashboardURL + "**"
	}
	return "**" + u.Path + "**"
}

func (d *Driver) onDashboard() bool {
	u, err := url.Parse(d.opts.DashboardURL)
	if err != nil {
		return false
	}
	current := d.page.URL()
	if u.Path != "" && u.Path != "/" {
		return strings.Contains(current, u.Path)
	}
	return strings.HasPrefix(current, d.opts.DashboardURL)
}

// saveProfile persists the context's storage state so the next driver
// for this session id can skip the login form. Best effort.
func (d *Driver) saveProfile() {
	if d.opts.Profiles == nil {
		return
	}
	path, _ := d.opts.Profiles.StatePath(d.opts.SessionID)
	if _, err := d.browserC.StorageState(path); err != nil {
		d.log.Warn().Err(err).Msg("could not persist login state")
		return
	}
	d.opts.Profiles.Touch(d.opts.SessionID)
}
