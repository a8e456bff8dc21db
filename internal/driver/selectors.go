package driver

import (
	"strings"
	"unicode/utf8"
)

// Selector inventory for the club portal. Structural (positional) paths
// are the fastest and most specific but break whenever the vendor ships
// a layout change; text lookups survive layout churn but are ambiguous.
// Each step orders its strategies by which failure mode has actually
// been observed for that element.

// Login form cascades, tried in order. A lookup with zero candidates is
// fatal and names the missing field.
var (
	usernameSelectors = []string{
		`input[type="email"]`,
		`input[type="text"]`,
		`input[name*="username" i]`,
		`input[name*="email" i]`,
		`input[placeholder*="username" i]`,
		`input[placeholder*="email" i]`,
		`input[id*="username" i]`,
		`input[id*="email" i]`,
	}
	passwordSelectors = []string{
		`input[type="password"]`,
	}
	submitSelectors = []string{
		`input[type="submit"]`,
		`button[type="submit"]`,
	}
	submitTextWords = []string{"log in", "sign in", "login", "submit"}
)

// authMarkerSelector is present only on the authenticated dashboard;
// its presence short-circuits re-login.
const authMarkerSelector = `nav .member-menu, a[href*="logout" i]`

// Venue/schedule chain. Structural only: these paths have proven stable
// and there is no usable text on the targets, so a timeout fails fast.
var navigationChain = []struct {
	step     string
	selector string
}{
	{"open venue selector", `xpath=//header//div[contains(@class,"location-picker")]//button`},
	{"choose venue", `xpath=//div[contains(@class,"location-list")]//li[1]//a`},
	{"save venue", `xpath=//div[contains(@class,"location-list")]/following-sibling::div//button[1]`},
	{"open schedule menu", `xpath=//nav//ul/li[2]/a`},
	{"choose court booking", `xpath=//nav//ul/li[2]//ul/li[1]/a`},
}

// Sport selection: text first (low ambiguity), structural fallback keyed
// by sport when the text engine throws.
var sportFallbackSelectors = map[string]string{
	"tennis":     `xpath=//div[contains(@class,"activity-grid")]//div[1]//button`,
	"pickleball": `xpath=//div[contains(@class,"activity-grid")]//div[2]//button`,
}

var (
	durationSelector = `xpath=//div[contains(@class,"duration-picker")]//button[2]`
	continueSelector = `xpath=//div[contains(@class,"booking-footer")]//button[last()]`
)

// Hourly view switch, three variants tried in order; all failing is a
// warning, not fatal.
var hourlyViewSelectors = []string{
	`button[data-view="hourly"]`,
	`.view-toggle button:nth-child(2)`,
	`xpath=//div[contains(@class,"calendar-toolbar")]//button[contains(.,"Hour")]`,
}

// Slot enumeration strategies 1-3 share the same selector; strategy 4
// falls back to a generic block scan.
const (
	slotSelector          = `button.booking-slot`
	slotContainerSelector = `div.schedule-grid`
	genericBlockSelector  = `div, span, td, b`
)

const nextButtonSelector = `xpath=//div[contains(@class,"booking-footer")]//button[contains(@class,"next") or last()]`

// Companion picker: likely list positions first, then generic list with
// first-element fallback, then known-name text match.
var companionStructuralSelectors = []string{
	`xpath=//div[contains(@class,"partner-list")]//li[1]//button`,
	`xpath=//div[contains(@class,"partner-list")]//li[2]//button`,
	`xpath=//div[contains(@class,"partner-list")]//div[1]//button`,
}

const companionListSelector = `ul li button, .partner-list button`

var confirmTextWords = []string{"confirm", "book", "submit", "complete"}

// dayAbbrevs maps lowercase day names to the two-letter labels the
// schedule header renders. Unknown names fall back to Mo.
var dayAbbrevs = map[string]string{
	"monday":    "Mo",
	"tuesday":   "Tu",
	"wednesday": "We",
	"thursday":  "Th",
	"friday":    "Fr",
	"saturday":  "Sa",
	"sunday":    "Su",
}

func dayAbbrev(dayName string) string {
	if abbrev, ok := dayAbbrevs[strings.ToLower(strings.TrimSpace(dayName))]; ok {
		return abbrev
	}
	return "Mo"
}

// isSlotLabelText reports whether trimmed element text looks like a
// bookable interval: contains a colon and an AM/PM marker, and is short
// enough to be a label rather than a paragraph that mentions a time.
func isSlotLabelText(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || utf8.RuneCountInString(trimmed) > 15 {
		return false
	}
	if !strings.Contains(trimmed, ":") {
		return false
	}
	upper := strings.ToUpper(trimmed)
	return strings.Contains(upper, "AM") || strings.Contains(upper, "PM")
}

// containsAnyFold reports whether text contains any of the words,
// case-insensitively.
func containsAnyFold(text string, words []string) bool {
	lower := strings.ToLower(text)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
