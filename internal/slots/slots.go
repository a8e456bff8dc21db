// Package slots implements pure text matching between requested start
// times and the slot labels rendered by the club portal's schedule page.
//
// Matching is deliberately strict: the portal renders overlapping-looking
// labels ("2:30 – 4:00 PM" next to "12:30 – 2:00 PM") and loose matching
// has caused wrong-slot bookings before. Only a character-identical start
// token is a match; there is no AM/PM normalisation.
package slots

import (
	"regexp"
	"strings"
)

// startToken matches a leading H:MM time token, e.g. "2:30" in
// "2:30 – 4:00 PM". Labels that do not begin with a time do not match.
var startToken = regexp.MustCompile(`^(\d{1,2}:\d{2})`)

// ExtractStart returns the leading H:MM token of a label and whether one
// was present.
func ExtractStart(label string) (string, bool) {
	trimmed := strings.TrimSpace(label)
	m := startToken.FindStringSubmatch(trimmed)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Matches reports whether the requested time and the slot label begin
// with the same start token. "2:30" never matches a label beginning
// "12:30".
func Matches(requested, label string) bool {
	want, ok := ExtractStart(requested)
	if !ok {
		return false
	}
	got, ok := ExtractStart(label)
	if !ok {
		return false
	}
	return want == got
}

// Dedupe collapses repeated labels, preserving first-seen order. The
// schedule page renders the same label more than once for some intervals.
func Dedupe(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out
}
