package slots

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractStart(t *testing.T) {
	tests := []struct {
		name  string
		label string
		want  string
		ok    bool
	}{
		{"interval label", "2:30 – 4:00 PM", "2:30", true},
		{"hyphen interval", "12:30 - 2:00 PM", "12:30", true},
		{"bare time", "7:00", "7:00", true},
		{"leading whitespace", "  9:15 AM", "9:15", true},
		{"no time prefix", "Court 3", "", false},
		{"time not leading", "from 2:30 PM", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractStart(tt.label)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name      string
		requested string
		label     string
		want      bool
	}{
		{"exact start", "2:30 PM", "2:30 - 4:00 PM", true},
		{"bare request", "2:30", "2:30 – 4:00 PM", true},
		{"no cross match on suffix", "2:30", "12:30 - 2:00 PM", false},
		{"no cross match reversed", "12:30", "2:30 - 4:00 PM", false},
		{"label without time", "2:30", "Court unavailable", false},
		{"request without time", "afternoon", "2:30 - 4:00 PM", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.requested, tt.label))
		})
	}
}

func TestDedupe(t *testing.T) {
	in := []string{"2:30 PM", "4:00 PM", "2:30 PM", "5:30 PM", "4:00 PM"}

	got := Dedupe(in)
	assert.Equal(t, []string{"2:30 PM", "4:00 PM", "5:30 PM"}, got)

	// Idempotent.
	assert.Equal(t, got, Dedupe(got))
}

func TestDedupeEmpty(t *testing.T) {
	assert.Empty(t, Dedupe(nil))
	assert.Empty(t, Dedupe([]string{}))
}
