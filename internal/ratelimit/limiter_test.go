package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowEnforcesBurst(t *testing.T) {
	l := NewLimiter(60, 2)

	assert.True(t, l.Allow("session-a"))
	assert.True(t, l.Allow("session-a"))
	assert.False(t, l.Allow("session-a"))

	// Other sessions have their own budget.
	assert.True(t, l.Allow("session-b"))
}

func TestForgetResetsBudget(t *testing.T) {
	l := NewLimiter(60, 1)

	assert.True(t, l.Allow("session-a"))
	assert.False(t, l.Allow("session-a"))

	l.Forget("session-a")
	assert.True(t, l.Allow("session-a"))
}
