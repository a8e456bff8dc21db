package automation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtbot-app/courtbot/pkg/models"
)

// fakeDriver counts calls and scripts failures per operation.
type fakeDriver struct {
	initCalls     int
	loginCalls    int
	navigateCalls int
	closeCalls    int

	initErr   error
	loginErr  error
	navErr    error
	connected bool

	labels  []string
	booked  bool
	bookErr error

	lastSport string
	lastDay   string
}

func (f *fakeDriver) Init(ctx context.Context) error {
	f.initCalls++
	if f.initErr != nil {
		return f.initErr
	}
	f.connected = true
	return nil
}

func (f *fakeDriver) Login(ctx context.Context) error {
	f.loginCalls++
	return f.loginErr
}

func (f *fakeDriver) NavigateToBooking(ctx context.Context, sport, dayName string) error {
	f.navigateCalls++
	f.lastSport = sport
	f.lastDay = dayName
	return f.navErr
}

func (f *fakeDriver) AvailableTimes(ctx context.Context) ([]string, error) {
	return f.labels, nil
}

func (f *fakeDriver) BookCourt(ctx context.Context, t string) (bool, error) {
	return f.booked, f.bookErr
}

func (f *fakeDriver) Connected() bool { return f.connected }

func (f *fakeDriver) Close(ctx context.Context) error {
	f.closeCalls++
	f.connected = false
	return nil
}

func mustDate(t *testing.T, iso string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", iso)
	require.NoError(t, err)
	return d
}

func TestQueryInitializesOnce(t *testing.T) {
	fake := &fakeDriver{labels: []string{"2:30 PM"}}
	s := NewSession(fake, zerolog.Nop())

	// 2026-08-24 is a Monday.
	date := mustDate(t, "2026-08-24")

	labels, failure := s.Query(context.Background(), models.SportTennis, date)
	assert.Empty(t, failure)
	assert.Equal(t, []string{"2:30 PM"}, labels)
	assert.Equal(t, "tennis", fake.lastSport)
	assert.Equal(t, "monday", fake.lastDay)

	_, failure = s.Query(context.Background(), models.SportTennis, date)
	assert.Empty(t, failure)
	assert.Equal(t, 1, fake.initCalls, "second query must reuse the initialized driver")
	assert.Equal(t, 1, fake.loginCalls)
}

func TestQueryEmptyScheduleIsNotAnError(t *testing.T) {
	fake := &fakeDriver{labels: nil}
	s := NewSession(fake, zerolog.Nop())

	labels, failure := s.Query(context.Background(), models.SportTennis, mustDate(t, "2026-08-24"))
	assert.Empty(t, failure)
	assert.Empty(t, labels)
}

func TestFailedLoginLeavesSessionUninitialized(t *testing.T) {
	fake := &fakeDriver{loginErr: errors.New("form not found")}
	s := NewSession(fake, zerolog.Nop())

	_, failure := s.Query(context.Background(), models.SportTennis, mustDate(t, "2026-08-24"))
	assert.NotEmpty(t, failure)
	assert.False(t, s.Initialized())

	// A later attempt retries the whole init+login sequence.
	fake.loginErr = nil
	_, failure = s.Query(context.Background(), models.SportTennis, mustDate(t, "2026-08-24"))
	assert.Empty(t, failure)
	assert.True(t, s.Initialized())
	assert.Equal(t, 2, fake.loginCalls)
}

func TestDeadBrowserIsRecreated(t *testing.T) {
	fake := &fakeDriver{}
	s := NewSession(fake, zerolog.Nop())

	_, failure := s.Query(context.Background(), models.SportTennis, mustDate(t, "2026-08-24"))
	require.Empty(t, failure)

	// Kill the connection out from under the session.
	fake.connected = false

	_, failure = s.Query(context.Background(), models.SportTennis, mustDate(t, "2026-08-24"))
	assert.Empty(t, failure)
	assert.Equal(t, 1, fake.closeCalls, "dead driver must be closed before re-init")
	assert.Equal(t, 2, fake.initCalls)
}

func TestBookTranslatesDriverError(t *testing.T) {
	fake := &fakeDriver{bookErr: errors.New("companion selection failed")}
	s := NewSession(fake, zerolog.Nop())

	booked, failure := s.Book(context.Background(), models.SportPickleball, mustDate(t, "2026-08-25"), "2:30 PM")
	assert.False(t, booked)
	assert.NotEmpty(t, failure)
	assert.NotContains(t, failure, "companion selection", "raw driver detail must not leak to users")
}

func TestBookSlotUnavailable(t *testing.T) {
	fake := &fakeDriver{booked: false}
	s := NewSession(fake, zerolog.Nop())

	booked, failure := s.Book(context.Background(), models.SportTennis, mustDate(t, "2026-08-25"), "2:30 PM")
	assert.False(t, booked)
	assert.Empty(t, failure, "slot-not-found is a result, not an error")
}

func TestNavigationFailureIsRecoverable(t *testing.T) {
	fake := &fakeDriver{navErr: errors.New("venue selector timed out")}
	s := NewSession(fake, zerolog.Nop())

	_, failure := s.Query(context.Background(), models.SportTennis, mustDate(t, "2026-08-24"))
	assert.NotEmpty(t, failure)
	assert.True(t, s.Initialized(), "navigation failure must not tear down the login")
}

func TestCloseResetsInitialized(t *testing.T) {
	fake := &fakeDriver{}
	s := NewSession(fake, zerolog.Nop())

	_, failure := s.Query(context.Background(), models.SportTennis, mustDate(t, "2026-08-24"))
	require.Empty(t, failure)
	require.True(t, s.Initialized())

	require.NoError(t, s.Close(context.Background()))
	assert.False(t, s.Initialized())
}
