// Package automation wraps one browser driver with lazy initialisation
// and converts driver failures into user-presentable text. Nothing above
// this boundary handles raw automation errors.
package automation

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/courtbot-app/courtbot/pkg/models"
)

// Driver is the browser workflow the session drives. Implemented by
// driver.Driver; faked in tests.
type Driver interface {
	Init(ctx context.Context) error
	Login(ctx context.Context) error
	NavigateToBooking(ctx context.Context, sport, dayName string) error
	AvailableTimes(ctx context.Context) ([]string, error)
	BookCourt(ctx context.Context, time string) (bool, error)
	Connected() bool
	Close(ctx context.Context) error
}

// Session owns one driver. Callers are serialised upstream by the
// registry's busy flag; ensureInitialized is not reentrant-safe on its
// own.
type Session struct {
	driver      Driver
	log         zerolog.Logger
	initialized bool
}

// NewSession wraps a driver. No browser work happens until the first
// query or booking.
func NewSession(driver Driver, logger zerolog.Logger) *Session {
	return &Session{
		driver: driver,
		log:    logger,
	}
}

// Initialized reports whether browser startup and login have completed.
func (s *Session) Initialized() bool {
	return s.initialized
}

// ensureInitialized performs init+login exactly once. A failed login
// leaves the session uninitialised so a later call can retry. A browser
// whose connection died is detected here and recreated.
func (s *Session) ensureInitialized(ctx context.Context) error {
	if s.initialized {
		if s.driver.Connected() {
			return nil
		}
		s.log.Warn().Msg("browser connection died, recreating")
		_ = s.driver.Close(ctx)
		s.initialized = false
	}

	if err := s.driver.Init(ctx); err != nil {
		return err
	}
	if err := s.driver.Login(ctx); err != nil {
		return err
	}

	s.initialized = true
	return nil
}

// Query returns the available slot labels for a sport on a date. The
// second return value is a user-facing failure message, empty on
// success; an empty label list with an empty message means no open
// courts, which is a valid answer.
func (s *Session) Query(ctx context.Context, sport models.Sport, date time.Time) ([]string, string) {
	if err := s.ensureInitialized(ctx); err != nil {
		s.log.Error().Err(err).Msg("initialization failed")
		return nil, "I couldn't log in to the booking site. Please try again in a moment."
	}

	day := strings.ToLower(date.Weekday().String())
	if err := s.driver.NavigateToBooking(ctx, string(sport), day); err != nil {
		s.log.Error().Err(err).Msg("navigation failed")
		return nil, "I couldn't reach the schedule page. Please try again."
	}

	labels, err := s.driver.AvailableTimes(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("slot enumeration failed")
		return nil, "I couldn't read the schedule. Please try again."
	}

	return labels, ""
}

// Book attempts to book the requested time. booked reports whether the
// confirmation click succeeded; failure carries a user-facing message
// when something other than plain slot unavailability went wrong.
func (s *Session) Book(ctx context.Context, sport models.Sport, date time.Time, requested string) (booked bool, failure string) {
	if err := s.ensureInitialized(ctx); err != nil {
		s.log.Error().Err(err).Msg("initialization failed")
		return false, "I couldn't log in to the booking site. Please try again in a moment."
	}

	day := strings.ToLower(date.Weekday().String())
	if err := s.driver.NavigateToBooking(ctx, string(sport), day); err != nil {
		s.log.Error().Err(err).Msg("navigation failed")
		return false, "I couldn't reach the schedule page. Please try again."
	}

	ok, err := s.driver.BookCourt(ctx, requested)
	if err != nil {
		s.log.Error().Err(err).Msg("booking failed")
		return false, "Something went wrong while booking. The slot was not confirmed."
	}

	return ok, ""
}

// Close tears down the driver and releases the browser. Safe to call on
// an uninitialised session.
func (s *Session) Close(ctx context.Context) error {
	s.initialized = false
	return s.driver.Close(ctx)
}
