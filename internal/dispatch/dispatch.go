// Package dispatch turns structured action requests into automation
// calls and user-facing text.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/courtbot-app/courtbot/internal/automation"
	"github.com/courtbot-app/courtbot/pkg/models"
)

// Syncer records a confirmed booking externally. Called at most once per
// booking; never retried.
type Syncer interface {
	AddBooking(ctx context.Context, sport, date, timeLabel, companion string) bool
}

const calendarSyncTimeout = 5 * time.Second

// Dispatcher validates requests, runs them against the automation
// session and formats the outcome.
type Dispatcher struct {
	calendar  Syncer
	companion string
	log       zerolog.Logger
}

// New creates a dispatcher. companion names the partner attached to
// bookings in user-facing messages; calendar may be nil when no sync
// collaborator is configured.
func New(calendar Syncer, companion string, logger zerolog.Logger) *Dispatcher {
	if companion == "" {
		companion = "your usual partner"
	}
	return &Dispatcher{
		calendar:  calendar,
		companion: companion,
		log:       logger,
	}
}

// Handle runs one action. The second return value reports that the
// automation session was torn down (after a successful booking, to
// release the browser) so the registry drops its reference.
func (d *Dispatcher) Handle(ctx context.Context, sess *automation.Session, req models.ActionRequest) (string, bool) {
	if err := req.Validate(); err != nil {
		return fmt.Sprintf("I can't do that: %v.", err), false
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return fmt.Sprintf("I didn't understand the date %q.", req.Date), false
	}

	switch req.Action {
	case models.ActionQueryTimes:
		return d.handleQuery(ctx, sess, req.Sport, date), false
	case models.ActionBook:
		return d.handleBook(ctx, sess, req.Sport, date, req.Time)
	default:
		return fmt.Sprintf("I can't do that: unknown action %q.", req.Action), false
	}
}

func (d *Dispatcher) handleQuery(ctx context.Context, sess *automation.Session, sport models.Sport, date time.Time) string {
	labels, failure := sess.Query(ctx, sport, date)
	if failure != "" {
		return failure
	}

	formatted := formatDate(date)
	if len(labels) == 0 {
		return fmt.Sprintf("No %s courts are available on %s.", sport, formatted)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Available %s courts on %s:", sport, formatted)
	for _, label := range labels {
		b.WriteString("\n- ")
		b.WriteString(label)
	}
	return b.String()
}

func (d *Dispatcher) handleBook(ctx context.Context, sess *automation.Session, sport models.Sport, date time.Time, requested string) (string, bool) {
	booked, failure := sess.Book(ctx, sport, date, requested)
	if failure != "" {
		return failure, false
	}

	formatted := formatDate(date)
	if !booked {
		return fmt.Sprintf("I couldn't book %s on %s — that slot may no longer be available.", requested, formatted), false
	}

	// The booking is confirmed; release the browser before replying.
	if err := sess.Close(ctx); err != nil {
		d.log.Warn().Err(err).Msg("failed to close automation session after booking")
	}

	msg := fmt.Sprintf("Booked! %s on %s at %s with %s.", capitalize(string(sport)), formatted, requested, d.companion)
	if d.syncCalendar(sport, date, requested) {
		msg += " I've also added it to your calendar."
	}
	return msg, true
}

// syncCalendar records the booking externally, exactly once, bounded by
// its own timeout. Failure is logged and otherwise ignored.
func (d *Dispatcher) syncCalendar(sport models.Sport, date time.Time, timeLabel string) bool {
	if d.calendar == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), calendarSyncTimeout)
	defer cancel()

	ok := d.calendar.AddBooking(ctx, string(sport), date.Format("2006-01-02"), timeLabel, d.companion)
	if !ok {
		d.log.Warn().Msg("calendar sync declined the booking record")
	}
	return ok
}

func formatDate(date time.Time) string {
	return date.Format("Monday, January 2")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
