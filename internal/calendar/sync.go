// Package calendar records confirmed bookings with an external calendar
// collaborator. Failures are reported, never retried; the booking stands
// either way.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// WebhookSyncer POSTs booking records to a configured webhook.
type WebhookSyncer struct {
	httpClient *http.Client
	url        string
	log        zerolog.Logger
}

// NewWebhookSyncer creates a syncer for the given webhook URL.
func NewWebhookSyncer(url string, logger zerolog.Logger) *WebhookSyncer {
	return &WebhookSyncer{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		url:        url,
		log:        logger,
	}
}

type bookingRecord struct {
	Sport     string `json:"sport"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Companion string `json:"companion"`
}

// AddBooking records one booking. Returns whether the collaborator
// accepted it.
func (s *WebhookSyncer) AddBooking(ctx context.Context, sport, date, timeLabel, companion string) bool {
	body, err := json.Marshal(bookingRecord{
		Sport:     sport,
		Date:      date,
		Time:      timeLabel,
		Companion: companion,
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("could not marshal booking record")
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		s.log.Warn().Err(err).Msg("could not build calendar request")
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.log.Warn().Err(err).Msg("calendar sync failed")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.log.Warn().Int("status", resp.StatusCode).Msg("calendar sync rejected")
		return false
	}
	return true
}
