package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddBooking(t *testing.T) {
	var received bookingRecord
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := NewWebhookSyncer(srv.URL, zerolog.Nop())
	ok := s.AddBooking(context.Background(), "tennis", "2026-08-24", "2:30 PM", "Sam")

	assert.True(t, ok)
	assert.Equal(t, bookingRecord{
		Sport:     "tennis",
		Date:      "2026-08-24",
		Time:      "2:30 PM",
		Companion: "Sam",
	}, received)
}

func TestAddBookingRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	s := NewWebhookSyncer(srv.URL, zerolog.Nop())
	assert.False(t, s.AddBooking(context.Background(), "tennis", "2026-08-24", "2:30 PM", "Sam"))
}

func TestAddBookingUnreachable(t *testing.T) {
	s := NewWebhookSyncer("http://127.0.0.1:0/webhook", zerolog.Nop())
	assert.False(t, s.AddBooking(context.Background(), "tennis", "2026-08-24", "2:30 PM", "Sam"))
}
