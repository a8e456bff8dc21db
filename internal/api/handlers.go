// Package api exposes the HTTP surface: the chat websocket, a health
// probe, and admin endpoints over sessions and login profiles.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/courtbot-app/courtbot/internal/registry"
)

// Handler holds dependencies for the session admin endpoints.
type Handler struct {
	registry *registry.Registry
	log      zerolog.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(reg *registry.Registry, logger zerolog.Logger) *Handler {
	return &Handler{
		registry: reg,
		log:      logger,
	}
}

// ListSessions handles GET /v1/sessions
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.registry.Sessions()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sessions)
}

// GetSession handles GET /v1/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	info, ok := h.registry.Get(id)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}

// DeleteSession handles DELETE /v1/sessions/{id}. It force-evicts the
// session and tears down its automation.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	if err := h.registry.Evict(id); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, registry.ErrBusy) {
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}

	h.log.Info().Str("session_id", id).Msg("session evicted by admin")
	w.WriteHeader(http.StatusNoContent)
}

// Healthz handles GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
