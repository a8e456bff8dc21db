package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/courtbot-app/courtbot/internal/ratelimit"
	"github.com/courtbot-app/courtbot/internal/transport"
)

// SetupRoutes configures all HTTP routes.
func (h *Handler) SetupRoutes(profileHandler *ProfileHandler, chatServer *transport.Server, rateLimiter *ratelimit.Limiter) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.Healthz).Methods("GET")

	// API v1 routes
	api := r.PathPrefix("/v1").Subrouter()

	// Chat websocket. Message-level limiting happens inside the chat
	// server against the same limiter.
	api.HandleFunc("/chat/{id}/ws", func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		chatServer.HandleChat(w, r, vars["id"])
	}).Methods("GET")

	// Admin endpoints (rate limited per session id)
	admin := api.PathPrefix("").Subrouter()
	admin.Use(RateLimitMiddleware(rateLimiter, 100))

	admin.HandleFunc("/sessions", h.ListSessions).Methods("GET")
	admin.HandleFunc("/sessions/{id}", h.GetSession).Methods("GET")
	admin.HandleFunc("/sessions/{id}", h.DeleteSession).Methods("DELETE")

	admin.HandleFunc("/profiles/{id}", profileHandler.GetProfile).Methods("GET")
	admin.HandleFunc("/profiles/{id}", profileHandler.DeleteProfile).Methods("DELETE")

	// CORS middleware
	r.Use(corsMiddleware)

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
