// Package transport is the websocket chat channel between clients and
// the session registry. Connections are ephemeral; the durable session
// id in the URL is what identifies the client across reconnects.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/courtbot-app/courtbot/internal/intent"
	"github.com/courtbot-app/courtbot/internal/ratelimit"
	"github.com/courtbot-app/courtbot/internal/registry"
	"github.com/courtbot-app/courtbot/pkg/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server handles chat websocket connections.
type Server struct {
	registry  *registry.Registry
	extractor intent.Extractor
	limiter   *ratelimit.Limiter
	log       zerolog.Logger
}

// NewServer creates the chat server.
func NewServer(reg *registry.Registry, extractor intent.Extractor, limiter *ratelimit.Limiter, logger zerolog.Logger) *Server {
	return &Server{
		registry:  reg,
		extractor: extractor,
		limiter:   limiter,
		log:       logger,
	}
}

// wsTransport adapts one websocket connection to the registry's
// Transport. Writes are serialised; gorilla connections do not allow
// concurrent writers.
type wsTransport struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (t *wsTransport) Send(msg models.ChatMessage) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.WriteJSON(msg)
}

// HandleChat upgrades the connection, attaches it to the session and
// pumps inbound messages until the client goes away.
func (s *Server) HandleChat(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to upgrade connection")
		return
	}
	defer conn.Close()

	connID := uuid.New().String()[:8]
	log := s.log.With().Str("session_id", sessionID).Str("conn_id", connID).Logger()
	log.Info().Msg("client connected")

	transport := &wsTransport{conn: conn}
	s.registry.Attach(sessionID, transport)
	defer func() {
		// Identified by our own transport: if the client already
		// reconnected on a fresh socket, this detach is a no-op.
		s.registry.Detach(sessionID, transport)
		log.Info().Msg("client disconnected")
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("websocket read error")
			}
			return
		}

		text := strings.TrimSpace(string(data))
		if text == "" {
			continue
		}

		if s.limiter != nil && !s.limiter.Allow(sessionID) {
			s.reply(transport, "You're sending messages faster than I can book courts. Give me a moment.")
			continue
		}

		// Dispatch off the read loop so a second message during an
		// in-flight action reaches the busy rejection instead of
		// blocking behind it. A background context keeps the action
		// alive when the client disconnects mid-flight; the reply is
		// queued for the next reattach.
		go s.handleMessage(context.Background(), log, sessionID, text, transport)
	}
}

// handleMessage resolves the message into an action request and
// dispatches it. Clients may send structured JSON directly; anything
// else goes through the intent extractor.
func (s *Server) handleMessage(ctx context.Context, log zerolog.Logger, sessionID, text string, transport *wsTransport) {
	req, ok := parseStructured(text)
	if !ok {
		var err error
		req, err = s.extractor.Extract(ctx, text)
		if err != nil {
			log.Warn().Err(err).Msg("intent extraction failed")
			s.reply(transport, "Sorry, I didn't understand that. Try \"what times are open on friday\" or \"book tennis tomorrow at 2:30 PM\".")
			return
		}
	}

	err := s.registry.Dispatch(ctx, sessionID, req)
	switch {
	case errors.Is(err, registry.ErrBusy):
		s.reply(transport, "I'm still working on your previous request — one thing at a time.")
	case errors.Is(err, registry.ErrCapacity):
		s.reply(transport, "All booking workers are busy right now. Please try again shortly.")
	case err != nil:
		log.Error().Err(err).Msg("dispatch failed")
		s.reply(transport, "Something went wrong handling that request.")
	}
}

func (s *Server) reply(transport *wsTransport, text string) {
	_ = transport.Send(models.ChatMessage{
		Origin: registry.BotOrigin,
		Text:   text,
	})
}

// parseStructured accepts a raw JSON action request, which spares tests
// and scripted clients the LLM round trip.
func parseStructured(text string) (models.ActionRequest, bool) {
	if !strings.HasPrefix(text, "{") {
		return models.ActionRequest{}, false
	}
	var req models.ActionRequest
	if err := json.Unmarshal([]byte(text), &req); err != nil || req.Action == "" {
		return models.ActionRequest{}, false
	}
	return req, true
}
