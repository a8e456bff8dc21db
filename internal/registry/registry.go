// Package registry is the process-wide table of live chat sessions,
// keyed by the client's durable session id. It owns reconnection,
// pending-output buffering, per-session serialisation and idle eviction.
// The transport layer is stateless across reconnects; this table is
// what survives them.
package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/courtbot-app/courtbot/internal/automation"
	"github.com/courtbot-app/courtbot/pkg/models"
)

// ErrBusy is returned when a dispatch arrives while another action is in
// flight for the same session. Rejected immediately, never queued.
var ErrBusy = errors.New("an action is already in progress for this session")

// ErrCapacity is returned when no browser slot is available for a new
// automation session.
var ErrCapacity = errors.New("no browser capacity available right now")

// Transport delivers one message to the attached client.
type Transport interface {
	Send(msg models.ChatMessage) error
}

// Factory builds the automation session for a durable session id, lazily
// on the first action.
type Factory func(sessionID string) *automation.Session

// ActionHandler runs one action against a session's automation and
// returns the user-facing reply. sessionClosed reports that the handler
// tore the automation session down (post-booking teardown), so the
// registry must drop its reference.
type ActionHandler func(ctx context.Context, sess *automation.Session, req models.ActionRequest) (reply string, sessionClosed bool)

// BotOrigin labels registry-delivered messages on the chat channel.
const BotOrigin = "courtbot"

type entry struct {
	id         string
	automation *automation.Session
	transport  Transport
	pending    []models.PendingOutput
	busy       bool
	flushing   bool
	evict      *time.Timer
	holdsSlot  bool
	createdAt  time.Time
	lastSeenAt time.Time
}

// Registry maps durable session ids to live sessions.
type Registry struct {
	mu           sync.Mutex
	sessions     map[string]*entry
	factory      Factory
	handler      ActionHandler
	idleWindow   time.Duration
	browserSlots *semaphore.Weighted
	log          zerolog.Logger
}

// New creates an empty registry. maxBrowsers caps concurrently live
// automation sessions across all clients.
func New(factory Factory, handler ActionHandler, idleWindow time.Duration, maxBrowsers int64, logger zerolog.Logger) *Registry {
	return &Registry{
		sessions:     make(map[string]*entry),
		factory:      factory,
		handler:      handler,
		idleWindow:   idleWindow,
		browserSlots: semaphore.NewWeighted(maxBrowsers),
		log:          logger,
	}
}

// Attach binds a transport to the session, creating the session on first
// contact. Any outputs queued while the client was away are flushed to
// the new transport in original order, and a pending eviction is
// cancelled.
func (r *Registry) Attach(sessionID string, transport Transport) {
	r.mu.Lock()
	e, ok := r.sessions[sessionID]
	if !ok {
		now := time.Now()
		e = &entry{id: sessionID, createdAt: now}
		r.sessions[sessionID] = e
		r.log.Info().Str("session_id", sessionID).Msg("session created")
	}

	if e.evict != nil {
		e.evict.Stop()
		e.evict = nil
	}
	e.transport = transport
	e.lastSeenAt = time.Now()

	if e.flushing {
		// An earlier attach is mid-flush; its loop picks up the new
		// transport and whatever is still queued.
		r.mu.Unlock()
		return
	}
	e.flushing = true
	r.mu.Unlock()

	r.flushPending(e)
}

// flushPending drains the queue to the session's current transport.
// The flushing flag makes this single-flight per entry and diverts
// concurrent Deliver calls into the queue, so queued outputs always
// reach the client in original order.
func (r *Registry) flushPending(e *entry) {
	for {
		r.mu.Lock()
		transport := e.transport
		queued := e.pending
		if transport == nil || len(queued) == 0 {
			e.flushing = false
			r.mu.Unlock()
			return
		}
		e.pending = nil
		r.mu.Unlock()

		for i, out := range queued {
			if err := transport.Send(models.ChatMessage{
				Origin:    out.Origin,
				Text:      out.Text,
				Timestamp: out.Timestamp,
			}); err != nil {
				r.log.Warn().Err(err).Str("session_id", e.id).Msg("failed to flush pending output")
				r.mu.Lock()
				e.pending = append(queued[i:], e.pending...)
				e.flushing = false
				r.mu.Unlock()
				return
			}
		}
		r.log.Info().Str("session_id", e.id).Int("count", len(queued)).Msg("flushed pending outputs")
	}
}

// Detach clears the transport and arms the idle-eviction timer. The
// caller passes the transport it registered in Attach: a stale detach
// from an old connection after the client has already reattached is a
// no-op, so a reconnect never loses its live channel. The automation
// session is kept alive so a quick reconnect picks up a warm browser
// and login.
func (r *Registry) Detach(sessionID string, transport Transport) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	if e.transport != transport {
		return
	}

	e.transport = nil
	e.lastSeenAt = time.Now()
	r.armEvictionLocked(e)
}

// armEvictionLocked starts (or restarts) the idle timer. Caller holds
// the registry lock.
func (r *Registry) armEvictionLocked(e *entry) {
	if e.evict != nil {
		e.evict.Stop()
	}
	id := e.id
	e.evict = time.AfterFunc(r.idleWindow, func() {
		r.evictIfIdle(id)
	})
}

// evictIfIdle destroys a session that is still detached when its timer
// fires. A session with an action in flight gets a fresh full window.
func (r *Registry) evictIfIdle(sessionID string) {
	r.mu.Lock()
	e, ok := r.sessions[sessionID]
	if !ok || e.transport != nil {
		r.mu.Unlock()
		return
	}
	if e.busy {
		r.armEvictionLocked(e)
		r.mu.Unlock()
		return
	}

	delete(r.sessions, sessionID)
	sess := e.automation
	holdsSlot := e.holdsSlot
	r.mu.Unlock()

	r.log.Info().Str("session_id", sessionID).Msg("evicting idle session")
	r.closeAutomation(sess, holdsSlot)
}

func (r *Registry) closeAutomation(sess *automation.Session, holdsSlot bool) {
	if sess != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := sess.Close(ctx); err != nil {
			r.log.Warn().Err(err).Msg("failed to close automation session")
		}
	}
	if holdsSlot {
		r.browserSlots.Release(1)
	}
}

// Dispatch runs one action for a session. A second dispatch while one is
// in flight returns ErrBusy without touching in-flight state. The reply
// is delivered over the live transport, or queued when the client has
// disconnected mid-action.
func (r *Registry) Dispatch(ctx context.Context, sessionID string, req models.ActionRequest) error {
	r.mu.Lock()
	e, ok := r.sessions[sessionID]
	if !ok {
		now := time.Now()
		e = &entry{id: sessionID, createdAt: now, lastSeenAt: now}
		r.sessions[sessionID] = e
	}

	if e.busy {
		r.mu.Unlock()
		return ErrBusy
	}
	e.busy = true
	e.lastSeenAt = time.Now()

	// Lazy, single-flight creation: only the holder of the busy flag
	// ever constructs the automation session.
	if e.automation == nil {
		if !r.browserSlots.TryAcquire(1) {
			e.busy = false
			r.mu.Unlock()
			return ErrCapacity
		}
		e.automation = r.factory(sessionID)
		e.holdsSlot = true
	}
	sess := e.automation
	r.mu.Unlock()

	reply, sessionClosed := r.handler(ctx, sess, req)

	r.mu.Lock()
	e.busy = false
	if sessionClosed && e.automation == sess {
		e.automation = nil
		if e.holdsSlot {
			e.holdsSlot = false
			r.browserSlots.Release(1)
		}
	}
	r.mu.Unlock()

	r.Deliver(sessionID, BotOrigin, reply)
	return nil
}

// Deliver sends a message to the session's client, queueing it when no
// transport is attached or while a pending flush is still draining.
func (r *Registry) Deliver(sessionID, origin, text string) {
	msg := models.ChatMessage{
		Origin:    origin,
		Text:      text,
		Timestamp: time.Now(),
	}

	r.mu.Lock()
	e, ok := r.sessions[sessionID]
	if !ok {
		r.mu.Unlock()
		return
	}
	transport := e.transport
	if transport == nil || e.flushing {
		e.pending = append(e.pending, models.PendingOutput{
			Origin:    msg.Origin,
			Text:      msg.Text,
			Timestamp: msg.Timestamp,
		})
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	if err := transport.Send(msg); err != nil {
		r.log.Warn().Err(err).Str("session_id", sessionID).Msg("delivery failed, queueing output")
		r.mu.Lock()
		if e, ok := r.sessions[sessionID]; ok {
			e.pending = append(e.pending, models.PendingOutput{
				Origin:    msg.Origin,
				Text:      msg.Text,
				Timestamp: msg.Timestamp,
			})
		}
		r.mu.Unlock()
	}
}

// Sessions returns the admin view of every live session.
func (r *Registry) Sessions() []models.SessionInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]models.SessionInfo, 0, len(r.sessions))
	for _, e := range r.sessions {
		status := models.StatusDisconnected
		if e.transport != nil {
			status = models.StatusConnected
		}
		infos = append(infos, models.SessionInfo{
			ID:          e.id,
			Status:      status,
			Busy:        e.busy,
			Automation:  e.automation != nil,
			PendingMsgs: len(e.pending),
			CreatedAt:   e.createdAt,
			LastSeenAt:  e.lastSeenAt,
		})
	}
	return infos
}

// Get returns the admin view of one session.
func (r *Registry) Get(sessionID string) (models.SessionInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[sessionID]
	if !ok {
		return models.SessionInfo{}, false
	}
	status := models.StatusDisconnected
	if e.transport != nil {
		status = models.StatusConnected
	}
	return models.SessionInfo{
		ID:          e.id,
		Status:      status,
		Busy:        e.busy,
		Automation:  e.automation != nil,
		PendingMsgs: len(e.pending),
		CreatedAt:   e.createdAt,
		LastSeenAt:  e.lastSeenAt,
	}, true
}

// Evict force-destroys a session regardless of its idle timer. Sessions
// with an action in flight are refused.
func (r *Registry) Evict(sessionID string) error {
	r.mu.Lock()
	e, ok := r.sessions[sessionID]
	if !ok {
		r.mu.Unlock()
		return errors.New("session not found")
	}
	if e.busy {
		r.mu.Unlock()
		return ErrBusy
	}
	if e.evict != nil {
		e.evict.Stop()
	}
	delete(r.sessions, sessionID)
	sess := e.automation
	holdsSlot := e.holdsSlot
	r.mu.Unlock()

	r.closeAutomation(sess, holdsSlot)
	return nil
}

// Shutdown drains the registry, closing every automation session.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	entries := make([]*entry, 0, len(r.sessions))
	for _, e := range r.sessions {
		if e.evict != nil {
			e.evict.Stop()
		}
		entries = append(entries, e)
	}
	r.sessions = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range entries {
		if e.automation != nil {
			if err := e.automation.Close(ctx); err != nil {
				r.log.Warn().Err(err).Str("session_id", e.id).Msg("failed to close automation session at shutdown")
			}
		}
		if e.holdsSlot {
			r.browserSlots.Release(1)
		}
	}
}
