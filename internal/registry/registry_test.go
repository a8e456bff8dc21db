package registry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtbot-app/courtbot/internal/automation"
	"github.com/courtbot-app/courtbot/pkg/models"
)

// idleDriver satisfies automation.Driver without touching a browser.
type idleDriver struct {
	mu         sync.Mutex
	closeCalls int
}

func (d *idleDriver) Init(ctx context.Context) error  { return nil }
func (d *idleDriver) Login(ctx context.Context) error { return nil }
func (d *idleDriver) NavigateToBooking(ctx context.Context, sport, dayName string) error {
	return nil
}
func (d *idleDriver) AvailableTimes(ctx context.Context) ([]string, error) { return nil, nil }
func (d *idleDriver) BookCourt(ctx context.Context, t string) (bool, error) {
	return false, nil
}
func (d *idleDriver) Connected() bool { return true }
func (d *idleDriver) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeCalls++
	return nil
}

func (d *idleDriver) closed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closeCalls
}

// recordingTransport captures delivered messages.
type recordingTransport struct {
	mu   sync.Mutex
	msgs []models.ChatMessage
}

func (t *recordingTransport) Send(msg models.ChatMessage) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.msgs = append(t.msgs, msg)
	return nil
}

func (t *recordingTransport) messages() []models.ChatMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.ChatMessage{}, t.msgs...)
}

type testRig struct {
	registry  *Registry
	driver    *idleDriver
	factories int
	mu        sync.Mutex
}

func newTestRig(t *testing.T, idleWindow time.Duration, maxBrowsers int64, handler ActionHandler) *testRig {
	t.Helper()
	rig := &testRig{driver: &idleDriver{}}
	factory := func(sessionID string) *automation.Session {
		rig.mu.Lock()
		rig.factories++
		rig.mu.Unlock()
		return automation.NewSession(rig.driver, zerolog.Nop())
	}
	if handler == nil {
		handler = func(ctx context.Context, sess *automation.Session, req models.ActionRequest) (string, bool) {
			return "ok", false
		}
	}
	rig.registry = New(factory, handler, idleWindow, maxBrowsers, zerolog.Nop())
	return rig
}

func (r *testRig) factoryCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.factories
}

func queryReq() models.ActionRequest {
	return models.ActionRequest{
		Action: models.ActionQueryTimes,
		Sport:  models.SportTennis,
		Date:   "2026-08-24",
	}
}

func TestDispatchRejectsWhileBusy(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	handler := func(ctx context.Context, sess *automation.Session, req models.ActionRequest) (string, bool) {
		close(started)
		<-release
		return "done", false
	}
	rig := newTestRig(t, time.Minute, 5, handler)

	transport := &recordingTransport{}
	rig.registry.Attach("alice", transport)

	errCh := make(chan error, 1)
	go func() {
		errCh <- rig.registry.Dispatch(context.Background(), "alice", queryReq())
	}()
	<-started

	err := rig.registry.Dispatch(context.Background(), "alice", queryReq())
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-errCh)

	// The in-flight action completed untouched by the rejected dispatch.
	msgs := transport.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "done", msgs[0].Text)
	assert.Equal(t, 1, rig.factoryCalls())
}

func TestReattachBeforeIdleWindowKeepsSessionAndFlushesPending(t *testing.T) {
	rig := newTestRig(t, 200*time.Millisecond, 5, nil)

	first := &recordingTransport{}
	rig.registry.Attach("bob", first)
	require.NoError(t, rig.registry.Dispatch(context.Background(), "bob", queryReq()))
	rig.registry.Detach("bob", first)

	// Output produced while detached must queue, not vanish.
	rig.registry.Deliver("bob", BotOrigin, "while you were away 1")
	rig.registry.Deliver("bob", BotOrigin, "while you were away 2")

	second := &recordingTransport{}
	rig.registry.Attach("bob", second)

	msgs := second.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "while you were away 1", msgs[0].Text)
	assert.Equal(t, "while you were away 2", msgs[1].Text)

	// Reattach cancelled the eviction: the warm automation survives.
	time.Sleep(300 * time.Millisecond)
	info, ok := rig.registry.Get("bob")
	require.True(t, ok)
	assert.True(t, info.Automation)
	assert.Zero(t, rig.driver.closed())
}

func TestStaleDetachKeepsFreshTransportAttached(t *testing.T) {
	rig := newTestRig(t, 50*time.Millisecond, 5, nil)

	old := &recordingTransport{}
	rig.registry.Attach("jane", old)
	require.NoError(t, rig.registry.Dispatch(context.Background(), "jane", queryReq()))

	// The client reconnects before the server notices the old socket
	// died; the old connection's detach arrives afterwards.
	fresh := &recordingTransport{}
	rig.registry.Attach("jane", fresh)
	rig.registry.Detach("jane", old)

	rig.registry.Deliver("jane", BotOrigin, "hello again")
	msgs := fresh.messages()
	require.Len(t, msgs, 1, "reply must reach the live transport, not the pending queue")
	assert.Equal(t, "hello again", msgs[0].Text)

	// The stale detach must not have armed eviction under a live client.
	time.Sleep(150 * time.Millisecond)
	info, ok := rig.registry.Get("jane")
	require.True(t, ok, "session evicted while a client was attached")
	assert.True(t, info.Automation)
	assert.Zero(t, rig.driver.closed())

	// A detach from the current transport still works.
	rig.registry.Detach("jane", fresh)
	assert.Eventually(t, func() bool {
		_, ok := rig.registry.Get("jane")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

// gateTransport blocks its first send until released, holding a flush
// open so the test can race a delivery against it.
type gateTransport struct {
	recordingTransport
	firstSend chan struct{}
	release   chan struct{}
	once      sync.Once
}

func (t *gateTransport) Send(msg models.ChatMessage) error {
	t.once.Do(func() {
		close(t.firstSend)
		<-t.release
	})
	return t.recordingTransport.Send(msg)
}

func TestDeliverDuringFlushQueuesBehindIt(t *testing.T) {
	rig := newTestRig(t, time.Minute, 5, nil)

	first := &recordingTransport{}
	rig.registry.Attach("kate", first)
	rig.registry.Detach("kate", first)

	rig.registry.Deliver("kate", BotOrigin, "queued 1")
	rig.registry.Deliver("kate", BotOrigin, "queued 2")

	gate := &gateTransport{
		firstSend: make(chan struct{}),
		release:   make(chan struct{}),
	}
	attached := make(chan struct{})
	go func() {
		rig.registry.Attach("kate", gate)
		close(attached)
	}()
	<-gate.firstSend

	// Arrives mid-flush: it must line up behind the queued outputs.
	rig.registry.Deliver("kate", BotOrigin, "live")

	close(gate.release)
	<-attached

	assert.Eventually(t, func() bool {
		return len(gate.messages()) == 3
	}, time.Second, 10*time.Millisecond)

	msgs := gate.messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "queued 1", msgs[0].Text)
	assert.Equal(t, "queued 2", msgs[1].Text)
	assert.Equal(t, "live", msgs[2].Text)
}

func TestIdleEvictionClosesAutomation(t *testing.T) {
	rig := newTestRig(t, 50*time.Millisecond, 5, nil)

	transport := &recordingTransport{}
	rig.registry.Attach("carol", transport)
	require.NoError(t, rig.registry.Dispatch(context.Background(), "carol", queryReq()))
	rig.registry.Detach("carol", transport)

	assert.Eventually(t, func() bool {
		_, ok := rig.registry.Get("carol")
		return !ok && rig.driver.closed() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestRapidAttachNeverCreatesAutomation(t *testing.T) {
	rig := newTestRig(t, time.Minute, 5, nil)

	for i := 0; i < 20; i++ {
		rig.registry.Attach("dave", &recordingTransport{})
	}
	assert.Zero(t, rig.factoryCalls(), "attach must not create automation sessions")

	require.NoError(t, rig.registry.Dispatch(context.Background(), "dave", queryReq()))
	require.NoError(t, rig.registry.Dispatch(context.Background(), "dave", queryReq()))
	assert.Equal(t, 1, rig.factoryCalls(), "automation session is created once and reused")
}

func TestBrowserCapacityLimit(t *testing.T) {
	rig := newTestRig(t, time.Minute, 1, nil)

	rig.registry.Attach("erin", &recordingTransport{})
	rig.registry.Attach("frank", &recordingTransport{})

	require.NoError(t, rig.registry.Dispatch(context.Background(), "erin", queryReq()))

	err := rig.registry.Dispatch(context.Background(), "frank", queryReq())
	assert.ErrorIs(t, err, ErrCapacity)
}

func TestHandlerTeardownReleasesSlot(t *testing.T) {
	handler := func(ctx context.Context, sess *automation.Session, req models.ActionRequest) (string, bool) {
		_ = sess.Close(ctx)
		return "booked", true
	}
	rig := newTestRig(t, time.Minute, 1, handler)

	rig.registry.Attach("grace", &recordingTransport{})
	require.NoError(t, rig.registry.Dispatch(context.Background(), "grace", queryReq()))

	info, ok := rig.registry.Get("grace")
	require.True(t, ok)
	assert.False(t, info.Automation, "automation reference dropped after teardown")

	// The freed slot is usable by another session immediately.
	rig.registry.Attach("heidi", &recordingTransport{})
	require.NoError(t, rig.registry.Dispatch(context.Background(), "heidi", queryReq()))
	assert.Equal(t, 2, rig.factoryCalls())
}

func TestShutdownDrainsSessions(t *testing.T) {
	rig := newTestRig(t, time.Minute, 5, nil)

	rig.registry.Attach("ivan", &recordingTransport{})
	require.NoError(t, rig.registry.Dispatch(context.Background(), "ivan", queryReq()))

	rig.registry.Shutdown(context.Background())
	assert.Equal(t, 1, rig.driver.closed())
	assert.Empty(t, rig.registry.Sessions())
}

func TestDeliverToUnknownSessionIsNoop(t *testing.T) {
	rig := newTestRig(t, time.Minute, 5, nil)
	rig.registry.Deliver("nobody", BotOrigin, "hello")
	assert.Empty(t, rig.registry.Sessions())
}
