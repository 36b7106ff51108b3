package client

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomchat-backend/models"
)

type fakeBackend struct {
	mu          sync.Mutex
	history     map[string][]models.MessageDTO
	historyErr  error
	historyWait chan struct{} // when set, History blocks until closed
	posted      []models.MessageDTO
	postErr     error
	online      int
	onlineErr   error
	rooms       []models.Room
	roomsErr    error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{history: make(map[string][]models.MessageDTO)}
}

func (b *fakeBackend) History(room string, n int) ([]models.MessageDTO, error) {
	b.mu.Lock()
	wait := b.historyWait
	err := b.historyErr
	msgs := b.history[room]
	b.mu.Unlock()
	if wait != nil {
		<-wait
	}
	return msgs, err
}

func (b *fakeBackend) PostPublic(room, content string) (*models.MessageDTO, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.postErr != nil {
		return nil, b.postErr
	}
	dto := models.MessageDTO{
		ID: "sent-1", Room: room, SenderUsername: "me",
		Type: "public", Content: content, SentAt: time.Now(),
	}
	b.posted = append(b.posted, dto)
	return &dto, nil
}

func (b *fakeBackend) SendDM(room, recipientID, content string) (*models.MessageDTO, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.postErr != nil {
		return nil, b.postErr
	}
	dto := models.MessageDTO{
		ID: "dm-1", Room: room, SenderUsername: "me",
		Type: "dm", Content: content, RecipientUserID: &recipientID, SentAt: time.Now(),
	}
	b.posted = append(b.posted, dto)
	return &dto, nil
}

func (b *fakeBackend) Online(room string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.online, b.onlineErr
}

func (b *fakeBackend) Rooms() ([]models.Room, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rooms, b.roomsErr
}

type fakeSubscription struct {
	events chan Event
	once   sync.Once
	closed chan struct{}
}

func (s *fakeSubscription) Events() <-chan Event { return s.events }

func (s *fakeSubscription) Close() error {
	s.once.Do(func() {
		close(s.closed)
		close(s.events)
	})
	return nil
}

type fakeSubscriber struct {
	mu   sync.Mutex
	subs []*fakeSubscription
}

func (f *fakeSubscriber) Subscribe(room, token string) (Subscription, error) {
	sub := &fakeSubscription{events: make(chan Event, 16), closed: make(chan struct{})}
	f.mu.Lock()
	f.subs = append(f.subs, sub)
	f.mu.Unlock()
	return sub, nil
}

func (f *fakeSubscriber) latest() *fakeSubscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.subs) == 0 {
		return nil
	}
	return f.subs[len(f.subs)-1]
}

func newTestConsumer() (*Consumer, *fakeBackend, *fakeSubscriber) {
	backend := newFakeBackend()
	subs := &fakeSubscriber{}
	return NewConsumer(backend, subs, NewSession()), backend, subs
}

func waitForState(t *testing.T, c *Consumer, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return c.State() == want },
		time.Second, 5*time.Millisecond)
}

func waitForSub(t *testing.T, subs *fakeSubscriber) *fakeSubscription {
	t.Helper()
	var sub *fakeSubscription
	require.Eventually(t, func() bool {
		sub = subs.latest()
		return sub != nil
	}, time.Second, 5*time.Millisecond)
	return sub
}

func TestConsumerLoadsHistoryThenGoesLive(t *testing.T) {
	c, backend, _ := newTestConsumer()
	backend.history["general"] = []models.MessageDTO{
		{ID: "m1", Content: "first", Type: "public"},
		{ID: "m2", Content: "second", Type: "public"},
	}

	c.Enter("general")
	defer c.Close()
	waitForState(t, c, StateLive)

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "second", msgs[1].Content)
}

func TestConsumerDeduplicatesRedeliveredEvents(t *testing.T) {
	c, _, subs := newTestConsumer()
	c.Enter("general")
	defer c.Close()
	waitForState(t, c, StateLive)

	sub := waitForSub(t, subs)
	evt := Event{ID: "m1", Type: "public", Content: "hi"}
	sub.events <- evt
	sub.events <- evt // re-delivery of the same id

	require.Eventually(t, func() bool { return len(c.Messages()) >= 1 },
		time.Second, 5*time.Millisecond)
	// give the duplicate a chance to (wrongly) land
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, c.Messages(), 1, "the same id must render exactly once")
}

func TestConsumerSuppressesLiveEchoOfOptimisticSend(t *testing.T) {
	c, _, subs := newTestConsumer()
	c.Enter("general")
	defer c.Close()
	waitForState(t, c, StateLive)
	sub := waitForSub(t, subs)

	c.SetDraft("hello")
	require.NoError(t, c.Send())
	assert.Empty(t, c.Draft(), "draft clears on success")

	msgs := c.Messages()
	require.Len(t, msgs, 1, "optimistic append")
	assert.Equal(t, "sent-1", msgs[0].ID)

	// the server's live echo arrives with the same id
	sub.events <- Event{ID: "sent-1", Type: "public", Content: "hello"}
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, c.Messages(), 1, "echo must not render twice")
}

func TestConsumerFailedSendKeepsDraft(t *testing.T) {
	c, backend, _ := newTestConsumer()
	backend.postErr = errors.New("boom")

	var reported error
	c.OnError = func(err error) { reported = err }

	c.Enter("general")
	defer c.Close()
	waitForState(t, c, StateLive)

	c.SetDraft("precious words")
	require.Error(t, c.Send())
	assert.Equal(t, "precious words", c.Draft(), "unsent input is preserved")
	assert.Error(t, reported)
	assert.Empty(t, c.Messages())
}

func TestConsumerRoomSwitchDiscardsStaleFetch(t *testing.T) {
	c, backend, _ := newTestConsumer()

	// first room's history hangs until released
	gate := make(chan struct{})
	backend.mu.Lock()
	backend.historyWait = gate
	backend.history["slow"] = []models.MessageDTO{{ID: "stale", Content: "stale", Type: "public"}}
	backend.mu.Unlock()

	c.Enter("slow")
	defer c.Close()

	// switch before the fetch lands
	backend.mu.Lock()
	backend.historyWait = nil
	backend.history["fast"] = []models.MessageDTO{{ID: "fresh", Content: "fresh", Type: "public"}}
	backend.mu.Unlock()
	c.Enter("fast")
	waitForState(t, c, StateLive)

	close(gate) // stale fetch completes now
	time.Sleep(20 * time.Millisecond)

	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "fresh", msgs[0].ID, "stale room's history must not leak into the new view")
	assert.Equal(t, "fast", c.Room())
}

func TestConsumerRoomSwitchClosesPreviousSubscription(t *testing.T) {
	c, _, subs := newTestConsumer()
	c.Enter("general")
	defer c.Close()
	waitForState(t, c, StateLive)
	first := waitForSub(t, subs)

	c.Enter("ops")
	waitForState(t, c, StateLive)

	select {
	case <-first.closed:
	case <-time.After(time.Second):
		t.Fatal("previous subscription was not torn down")
	}
}

func TestConsumerHistoryMergePrefersHistoryOrder(t *testing.T) {
	c, backend, subs := newTestConsumer()

	gate := make(chan struct{})
	backend.mu.Lock()
	backend.historyWait = gate
	backend.history["general"] = []models.MessageDTO{
		{ID: "h1", Content: "from history", Type: "public"},
		{ID: "live-1", Content: "raced", Type: "public"},
	}
	backend.mu.Unlock()

	c.Enter("general")
	defer c.Close()
	sub := waitForSub(t, subs)

	// a live event races the pending history fetch
	sub.events <- Event{ID: "live-1", Type: "public", Content: "raced"}
	sub.events <- Event{ID: "live-2", Type: "public", Content: "after"}
	require.Eventually(t, func() bool { return len(c.Messages()) == 2 },
		time.Second, 5*time.Millisecond)

	close(gate)
	waitForState(t, c, StateLive)

	var ids []string
	for _, m := range c.Messages() {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"h1", "live-1", "live-2"}, ids,
		"history is the prefix; raced live events dedup and keep order")
}

func TestConsumerSystemEventsBypassBuffer(t *testing.T) {
	c, _, subs := newTestConsumer()

	var sysMu sync.Mutex
	var system []Event
	c.OnSystem = func(evt Event) {
		sysMu.Lock()
		system = append(system, evt)
		sysMu.Unlock()
	}

	c.Enter("general")
	defer c.Close()
	waitForState(t, c, StateLive)
	sub := waitForSub(t, subs)

	sub.events <- Event{Type: "system", Message: "bob entered 'general'"}
	require.Eventually(t, func() bool {
		sysMu.Lock()
		defer sysMu.Unlock()
		return len(system) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Empty(t, c.Messages(), "system notifications never join the message buffer")
}

func TestConsumerPresencePolling(t *testing.T) {
	c, backend, _ := newTestConsumer()
	backend.mu.Lock()
	backend.online = 4
	backend.mu.Unlock()

	c.Enter("general")
	defer c.Close()
	c.StartPresence(10 * time.Millisecond)

	require.Eventually(t, func() bool { return c.Online() == 4 },
		time.Second, 5*time.Millisecond)

	// transport failure degrades to zero
	backend.mu.Lock()
	backend.onlineErr = errors.New("bus unreachable")
	backend.mu.Unlock()
	require.Eventually(t, func() bool { return c.Online() == 0 },
		time.Second, 5*time.Millisecond)
}

func TestConsumerRoomListKeepsLastKnownOnError(t *testing.T) {
	c, backend, _ := newTestConsumer()
	backend.mu.Lock()
	backend.rooms = []models.Room{{Name: "general"}, {Name: "ops"}}
	backend.mu.Unlock()

	rooms := c.RefreshRooms()
	require.Len(t, rooms, 2)

	backend.mu.Lock()
	backend.roomsErr = errors.New("network down")
	backend.mu.Unlock()

	rooms = c.RefreshRooms()
	assert.Len(t, rooms, 2, "failed refresh retains the last known list")
}
