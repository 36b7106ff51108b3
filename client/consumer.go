package client

import (
	"sync"
	"time"

	"roomchat-backend/models"
)

// Backend is the slice of the REST API the consumer needs. *API
// satisfies it; tests substitute fakes.
type Backend interface {
	History(room string, n int) ([]models.MessageDTO, error)
	PostPublic(room, content string) (*models.MessageDTO, error)
	SendDM(room, recipientID, content string) (*models.MessageDTO, error)
	Online(room string) (int, error)
	Rooms() ([]models.Room, error)
}

// Subscription is one open live feed.
type Subscription interface {
	Events() <-chan Event
	Close() error
}

// Subscriber opens live feeds. An empty token means anonymous: the
// room channel only, no user channel.
type Subscriber interface {
	Subscribe(room, token string) (Subscription, error)
}

type State int

const (
	StateIdle State = iota
	StateLoading
	StateLive
)

// Consumer is the per-room view state machine: Loading -> Live,
// re-entered on every room switch. It normalizes, dedups, and orders
// live events, and reconciles them with optimistic local sends.
type Consumer struct {
	backend     Backend
	subs        Subscriber
	session     *Session
	historySize int

	// Callbacks fire outside the lock.
	OnMessage func(Event)
	OnSystem  func(Event)
	OnError   func(error)

	mu     sync.Mutex
	state  State
	room   string
	gen    int // bumped on every room switch; stale work checks it
	buffer []Event
	seen   map[string]bool
	sub    Subscription
	draft  string

	rooms  []models.Room
	online int

	presenceDone chan struct{}
}

func NewConsumer(backend Backend, subs Subscriber, session *Session) *Consumer {
	return &Consumer{
		backend:     backend,
		subs:        subs,
		session:     session,
		historySize: 20,
		seen:        make(map[string]bool),
	}
}

// Enter switches the consumer to a room: tear down the previous
// subscription, clear the buffer, fetch history, and open the live
// feed. History fetch and subscription open run concurrently; results
// from a superseded room are discarded by the generation check.
func (c *Consumer) Enter(room string) {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.room = room
	c.state = StateLoading
	c.buffer = nil
	c.seen = make(map[string]bool)
	old := c.sub
	c.sub = nil
	token := c.session.Token()
	c.mu.Unlock()

	if old != nil {
		old.Close()
	}

	go c.load(room, gen)
	go c.openLive(room, token, gen)
}

func (c *Consumer) load(room string, gen int) {
	history, err := c.backend.History(room, c.historySize)

	c.mu.Lock()
	if gen != c.gen {
		// a later Enter superseded this fetch
		c.mu.Unlock()
		return
	}
	if err != nil {
		// degrade: go live on whatever arrives over the feed
		c.state = StateLive
		c.mu.Unlock()
		c.reportError(err)
		return
	}

	// History is the authoritative prefix; live events that raced the
	// fetch stay behind it, deduped by id.
	live := c.buffer
	c.buffer = nil
	c.seen = make(map[string]bool)
	for _, dto := range history {
		c.appendLocked(eventFromDTO(&dto))
	}
	for _, evt := range live {
		c.appendLocked(evt)
	}
	c.state = StateLive
	c.mu.Unlock()
}

func (c *Consumer) openLive(room, token string, gen int) {
	sub, err := c.subs.Subscribe(room, token)
	if err != nil {
		c.reportError(err)
		return
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		sub.Close()
		return
	}
	c.sub = sub
	c.mu.Unlock()

	for evt := range sub.Events() {
		c.handleLive(evt, gen)
	}
}

func (c *Consumer) handleLive(evt Event, gen int) {
	if evt.IsSystem() {
		if c.OnSystem != nil {
			c.OnSystem(evt)
		}
		return
	}
	if !evt.IsMessage() {
		return
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	added := c.appendLocked(evt)
	c.mu.Unlock()

	if added && c.OnMessage != nil {
		c.OnMessage(evt)
	}
}

// appendLocked adds an event to the buffer unless its id is already
// present, so a live echo of an optimistic send, or a re-delivered
// event, never renders twice. Arrival order is preserved otherwise.
func (c *Consumer) appendLocked(evt Event) bool {
	if evt.ID != "" && c.seen[evt.ID] {
		return false
	}
	if evt.ID != "" {
		c.seen[evt.ID] = true
	}
	c.buffer = append(c.buffer, evt)
	return true
}

// SetDraft stores unsent input; a failed send leaves it intact for
// manual resubmission.
func (c *Consumer) SetDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = text
}

func (c *Consumer) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Send posts the draft as a public message and, on success,
// optimistically appends the returned record. The later live delivery
// of the same id is suppressed by the dedup rule.
func (c *Consumer) Send() error {
	c.mu.Lock()
	room, draft := c.room, c.draft
	c.mu.Unlock()

	dto, err := c.backend.PostPublic(room, draft)
	if err != nil {
		c.reportError(err)
		return err
	}

	c.mu.Lock()
	c.draft = ""
	c.appendLocked(eventFromDTO(dto))
	c.mu.Unlock()
	return nil
}

// SendDM posts the draft as a direct message to recipientID.
func (c *Consumer) SendDM(recipientID string) error {
	c.mu.Lock()
	room, draft := c.room, c.draft
	c.mu.Unlock()

	dto, err := c.backend.SendDM(room, recipientID, draft)
	if err != nil {
		c.reportError(err)
		return err
	}

	c.mu.Lock()
	c.draft = ""
	c.appendLocked(eventFromDTO(dto))
	c.mu.Unlock()
	return nil
}

// Messages returns a snapshot of the current buffer.
func (c *Consumer) Messages() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.buffer))
	copy(out, c.buffer)
	return out
}

func (c *Consumer) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Consumer) Room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

// RefreshRooms reloads the room list, keeping the last known value
// when the fetch fails.
func (c *Consumer) RefreshRooms() []models.Room {
	rooms, err := c.backend.Rooms()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.reportErrorLocked(err)
		return c.rooms
	}
	c.rooms = rooms
	return rooms
}

// StartPresence polls the online count of the current room on a fixed
// interval until Close. Fetch failures fall back to zero.
func (c *Consumer) StartPresence(interval time.Duration) {
	c.mu.Lock()
	if c.presenceDone != nil {
		c.mu.Unlock()
		return
	}
	done := make(chan struct{})
	c.presenceDone = done
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				c.mu.Lock()
				room := c.room
				c.mu.Unlock()
				if room == "" {
					continue
				}
				n, err := c.backend.Online(room)
				if err != nil {
					n = 0
				}
				c.mu.Lock()
				c.online = n
				c.mu.Unlock()
			}
		}
	}()
}

func (c *Consumer) Online() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

// Close tears the view down: stops the presence poller and closes the
// live subscription. Messages published between teardown and a later
// Enter are missed until that Enter's history fetch.
func (c *Consumer) Close() {
	c.mu.Lock()
	c.gen++
	c.state = StateIdle
	sub := c.sub
	c.sub = nil
	done := c.presenceDone
	c.presenceDone = nil
	c.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	if done != nil {
		close(done)
	}
}

func (c *Consumer) reportError(err error) {
	if c.OnError != nil {
		c.OnError(err)
	}
}

func (c *Consumer) reportErrorLocked(err error) {
	if c.OnError != nil {
		go c.OnError(err)
	}
}

func eventFromDTO(dto *models.MessageDTO) Event {
	evt := Event{
		ID:             dto.ID,
		Room:           dto.Room,
		SenderUsername: dto.SenderUsername,
		Type:           dto.Type,
		Content:        dto.Content,
		SentAt:         dto.SentAt,
	}
	if dto.RecipientUserID != nil {
		evt.RecipientUserID = *dto.RecipientUserID
	}
	return evt
}
