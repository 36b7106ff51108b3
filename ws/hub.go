package ws

import (
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"
)

// Hub is the in-process event bus: many-to-many channel membership,
// publish fan-out, and membership snapshots for presence. Mutations
// flow through the run loop; reads take the lock directly.
type Hub struct {
	// channel name -> subscribed clients
	channels map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	publish    chan envelope

	mu sync.RWMutex
}

type envelope struct {
	channel string
	data    []byte
}

type systemEvent struct {
	Type    string    `json:"type"`
	Message string    `json:"message"`
	Room    string    `json:"room"`
	At      time.Time `json:"at"`
}

func NewHub() *Hub {
	return &Hub{
		channels:   make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		publish:    make(chan envelope, 256),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		case env := <-h.publish:
			h.fanOut(env.channel, env.data)
		}
	}
}

// Publish queues payload for delivery to every current subscriber of
// the channel. Payloads are marshalled once.
func (h *Hub) Publish(channel string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Hub publish marshal error on %s: %v", channel, err)
		return
	}
	h.publish <- envelope{channel: channel, data: data}
}

// ListMembers returns the connection ids currently subscribed to the
// channel. The snapshot is eventually consistent with respect to
// concurrent joins, leaves, and disconnects.
func (h *Hub) ListMembers(channel string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := h.channels[channel]
	members := make([]string, 0, len(clients))
	for c := range clients {
		members = append(members, c.connID)
	}
	return members
}

func (h *Hub) fanOut(channel string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.channels[channel] {
		select {
		case client.send <- data:
		default:
			h.dropClientLocked(client)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	for _, ch := range client.channels {
		if h.channels[ch] == nil {
			h.channels[ch] = make(map[*Client]bool)
		}
		h.channels[ch][client] = true
	}
	h.mu.Unlock()

	log.Printf("Client %s (%s) subscribed to %v", client.displayName(), client.connID, client.channels)

	for _, ch := range client.channels {
		if room, ok := roomOf(ch); ok {
			h.notifyRoom(ch, room, client, client.displayName()+" entered '"+room+"'")
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	subscribed := false
	for _, ch := range client.channels {
		if clients, ok := h.channels[ch]; ok && clients[client] {
			subscribed = true
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.channels, ch)
			}
		}
	}
	if subscribed {
		close(client.send)
		log.Printf("Client %s (%s) disconnected", client.displayName(), client.connID)
	}
	h.mu.Unlock()

	if !subscribed {
		return
	}

	// Best-effort, non-persisted notification to the remaining members
	// of every room channel the client belonged to. One publish per
	// room channel; the bus delivers to each member.
	for _, ch := range client.channels {
		if room, ok := roomOf(ch); ok {
			h.notifyRoom(ch, room, client, client.displayName()+" left '"+room+"'")
		}
	}
}

// dropClientLocked removes a client whose send buffer is full. Caller
// holds the write lock.
func (h *Hub) dropClientLocked(client *Client) {
	subscribed := false
	for _, ch := range client.channels {
		if clients, ok := h.channels[ch]; ok && clients[client] {
			subscribed = true
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.channels, ch)
			}
		}
	}
	if subscribed {
		close(client.send)
		log.Printf("Client %s (%s) dropped: send buffer full", client.displayName(), client.connID)
	}
}

// notifyRoom delivers a system event to the current members of a room
// channel, excluding the client the event is about.
func (h *Hub) notifyRoom(channel, room string, about *Client, message string) {
	evt := systemEvent{Type: "system", Message: message, Room: room, At: time.Now().UTC()}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.channels[channel] {
		if client == about {
			continue
		}
		select {
		case client.send <- data:
		default:
			h.dropClientLocked(client)
		}
	}
}

func roomOf(channel string) (string, bool) {
	name, ok := strings.CutPrefix(channel, "room:")
	return name, ok
}
