package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	readDeadline  = 300 * time.Second
	writeDeadline = 30 * time.Second
	pingInterval  = 240 * time.Second
)

// Client is one live subscriber connection. userID is empty for an
// anonymous subscriber; channels is fixed at connect time.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	connID   string
	userID   string
	username string
	channels []string

	// guards conn writes; readPump answers pings, writePump owns the rest
	writeMu sync.Mutex
}

func (c *Client) displayName() string {
	if c.username != "" {
		return c.username
	}
	return "anonymous"
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request and subscribes the connection. An
// authenticated client gets the room channel plus its own user channel;
// an anonymous client gets the room channel only. Sends travel over
// HTTP, not this socket; the socket is a live delivery feed.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, roomName, userID, username string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed for %q: %v", username, err)
		return
	}

	channels := []string{RoomChannel(roomName)}
	if userID != "" {
		channels = append(channels, UserChannel(userID))
	}

	client := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, 256),
		connID:   uuid.NewString(),
		userID:   userID,
		username: username,
		channels: channels,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(1 << 20)
	c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Client %s read error: %v", c.displayName(), err)
			}
			break
		}

		// Application-level keepalive; everything else is ignored.
		var probe struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(message, &probe); err != nil {
			continue
		}
		if probe.Type == "ping" {
			pong, _ := json.Marshal(map[string]string{"type": "pong"})
			c.write(websocket.TextMessage, pong)
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	return c.conn.WriteMessage(messageType, data)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(websocket.TextMessage, msg); err != nil {
				log.Printf("Client %s write error: %v", c.displayName(), err)
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
