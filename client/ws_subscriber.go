package client

import (
	"log"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

// WSSubscriber opens live feeds over WebSocket. The token travels as a
// query-string value: the browser WebSocket API cannot set headers on
// the upgrade request, and this client keeps to the same contract.
type WSSubscriber struct {
	baseURL string
	dialer  *websocket.Dialer
}

func NewWSSubscriber(baseURL string) *WSSubscriber {
	return &WSSubscriber{baseURL: baseURL, dialer: websocket.DefaultDialer}
}

func (s *WSSubscriber) Subscribe(room, token string) (Subscription, error) {
	wsURL := strings.Replace(s.baseURL, "http", "ws", 1)
	u := wsURL + "/ws?room=" + url.QueryEscape(room)
	if token != "" {
		u += "&token=" + url.QueryEscape(token)
	}

	conn, _, err := s.dialer.Dial(u, nil)
	if err != nil {
		return nil, err
	}

	sub := &wsSubscription{conn: conn, events: make(chan Event, 64)}
	go sub.readLoop()
	return sub, nil
}

type wsSubscription struct {
	conn   *websocket.Conn
	events chan Event
}

func (s *wsSubscription) Events() <-chan Event { return s.events }

func (s *wsSubscription) Close() error {
	return s.conn.Close()
}

func (s *wsSubscription) readLoop() {
	defer close(s.events)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		evt, err := DecodeEvent(data)
		if err != nil {
			log.Printf("Dropping malformed event: %v", err)
			continue
		}
		s.events <- evt
	}
}
