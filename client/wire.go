package client

import (
	"encoding/json"
	"time"
)

// Event is the canonical record shape every wire payload is normalized
// into. Server and consumer naming conventions differ (lowerCamel vs
// PascalCase), so normalization happens once here at the boundary, not
// ad hoc per consumer.
type Event struct {
	ID              string
	Room            string
	SenderUsername  string
	Type            string
	Content         string
	RecipientUserID string
	SentAt          time.Time

	// Message carries the text of system notifications (join/leave).
	Message string
}

func (e *Event) IsSystem() bool  { return e.Type == "system" }
func (e *Event) IsMessage() bool { return e.Type == "public" || e.Type == "dm" }

// DecodeEvent normalizes field-name variants from a raw wire payload.
func DecodeEvent(data []byte) (Event, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Event{}, err
	}

	evt := Event{
		ID:              pickString(raw, "id", "Id"),
		Room:            pickString(raw, "room", "Room"),
		SenderUsername:  pickString(raw, "senderUsername", "SenderUsername"),
		Type:            pickString(raw, "type", "Type"),
		Content:         pickString(raw, "content", "Content"),
		RecipientUserID: pickString(raw, "recipientUserId", "RecipientUserId", "RecipientUserID"),
		Message:         pickString(raw, "message", "Message"),
	}
	if ts := pickString(raw, "sentAt", "SentAt", "at", "At"); ts != "" {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			evt.SentAt = t
		}
	}
	return evt, nil
}

func pickString(raw map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s
		}
	}
	return ""
}
