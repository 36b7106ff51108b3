package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageType string

const (
	MessagePublic MessageType = "public"
	MessageDM     MessageType = "dm"
)

var (
	ErrBlankContent  = errors.New("message content cannot be blank")
	ErrBadRecipient  = errors.New("dm requires a recipient, public forbids one")
	ErrBadMessageType = errors.New("message type must be public or dm")
)

// Message rows are immutable once created.
type Message struct {
	ID           string      `gorm:"primarykey;size:36" json:"id"`
	RoomID       string      `gorm:"size:36;not null;index:ix_messages_room_sentat" json:"room_id"`
	SenderUserID string      `gorm:"size:36;not null" json:"sender_id"`
	Type         MessageType `gorm:"size:10;not null" json:"type"`
	Content      string      `gorm:"not null" json:"content"`
	// RecipientUserID is set iff Type is dm.
	RecipientUserID *string   `gorm:"size:36" json:"recipient_user_id,omitempty"`
	SentAt          time.Time `gorm:"not null;index:ix_messages_room_sentat" json:"sent_at"`
}

func (Message) TableName() string { return "messages" }

// BeforeCreate enforces the message invariants at the storage boundary,
// independent of the application-level checks.
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if strings.TrimSpace(m.Content) == "" {
		return ErrBlankContent
	}
	switch m.Type {
	case MessagePublic:
		if m.RecipientUserID != nil {
			return ErrBadRecipient
		}
	case MessageDM:
		if m.RecipientUserID == nil || *m.RecipientUserID == "" {
			return ErrBadRecipient
		}
	default:
		return ErrBadMessageType
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.SentAt.IsZero() {
		m.SentAt = time.Now().UTC()
	}
	return nil
}

// MessageDTO is the single canonical wire shape for a message, used by
// the REST history endpoint and the live channel alike.
type MessageDTO struct {
	ID              string    `json:"id"`
	Room            string    `json:"room"`
	SenderUsername  string    `json:"senderUsername"`
	Type            string    `json:"type"`
	Content         string    `json:"content"`
	RecipientUserID *string   `json:"recipientUserId,omitempty"`
	SentAt          time.Time `json:"sentAt"`
}
