package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Room names are stored normalized: trimmed and lower-cased. The
// normalized name is the canonical identity used for lookups, lazy
// creation, and channel naming.
type Room struct {
	ID         string    `gorm:"primarykey;size:36" json:"id"`
	Name       string    `gorm:"size:50;not null;uniqueIndex" json:"name"`
	CreatedAt  time.Time `json:"created_at"`
	IsArchived bool      `gorm:"not null;default:false" json:"is_archived"`
}

func (Room) TableName() string { return "rooms" }

func (r *Room) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// NormalizeRoomName maps a user-supplied room name to its canonical form.
func NormalizeRoomName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
