package repository

import (
	"fmt"

	"gorm.io/gorm"

	"roomchat-backend/models"
)

const (
	HistoryMin      = 1
	HistoryMax      = 50
	ParticipantsMax = 200
)

type MessageRepository interface {
	Append(msg *models.Message) (*models.Message, error)
	// LastN returns the newest n messages of the room, oldest first.
	// A dm row is visible only when viewerID matches its sender or
	// recipient; pass nil for an anonymous viewer.
	LastN(roomID string, n int, viewerID *string) ([]models.Message, error)
	// Participants lists distinct users who have posted in the room,
	// sorted by username, capped at ParticipantsMax.
	Participants(roomID string, n int) ([]models.User, error)
}

type GormMessageRepo struct {
	db *gorm.DB
}

func NewGormMessageRepo(db *gorm.DB) *GormMessageRepo {
	return &GormMessageRepo{db: db}
}

func (r *GormMessageRepo) Append(msg *models.Message) (*models.Message, error) {
	if err := r.db.Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *GormMessageRepo) LastN(roomID string, n int, viewerID *string) ([]models.Message, error) {
	if n < HistoryMin {
		n = HistoryMin
	}
	if n > HistoryMax {
		n = HistoryMax
	}

	q := r.db.Where("room_id = ?", roomID)
	if viewerID == nil {
		q = q.Where("type = ?", models.MessagePublic)
	} else {
		q = q.Where(
			"type = ? OR sender_user_id = ? OR recipient_user_id = ?",
			models.MessagePublic, *viewerID, *viewerID,
		)
	}

	var msgs []models.Message
	err := q.Order("sent_at desc, id desc").Limit(n).Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	// newest-first from the query; flip to oldest-first for display
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *GormMessageRepo) Participants(roomID string, n int) ([]models.User, error) {
	if n <= 0 || n > ParticipantsMax {
		n = ParticipantsMax
	}

	var users []models.User
	err := r.db.Model(&models.User{}).
		Joins("JOIN messages ON messages.sender_user_id = app_users.id").
		Where("messages.room_id = ?", roomID).
		Distinct("app_users.*").
		Order("app_users.username asc").
		Limit(n).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return users, nil
}
