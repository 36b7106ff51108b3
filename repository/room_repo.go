package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"roomchat-backend/models"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomNameExists = errors.New("room name already exists")
)

// RoomRepository stores rooms by normalized name. Callers pass raw
// names; normalization happens here so every lookup and insert agrees
// on the canonical identity.
type RoomRepository interface {
	GetOrCreate(name string) (*models.Room, error)
	Create(name string) (*models.Room, error)
	FindByName(name string) (*models.Room, error)
	Archive(name string) (*models.Room, error)
	ListActive() ([]models.Room, error)
}

type GormRoomRepo struct {
	db *gorm.DB
}

func NewGormRoomRepo(db *gorm.DB) *GormRoomRepo {
	return &GormRoomRepo{db: db}
}

func (r *GormRoomRepo) FindByName(name string) (*models.Room, error) {
	var room models.Room
	err := r.db.First(&room, "name = ?", models.NormalizeRoomName(name)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find room: %w", err)
	}
	return &room, nil
}

// GetOrCreate returns the existing room regardless of archived state,
// creating it on first use. Two requests racing on an unseen name both
// attempt the insert; the unique index on name resolves the race and
// the loser re-reads the winner's row.
func (r *GormRoomRepo) GetOrCreate(name string) (*models.Room, error) {
	normalized := models.NormalizeRoomName(name)

	room, err := r.FindByName(normalized)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, ErrRoomNotFound) {
		return nil, err
	}

	created := &models.Room{Name: normalized}
	if err := r.db.Create(created).Error; err != nil {
		if isUniqueViolation(err) {
			return r.FindByName(normalized)
		}
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	return created, nil
}

func (r *GormRoomRepo) Create(name string) (*models.Room, error) {
	room := &models.Room{Name: models.NormalizeRoomName(name)}
	if err := r.db.Create(room).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrRoomNameExists
		}
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	return room, nil
}

// Archive marks a room archived. Archiving an already-archived room is
// a no-op that still succeeds.
func (r *GormRoomRepo) Archive(name string) (*models.Room, error) {
	room, err := r.FindByName(name)
	if err != nil {
		return nil, err
	}
	if room.IsArchived {
		return room, nil
	}
	if err := r.db.Model(room).Update("is_archived", true).Error; err != nil {
		return nil, fmt.Errorf("failed to archive room: %w", err)
	}
	room.IsArchived = true
	return room, nil
}

func (r *GormRoomRepo) ListActive() ([]models.Room, error) {
	var rooms []models.Room
	err := r.db.Where("is_archived = ?", false).Order("name asc").Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return rooms, nil
}
