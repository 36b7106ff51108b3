package services

import (
	"errors"
	"fmt"

	"roomchat-backend/models"
	"roomchat-backend/repository"
	"roomchat-backend/ws"
)

// PresenceSource exposes the membership half of the event bus.
type PresenceSource interface {
	ListMembers(channel string) []string
}

type RoomService struct {
	rooms    repository.RoomRepository
	guard    *AuthzGuard
	presence PresenceSource
}

func NewRoomService(rr repository.RoomRepository, guard *AuthzGuard, presence PresenceSource) *RoomService {
	return &RoomService{rooms: rr, guard: guard, presence: presence}
}

// ListActive returns non-archived rooms, name ascending.
func (s *RoomService) ListActive() ([]models.Room, error) {
	return s.rooms.ListActive()
}

func (s *RoomService) Create(caller *Identity, name string) (*models.Room, error) {
	if _, err := s.guard.RequireAdmin(caller); err != nil {
		return nil, err
	}

	normalized := models.NormalizeRoomName(name)
	if normalized == "" {
		return nil, fmt.Errorf("%w: room name is required", ErrValidation)
	}
	if len(normalized) > 50 {
		return nil, fmt.Errorf("%w: room name too long (maximum 50 characters)", ErrValidation)
	}

	room, err := s.rooms.Create(normalized)
	if errors.Is(err, repository.ErrRoomNameExists) {
		return nil, fmt.Errorf("%w: room name already exists", ErrValidation)
	}
	if err != nil {
		return nil, err
	}
	return room, nil
}

// Archive soft-deletes a room. Repeating the call on an archived room
// succeeds without further effect.
func (s *RoomService) Archive(caller *Identity, name string) (*models.Room, error) {
	if _, err := s.guard.RequireAdmin(caller); err != nil {
		return nil, err
	}

	room, err := s.rooms.Archive(name)
	if errors.Is(err, repository.ErrRoomNotFound) {
		return nil, fmt.Errorf("%w: room does not exist", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return room, nil
}

// Online reports the live subscriber count of the room channel at
// sampling time. Approximate by design: disconnect propagation may lag
// the sample.
func (s *RoomService) Online(roomName string) int {
	return len(s.presence.ListMembers(ws.RoomChannel(roomName)))
}
