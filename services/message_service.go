package services

import (
	"errors"
	"fmt"
	"strings"

	"roomchat-backend/config"
	"roomchat-backend/models"
	"roomchat-backend/repository"
	"roomchat-backend/ws"
)

// Broadcaster is the publish half of the event bus. Defined here so
// services stay decoupled from the hub implementation.
type Broadcaster interface {
	Publish(channel string, payload any)
}

type MessageService struct {
	msgs   repository.MessageRepository
	rooms  repository.RoomRepository
	users  repository.UserRepository
	guard  *AuthzGuard
	bus    Broadcaster
	config *config.Config
}

func NewMessageService(mr repository.MessageRepository, rr repository.RoomRepository, ur repository.UserRepository, guard *AuthzGuard, bus Broadcaster, cfg *config.Config) *MessageService {
	return &MessageService{msgs: mr, rooms: rr, users: ur, guard: guard, bus: bus, config: cfg}
}

// PostPublic persists a public message and fans it out to the room
// channel. The append commits before the publish executes, so a
// publish never references an id that is not durably stored.
func (s *MessageService) PostPublic(sender *Identity, roomName, content string) (*models.MessageDTO, error) {
	user, err := s.guard.RequireActiveUser(sender)
	if err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}
	if len(content) > s.config.MaxMessageLength {
		return nil, fmt.Errorf("%w: message too long (max %d characters)",
			ErrValidation, s.config.MaxMessageLength)
	}

	room, err := s.rooms.GetOrCreate(roomName)
	if err != nil {
		return nil, err
	}

	saved, err := s.msgs.Append(&models.Message{
		RoomID:       room.ID,
		SenderUserID: user.ID,
		Type:         models.MessagePublic,
		Content:      content,
	})
	if err != nil {
		return nil, storeError(err)
	}

	dto := toDTO(saved, room.Name, user.Username)
	s.bus.Publish(ws.RoomChannel(room.Name), dto)
	return dto, nil
}

// SendDM persists an admin direct message and publishes it exactly
// once to the sender's and the recipient's user channels. It never
// touches the room channel, so uninvolved subscribers cannot see it.
func (s *MessageService) SendDM(sender *Identity, roomName, recipientID, content string) (*models.MessageDTO, error) {
	su, ru, err := s.guard.AllowDM(sender, recipientID)
	if err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}
	if len(content) > s.config.MaxMessageLength {
		return nil, fmt.Errorf("%w: message too long (max %d characters)",
			ErrValidation, s.config.MaxMessageLength)
	}

	room, err := s.rooms.GetOrCreate(roomName)
	if err != nil {
		return nil, err
	}

	saved, err := s.msgs.Append(&models.Message{
		RoomID:          room.ID,
		SenderUserID:    su.ID,
		Type:            models.MessageDM,
		Content:         content,
		RecipientUserID: &ru.ID,
	})
	if err != nil {
		return nil, storeError(err)
	}

	dto := toDTO(saved, room.Name, su.Username)
	s.bus.Publish(ws.UserChannel(su.ID), dto)
	s.bus.Publish(ws.UserChannel(ru.ID), dto)
	return dto, nil
}

// History returns the newest n messages of the room, oldest first. DM
// rows are visible only to their sender or recipient; an anonymous
// viewer sees public rows only. An unknown room yields an empty slice,
// not an error: history fetches race lazy room creation.
func (s *MessageService) History(roomName string, n int, viewer *Identity) ([]models.MessageDTO, error) {
	room, err := s.rooms.FindByName(roomName)
	if errors.Is(err, repository.ErrRoomNotFound) {
		return []models.MessageDTO{}, nil
	}
	if err != nil {
		return nil, err
	}

	var viewerID *string
	if viewer != nil && viewer.UserID != "" {
		viewerID = &viewer.UserID
	}

	msgs, err := s.msgs.LastN(room.ID, n, viewerID)
	if err != nil {
		return nil, err
	}

	dtos := make([]models.MessageDTO, 0, len(msgs))
	for i := range msgs {
		username := "unknown"
		if u, err := s.users.FindByID(msgs[i].SenderUserID); err == nil {
			username = u.Username
		}
		dtos = append(dtos, *toDTO(&msgs[i], room.Name, username))
	}
	return dtos, nil
}

// Participants lists distinct senders in a room for the admin
// recipient picker.
func (s *MessageService) Participants(caller *Identity, roomName string, n int) ([]models.User, error) {
	if _, err := s.guard.RequireAdmin(caller); err != nil {
		return nil, err
	}
	room, err := s.rooms.FindByName(roomName)
	if errors.Is(err, repository.ErrRoomNotFound) {
		return nil, fmt.Errorf("%w: room does not exist", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return s.msgs.Participants(room.ID, n)
}

func toDTO(m *models.Message, roomName, senderUsername string) *models.MessageDTO {
	return &models.MessageDTO{
		ID:              m.ID,
		Room:            roomName,
		SenderUsername:  senderUsername,
		Type:            string(m.Type),
		Content:         m.Content,
		RecipientUserID: m.RecipientUserID,
		SentAt:          m.SentAt,
	}
}

// storeError maps storage-boundary invariant violations onto the
// validation class; anything else passes through.
func storeError(err error) error {
	if errors.Is(err, models.ErrBlankContent) || errors.Is(err, models.ErrBadRecipient) ||
		errors.Is(err, models.ErrBadMessageType) {
		return fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}
	return err
}
