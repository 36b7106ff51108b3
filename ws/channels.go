package ws

import "roomchat-backend/models"

// Channel names address fan-out destinations in the bus. Rooms and
// user inboxes live in the same namespace, distinguished by prefix.

func RoomChannel(roomName string) string {
	return "room:" + models.NormalizeRoomName(roomName)
}

func UserChannel(userID string) string {
	return "user:" + userID
}
