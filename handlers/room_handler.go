package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"roomchat-backend/services"
)

type RoomHandler struct {
	roomSvc *services.RoomService
	msgSvc  *services.MessageService
}

func NewRoomHandler(rs *services.RoomService, ms *services.MessageService) *RoomHandler {
	return &RoomHandler{roomSvc: rs, msgSvc: ms}
}

// List returns active rooms, name ascending. Public endpoint.
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondWithError(w, "Method not allowed", "Use GET method", http.StatusMethodNotAllowed)
		return
	}

	rooms, err := h.roomSvc.ListActive()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithSuccess(w, rooms)
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondWithError(w, "Method not allowed", "Use POST method", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, "Invalid JSON", "Bad request format", http.StatusBadRequest)
		return
	}

	room, err := h.roomSvc.Create(identityFrom(r), req.Name)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithSuccess(w, room)
}

func (h *RoomHandler) Archive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondWithError(w, "Method not allowed", "Use POST method", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, "Invalid JSON", "Bad request format", http.StatusBadRequest)
		return
	}

	room, err := h.roomSvc.Archive(identityFrom(r), req.Name)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithSuccess(w, map[string]interface{}{
		"name":        room.Name,
		"is_archived": room.IsArchived,
	})
}

// Online reports the current subscriber count of a room channel.
// Public, approximate snapshot.
func (h *RoomHandler) Online(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondWithError(w, "Method not allowed", "Use GET method", http.StatusMethodNotAllowed)
		return
	}

	room := r.URL.Query().Get("room")
	if room == "" {
		respondWithError(w, "Missing parameter", "room query parameter is required", http.StatusBadRequest)
		return
	}

	respondWithSuccess(w, map[string]int{"online": h.roomSvc.Online(room)})
}

// Participants lists distinct senders in a room for the admin
// recipient picker.
func (h *RoomHandler) Participants(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondWithError(w, "Method not allowed", "Use GET method", http.StatusMethodNotAllowed)
		return
	}

	room := r.URL.Query().Get("room")
	if room == "" {
		respondWithError(w, "Missing parameter", "room query parameter is required", http.StatusBadRequest)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}

	users, err := h.msgSvc.Participants(identityFrom(r), room, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithSuccess(w, users)
}
