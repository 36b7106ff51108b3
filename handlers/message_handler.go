package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"roomchat-backend/services"
)

type MessageHandler struct {
	svc *services.MessageService
}

func NewMessageHandler(s *services.MessageService) *MessageHandler {
	return &MessageHandler{svc: s}
}

// List serves message history. Anonymous callers get public rows only;
// authenticated callers additionally see dm rows they are party to.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondWithError(w, "Method not allowed", "Use GET method", http.StatusMethodNotAllowed)
		return
	}

	room := r.URL.Query().Get("room")
	if room == "" {
		respondWithError(w, "Missing parameter", "room query parameter is required", http.StatusBadRequest)
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}

	msgs, err := h.svc.History(room, limit, identityFrom(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithSuccess(w, msgs)
}

func (h *MessageHandler) Post(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondWithError(w, "Method not allowed", "Use POST method", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Room    string `json:"room"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, "Invalid JSON", "Bad request format", http.StatusBadRequest)
		return
	}
	if req.Room == "" {
		respondWithError(w, "Missing parameter", "room is required", http.StatusBadRequest)
		return
	}

	dto, err := h.svc.PostPublic(identityFrom(r), req.Room, req.Content)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithSuccess(w, dto)
}

func (h *MessageHandler) SendDM(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondWithError(w, "Method not allowed", "Use POST method", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Room            string `json:"room"`
		RecipientUserID string `json:"recipientUserId"`
		Content         string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, "Invalid JSON", "Bad request format", http.StatusBadRequest)
		return
	}
	if req.Room == "" {
		respondWithError(w, "Missing parameter", "room is required", http.StatusBadRequest)
		return
	}

	dto, err := h.svc.SendDM(identityFrom(r), req.Room, req.RecipientUserID, req.Content)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithSuccess(w, dto)
}
