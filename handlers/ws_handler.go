package handlers

import (
	"log"
	"net/http"

	"roomchat-backend/services"
	"roomchat-backend/ws"
)

type WSHandler struct {
	hub     *ws.Hub
	authSvc *services.AuthService
}

func NewWSHandler(hub *ws.Hub, authSvc *services.AuthService) *WSHandler {
	return &WSHandler{hub: hub, authSvc: authSvc}
}

// Serve opens a live subscription. The room name comes from the query
// string; so does the token, because header injection is unavailable
// on the browser WebSocket API. Anonymous connections are allowed and
// get the room channel only; a valid token adds the caller's own user
// channel. An invalid token is rejected rather than downgraded.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	if room == "" {
		respondWithError(w, "Missing parameter", "room query parameter is required", http.StatusBadRequest)
		return
	}

	var userID, username string
	if token := r.URL.Query().Get("token"); token != "" {
		id, err := h.authSvc.ParseToken(token)
		if err != nil {
			log.Printf("WebSocket connection rejected: invalid token")
			respondWithError(w, "Unauthorized", "Invalid token", http.StatusUnauthorized)
			return
		}
		userID, username = id.UserID, id.Username
	}

	h.hub.ServeWS(w, r, room, userID, username)
}
