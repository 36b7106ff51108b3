package client

import (
	"encoding/base64"
	"encoding/json"
	"slices"
	"strings"
	"sync"

	"roomchat-backend/models"
)

// Session holds the process-wide client credentials. It is initialized
// explicitly on login, cleared on logout, and read-only everywhere
// else; nothing reaches it as an ambient global.
type Session struct {
	mu       sync.RWMutex
	token    string
	userID   string
	username string
	roles    []string
}

func NewSession() *Session { return &Session{} }

// Start installs the credentials for a fresh login. Identity fields
// are read from the token payload so the session agrees with what the
// server will see.
func (s *Session) Start(token string) {
	userID, username, roles := claimsFromToken(token)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.userID = userID
	s.username = username
	s.roles = roles
}

func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.userID = ""
	s.username = ""
	s.roles = nil
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

func (s *Session) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.roles, models.RoleAdmin)
}

// claimsFromToken decodes the JWT payload without verifying the
// signature; the server remains the authority, this only drives UI
// decisions like showing admin controls.
func claimsFromToken(token string) (userID, username string, roles []string) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", "", nil
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", "", nil
	}
	var claims struct {
		Sub   string   `json:"sub"`
		Uname string   `json:"uname"`
		Roles []string `json:"roles"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return "", "", nil
	}
	return claims.Sub, claims.Uname, claims.Roles
}
