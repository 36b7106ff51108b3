package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"roomchat-backend/models"
)

// API is the REST client for the chat backend. The bearer token rides
// in the Authorization header on every call once the session is live.
type API struct {
	baseURL string
	httpc   *http.Client
	session *Session
}

func NewAPI(baseURL string, session *Session) *API {
	return &API{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 10 * time.Second},
		session: session,
	}
}

func (a *API) do(method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequest(method, a.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := a.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var e struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Error != "" {
			if e.Message != "" {
				return fmt.Errorf("%s: %s", e.Error, e.Message)
			}
			return fmt.Errorf("%s", e.Error)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return err
	}
	return json.Unmarshal(env.Data, out)
}

type authResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Login authenticates and starts the session.
func (a *API) Login(username, password string) error {
	var res authResult
	err := a.do(http.MethodPost, "/api/login", map[string]string{
		"username": username, "password": password,
	}, &res)
	if err != nil {
		return err
	}
	a.session.Start(res.Token)
	return nil
}

func (a *API) Register(username, password string) error {
	var res authResult
	err := a.do(http.MethodPost, "/api/register", map[string]string{
		"username": username, "password": password,
	}, &res)
	if err != nil {
		return err
	}
	a.session.Start(res.Token)
	return nil
}

func (a *API) Logout() {
	a.session.Clear()
}

func (a *API) Rooms() ([]models.Room, error) {
	var rooms []models.Room
	err := a.do(http.MethodGet, "/api/rooms", nil, &rooms)
	return rooms, err
}

func (a *API) History(room string, n int) ([]models.MessageDTO, error) {
	var msgs []models.MessageDTO
	path := "/api/messages?room=" + url.QueryEscape(room) + "&limit=" + strconv.Itoa(n)
	err := a.do(http.MethodGet, path, nil, &msgs)
	return msgs, err
}

func (a *API) PostPublic(room, content string) (*models.MessageDTO, error) {
	var dto models.MessageDTO
	err := a.do(http.MethodPost, "/api/messages/send", map[string]string{
		"room": room, "content": content,
	}, &dto)
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

func (a *API) SendDM(room, recipientID, content string) (*models.MessageDTO, error) {
	var dto models.MessageDTO
	err := a.do(http.MethodPost, "/api/messages/dm", map[string]string{
		"room": room, "recipientUserId": recipientID, "content": content,
	}, &dto)
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

func (a *API) Online(room string) (int, error) {
	var res struct {
		Online int `json:"online"`
	}
	err := a.do(http.MethodGet, "/api/rooms/online?room="+url.QueryEscape(room), nil, &res)
	return res.Online, err
}

func (a *API) CreateRoom(name string) (*models.Room, error) {
	var room models.Room
	err := a.do(http.MethodPost, "/api/rooms/create", map[string]string{"name": name}, &room)
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (a *API) ArchiveRoom(name string) error {
	return a.do(http.MethodPost, "/api/rooms/archive", map[string]string{"name": name}, nil)
}

func (a *API) Participants(room string) ([]models.User, error) {
	var users []models.User
	err := a.do(http.MethodGet, "/api/rooms/participants?room="+url.QueryEscape(room), nil, &users)
	return users, err
}
