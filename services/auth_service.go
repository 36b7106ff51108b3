package services

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"roomchat-backend/config"
	"roomchat-backend/models"
	"roomchat-backend/repository"
	"roomchat-backend/utils"
)

// Identity is the verified claim set extracted from a bearer token.
type Identity struct {
	UserID   string
	Username string
	Roles    []string
}

func (id *Identity) HasRole(role string) bool {
	return id != nil && slices.Contains(id.Roles, role)
}

type AuthService struct {
	users  repository.UserRepository
	config *config.Config
}

func NewAuthService(userRepo repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{users: userRepo, config: cfg}
}

func (s *AuthService) Register(username, password string) (string, *models.User, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 || len(username) > 20 {
		return "", nil, fmt.Errorf("%w: username must be between 3 and 20 characters", ErrValidation)
	}
	if len(password) < 6 || len(password) > 100 {
		return "", nil, fmt.Errorf("%w: password must be between 6 and 100 characters", ErrValidation)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, err
	}
	u, err := s.users.Create(username, string(hashed))
	if err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			return "", nil, fmt.Errorf("%w: username already exists", ErrValidation)
		}
		return "", nil, err
	}
	token, err := s.CreateToken(u)
	return token, u, err
}

func (s *AuthService) Login(username, password string) (string, *models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	}

	u, err := s.users.FindByUsername(username)
	if err != nil {
		return "", nil, fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", nil, fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
	}
	token, err := s.CreateToken(u)
	return token, u, err
}

func (s *AuthService) CreateToken(u *models.User) (string, error) {
	roles, err := s.users.Roles(u.ID)
	if err != nil {
		return "", err
	}
	expiry := time.Duration(s.config.JWTExpiry) * time.Hour
	return utils.GenerateJWT(s.config.JWTSecret, u.ID, u.Username, roles, expiry)
}

func (s *AuthService) ParseToken(token string) (*Identity, error) {
	uid, uname, roles, err := utils.ParseJWT(s.config.JWTSecret, token)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	}
	return &Identity{UserID: uid, Username: uname, Roles: roles}, nil
}

// EnsureAdminUser creates the bootstrap admin account on first start
// and makes sure it carries the Admin role.
func (s *AuthService) EnsureAdminUser(username, password string) (*models.User, error) {
	u, err := s.users.FindByUsername(username)
	if errors.Is(err, repository.ErrUserNotFound) {
		hashed, herr := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if herr != nil {
			return nil, herr
		}
		u, err = s.users.Create(username, string(hashed))
	}
	if err != nil {
		return nil, err
	}
	if err := s.users.AssignRole(u.ID, models.RoleAdmin); err != nil {
		return nil, err
	}
	return u, nil
}
