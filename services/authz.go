package services

import (
	"errors"
	"fmt"

	"roomchat-backend/models"
	"roomchat-backend/repository"
)

// AuthzGuard is the single place authorization policy lives. Callers
// never duplicate role logic; they invoke the guard.
type AuthzGuard struct {
	users repository.UserRepository
}

func NewAuthzGuard(userRepo repository.UserRepository) *AuthzGuard {
	return &AuthzGuard{users: userRepo}
}

// RequireActiveUser verifies the caller is authenticated and still an
// active account. An unknown or deactivated sender invalidates any send.
func (g *AuthzGuard) RequireActiveUser(id *Identity) (*models.User, error) {
	if id == nil || id.UserID == "" {
		return nil, ErrUnauthenticated
	}
	u, err := g.users.FindByID(id.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: unknown user", ErrUnauthenticated)
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, fmt.Errorf("%w: account is deactivated", ErrForbidden)
	}
	return u, nil
}

// RequireAdmin checks the Admin role twice, independently: once against
// the token claims and once against the persisted role assignment.
// Either check failing denies the call.
func (g *AuthzGuard) RequireAdmin(id *Identity) (*models.User, error) {
	u, err := g.RequireActiveUser(id)
	if err != nil {
		return nil, err
	}
	if !id.HasRole(models.RoleAdmin) {
		return nil, fmt.Errorf("%w: admin role required", ErrForbidden)
	}
	persisted, err := g.users.HasRole(u.ID, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if !persisted {
		return nil, fmt.Errorf("%w: admin role required", ErrForbidden)
	}
	return u, nil
}

// AllowDM authorizes sender to direct-message recipientID: admin
// sender, distinct recipient, recipient exists and is active.
func (g *AuthzGuard) AllowDM(sender *Identity, recipientID string) (*models.User, *models.User, error) {
	su, err := g.RequireAdmin(sender)
	if err != nil {
		return nil, nil, err
	}
	if recipientID == "" {
		return nil, nil, fmt.Errorf("%w: recipient is required", ErrValidation)
	}
	if recipientID == su.ID {
		return nil, nil, fmt.Errorf("%w: cannot send a dm to yourself", ErrValidation)
	}
	ru, err := g.users.FindByID(recipientID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil, fmt.Errorf("%w: recipient not found", ErrValidation)
		}
		return nil, nil, err
	}
	if !ru.IsActive {
		return nil, nil, fmt.Errorf("%w: recipient is deactivated", ErrValidation)
	}
	return su, ru, nil
}
