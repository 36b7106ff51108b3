package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"roomchat-backend/models"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrUsernameExists = errors.New("username already exists")
)

type UserRepository interface {
	Create(username, passwordHash string) (*models.User, error)
	FindByUsername(username string) (*models.User, error)
	FindByID(id string) (*models.User, error)
	Roles(userID string) ([]string, error)
	HasRole(userID, role string) (bool, error)
	AssignRole(userID, role string) error
}

type GormUserRepo struct {
	db *gorm.DB
}

func NewGormUserRepo(db *gorm.DB) *GormUserRepo {
	return &GormUserRepo{db: db}
}

func (r *GormUserRepo) Create(username, passwordHash string) (*models.User, error) {
	u := &models.User{
		Username:     username,
		PasswordHash: passwordHash,
		IsActive:     true,
	}
	if err := r.db.Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUsernameExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

func (r *GormUserRepo) FindByUsername(username string) (*models.User, error) {
	var u models.User
	if err := r.db.First(&u, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &u, nil
}

func (r *GormUserRepo) FindByID(id string) (*models.User, error) {
	var u models.User
	if err := r.db.First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &u, nil
}

func (r *GormUserRepo) Roles(userID string) ([]string, error) {
	var names []string
	err := r.db.Model(&models.UserRole{}).
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("user_roles.user_id = ?", userID).
		Pluck("roles.name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}
	return names, nil
}

// HasRole checks the persisted role assignment. This is the second half
// of the duplicated admin check; the first half reads the token claims.
func (r *GormUserRepo) HasRole(userID, role string) (bool, error) {
	var count int64
	err := r.db.Model(&models.UserRole{}).
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("user_roles.user_id = ? AND roles.name = ?", userID, role).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check role: %w", err)
	}
	return count > 0, nil
}

func (r *GormUserRepo) AssignRole(userID, role string) error {
	var ro models.Role
	err := r.db.First(&ro, "name = ?", role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		ro = models.Role{Name: role}
		if err = r.db.Create(&ro).Error; err != nil {
			return fmt.Errorf("failed to create role: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to find role: %w", err)
	}

	has, err := r.HasRole(userID, role)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	if err := r.db.Create(&models.UserRole{UserID: userID, RoleID: ro.ID}).Error; err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}
	return nil
}
