package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const RoleAdmin = "Admin"

type User struct {
	ID           string     `gorm:"primarykey;size:36" json:"id"`
	Username     string     `gorm:"size:64;not null;uniqueIndex" json:"username"`
	PasswordHash string     `gorm:"not null" json:"-"`
	IsActive     bool       `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

func (User) TableName() string { return "app_users" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

type Role struct {
	ID   string `gorm:"primarykey;size:36" json:"id"`
	Name string `gorm:"size:32;not null;uniqueIndex" json:"name"`
}

func (Role) TableName() string { return "roles" }

func (r *Role) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// UserRole links a user to a role. Composite primary key, no surrogate id.
type UserRole struct {
	UserID string `gorm:"primarykey;size:36" json:"user_id"`
	RoleID string `gorm:"primarykey;size:36" json:"role_id"`
}

func (UserRole) TableName() string { return "user_roles" }
