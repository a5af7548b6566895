package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User role constants
const (
	RoleAdmin  = "admin"
	RoleLawyer = "lawyer"
	RoleStaff  = "staff"
	RoleClient = "client"
)

// User is owned by the surrounding application; the engine reads it for
// contact details and the attorney capability check.
type User struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name     string  `gorm:"not null" json:"name"`
	Email    string  `gorm:"uniqueIndex;not null" json:"email"`
	Phone    *string `gorm:"size:20" json:"phone,omitempty"`
	Role     string  `gorm:"not null;default:staff" json:"role"` // admin, lawyer, staff, client
	IsActive bool    `gorm:"not null;default:true" json:"is_active"`
}

// BeforeCreate hook to generate UUID
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// IsAttorney reports whether the user can be assigned as a case attorney
func (u *User) IsAttorney() bool {
	return u.IsActive && (u.Role == RoleLawyer || u.Role == RoleAdmin)
}
