package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification types
const (
	NotificationTypeCaseCreated = "CASE_CREATED"
	NotificationTypeCaseUpdate  = "CASE_UPDATE"
	NotificationTypeAssignment  = "ASSIGNMENT"
	NotificationTypeTaskOverdue = "TASK_OVERDUE"
	NotificationTypeSystem      = "SYSTEM"
)

// NotificationMetadata holds string context attached to a notification
type NotificationMetadata map[string]string

// Value implements driver.Valuer
func (m NotificationMetadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (m *NotificationMetadata) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*m = nil
		return nil
	case string:
		return json.Unmarshal([]byte(v), m)
	case []byte:
		return json.Unmarshal(v, m)
	}
	return fmt.Errorf("unsupported notification metadata type %T", value)
}

type Notification struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Targeting
	UserID string `gorm:"type:uuid;not null;index" json:"user_id"`

	// Context
	CaseID *string `gorm:"type:uuid;index" json:"case_id,omitempty"`

	// Content
	Type     string               `gorm:"not null" json:"type"`
	Title    string               `gorm:"not null" json:"title"`
	Message  string               `gorm:"type:text" json:"message"`
	Metadata NotificationMetadata `gorm:"type:text" json:"metadata,omitempty"`

	// Read tracking
	ReadAt *time.Time `json:"read_at,omitempty"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return nil
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}
