package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Document is the metadata of a file attached to a case.
// The bytes live in external blob storage.
type Document struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CaseID string `gorm:"type:uuid;not null;index" json:"case_id"`

	Name       string `gorm:"not null" json:"name"`
	Type       string `gorm:"size:60;index" json:"type"` // e.g. "evidence", "contract", "id"
	URL        string `json:"url"`
	StorageKey string `json:"-"` // Not exposed in JSON
	Size       int64  `gorm:"not null;default:0" json:"size"`
	UploadedBy string `gorm:"type:uuid;not null" json:"uploaded_by"`
}

// BeforeCreate hook to generate UUID
func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for Document model
func (Document) TableName() string {
	return "documents"
}
