package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Appointment status constants
const (
	AppointmentStatusScheduled = "SCHEDULED"
	AppointmentStatusConfirmed = "CONFIRMED"
	AppointmentStatusCancelled = "CANCELLED"
	AppointmentStatusCompleted = "COMPLETED"
	AppointmentStatusNoShow    = "NO_SHOW"
)

// Appointment is created by the scheduling collaborator; the engine only reads it
type Appointment struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CaseID *string `gorm:"type:uuid;index" json:"case_id,omitempty"`

	Type            string    `gorm:"size:60" json:"type"`
	Status          string    `gorm:"size:20;default:'SCHEDULED';index" json:"status"`
	ScheduledAt     time.Time `gorm:"not null;index" json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	UserID          string    `gorm:"type:uuid;index" json:"user_id"` // counterpart attending
	Notes           *string   `gorm:"type:text" json:"notes,omitempty"`
}

// BeforeCreate hook to generate UUID
func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// BeforeSave stores the scheduled time in UTC
func (a *Appointment) BeforeSave(tx *gorm.DB) error {
	a.ScheduledAt = a.ScheduledAt.UTC()
	return nil
}

// TableName specifies the table name for Appointment model
func (Appointment) TableName() string {
	return "appointments"
}

// IsActive reports whether the appointment is still expected to happen
func (a *Appointment) IsActive() bool {
	return a.Status == AppointmentStatusScheduled || a.Status == AppointmentStatusConfirmed
}

// IsUpcoming reports whether the appointment is active and scheduled after now
func (a *Appointment) IsUpcoming(now time.Time) bool {
	return a.IsActive() && a.ScheduledAt.After(now)
}
