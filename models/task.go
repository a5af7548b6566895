package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Task status constants
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
)

// Task type constants
const (
	TaskTypeDocumentPrep        = "document-prep"
	TaskTypeCourtFiling         = "court-filing"
	TaskTypeClientCommunication = "client-communication"
	TaskTypeResearch            = "research"
	TaskTypeOther               = "other"
)

// Task priority constants
const (
	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
	TaskPriorityUrgent = "urgent"
)

// Task is a unit of work, usually against a case
type Task struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Standalone tasks (general reminders) have no case
	CaseID *string `gorm:"type:uuid;index" json:"case_id,omitempty"`

	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Type        string `gorm:"size:40;not null;default:other" json:"type"`
	Priority    string `gorm:"size:20;not null;default:medium" json:"priority"`
	Status      string `gorm:"size:20;not null;default:pending;index" json:"status"`

	AssignedToID *string    `gorm:"type:uuid;index" json:"assigned_to_id,omitempty"`
	CreatedByID  string     `gorm:"type:uuid" json:"created_by_id"`
	DueDate      *time.Time `gorm:"index" json:"due_date,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`

	// Set on follow-on tasks to the task whose completion produced them
	ParentTaskID *string `gorm:"type:uuid;index" json:"parent_task_id,omitempty"`

	ReminderSentAt *time.Time `json:"reminder_sent_at,omitempty"`
}

// BeforeCreate hook to generate UUID
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = TaskStatusPending
	}
	return nil
}

// BeforeSave stores every task time in UTC
func (t *Task) BeforeSave(tx *gorm.DB) error {
	t.DueDate = utcPtr(t.DueDate)
	t.CompletedAt = utcPtr(t.CompletedAt)
	t.ReminderSentAt = utcPtr(t.ReminderSentAt)
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}

// TableName specifies the table name for Task model
func (Task) TableName() string {
	return "tasks"
}

// IsCompleted checks if the task reached its terminal status
func (t *Task) IsCompleted() bool {
	return t.Status == TaskStatusCompleted
}

// IsOverdue reports whether the task is open and past its due date at now
func (t *Task) IsOverdue(now time.Time) bool {
	return !t.IsCompleted() && t.DueDate != nil && t.DueDate.Before(now)
}

// IsValidTaskStatus checks if the status is valid
func IsValidTaskStatus(status string) bool {
	switch status {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// IsValidTaskPriority checks if the priority is valid
func IsValidTaskPriority(priority string) bool {
	switch priority {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent:
		return true
	}
	return false
}

// IsValidTaskType checks if the type is valid
func IsValidTaskType(taskType string) bool {
	switch taskType {
	case TaskTypeDocumentPrep, TaskTypeCourtFiling, TaskTypeClientCommunication, TaskTypeResearch, TaskTypeOther:
		return true
	}
	return false
}
