package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Case status constants
const (
	CaseStatusOpen       = "open"
	CaseStatusInProgress = "in_progress"
	CaseStatusPending    = "pending"
	CaseStatusClosed     = "closed"
	CaseStatusArchived   = "archived"
)

// Practice area constants
const (
	PracticeAreaImmigration         = "immigration"
	PracticeAreaPersonalInjury      = "personal-injury"
	PracticeAreaWorkersCompensation = "workers-compensation"
	PracticeAreaCriminalDefense     = "criminal-defense"
	PracticeAreaFamilyLaw           = "family-law"
	PracticeAreaTraffic             = "traffic"
)

// practiceAreaCodes maps each practice area to the prefix used in case numbers
var practiceAreaCodes = map[string]string{
	PracticeAreaImmigration:         "IMM",
	PracticeAreaPersonalInjury:      "PI",
	PracticeAreaWorkersCompensation: "WC",
	PracticeAreaCriminalDefense:     "CD",
	PracticeAreaFamilyLaw:           "FL",
	PracticeAreaTraffic:             "TR",
}

// caseTransitions lists the statuses reachable from each status.
// archived has no outgoing transitions.
var caseTransitions = map[string][]string{
	CaseStatusOpen:       {CaseStatusInProgress, CaseStatusClosed},
	CaseStatusInProgress: {CaseStatusPending, CaseStatusClosed},
	CaseStatusPending:    {CaseStatusInProgress, CaseStatusClosed},
	CaseStatusClosed:     {CaseStatusArchived},
	CaseStatusArchived:   {},
}

// Case represents a legal matter
type Case struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Case identification (immutable once assigned)
	CaseNumber   string  `gorm:"size:32;not null;uniqueIndex" json:"case_number"`
	PracticeArea string  `gorm:"size:40;not null;index:idx_case_area_status" json:"practice_area"`
	Status       string  `gorm:"size:20;not null;default:open;index:idx_case_area_status" json:"status"`
	Title        string  `gorm:"not null" json:"title"`
	Description  *string `gorm:"type:text" json:"description,omitempty"`

	// Client relationship (exactly one owner)
	ClientID string `gorm:"type:uuid;not null;index" json:"client_id"`
	Client   *User  `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	// Assignment
	AttorneyID *string `gorm:"type:uuid;index" json:"attorney_id,omitempty"`
	Attorney   *User   `gorm:"foreignKey:AttorneyID" json:"attorney,omitempty"`

	Metadata CaseMetadata `gorm:"type:text" json:"metadata"`
}

// BeforeCreate hook to generate UUID
func (c *Case) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = CaseStatusOpen
	}
	return nil
}

// TableName specifies the table name for Case model
func (Case) TableName() string {
	return "cases"
}

// IsClosed checks if the case is closed
func (c *Case) IsClosed() bool {
	return c.Status == CaseStatusClosed
}

// IsArchived checks if the case is archived
func (c *Case) IsArchived() bool {
	return c.Status == CaseStatusArchived
}

// IsParty reports whether the user is the case's client or assigned attorney
func (c *Case) IsParty(userID string) bool {
	if userID == "" {
		return false
	}
	if c.ClientID == userID {
		return true
	}
	return c.AttorneyID != nil && *c.AttorneyID == userID
}

// IsValidCaseStatus checks if the status is valid
func IsValidCaseStatus(status string) bool {
	_, ok := caseTransitions[status]
	return ok
}

// CanTransitionCase reports whether a case may move from one status to another
func CanTransitionCase(from, to string) bool {
	for _, next := range caseTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsValidPracticeArea checks if the practice area is one of the supported set
func IsValidPracticeArea(area string) bool {
	_, ok := practiceAreaCodes[area]
	return ok
}

// PracticeAreaCode returns the case number prefix for a practice area
func PracticeAreaCode(area string) (string, bool) {
	code, ok := practiceAreaCodes[area]
	return code, ok
}

// PracticeAreas returns every supported practice area
func PracticeAreas() []string {
	return []string{
		PracticeAreaImmigration,
		PracticeAreaPersonalInjury,
		PracticeAreaWorkersCompensation,
		PracticeAreaCriminalDefense,
		PracticeAreaFamilyLaw,
		PracticeAreaTraffic,
	}
}

// Note is an append-only entry stored in the case metadata
type Note struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by"`
	IsPrivate bool      `json:"is_private"`
}

// Financials is the financial summary kept on a case
type Financials struct {
	Currency string  `json:"currency,omitempty"`
	Retainer float64 `json:"retainer"`
	Billed   float64 `json:"billed"`
	Paid     float64 `json:"paid"`
	Expenses float64 `json:"expenses"`
}

// Outstanding returns the amount billed but not yet paid
func (f Financials) Outstanding() float64 {
	return f.Billed - f.Paid
}

// CaseMetadata is the typed form of the case's open metadata column
type CaseMetadata struct {
	Notes      []Note         `json:"notes,omitempty"`
	Financials *Financials    `json:"financials,omitempty"`
	Custom     map[string]any `json:"custom,omitempty"`
}

// Value implements driver.Valuer so metadata is persisted as JSON text
func (m CaseMetadata) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (m *CaseMetadata) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*m = CaseMetadata{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported metadata type %T", value)
	}
	if len(raw) == 0 {
		*m = CaseMetadata{}
		return nil
	}
	return json.Unmarshal(raw, m)
}

// WithNote returns a copy of the metadata with the note appended.
// Existing notes are never modified.
func (m CaseMetadata) WithNote(n Note) CaseMetadata {
	notes := make([]Note, len(m.Notes), len(m.Notes)+1)
	copy(notes, m.Notes)
	m.Notes = append(notes, n)
	return m
}
