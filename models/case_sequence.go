package models

// CaseSequence is the per practice-area, per-year counter behind case numbers
type CaseSequence struct {
	AreaCode  string `gorm:"primaryKey;size:8"`
	Year      int    `gorm:"primaryKey;autoIncrement:false"`
	LastValue int    `gorm:"not null;default:0"`
}

// TableName specifies the table name for CaseSequence model
func (CaseSequence) TableName() string {
	return "case_sequences"
}
