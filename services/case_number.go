package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"legal_matter_engine/models"
)

// CaseNumberComponents holds the parts of a case number
type CaseNumberComponents struct {
	AreaCode string
	Year     int
	Sequence int
}

// NextCaseNumber issues the next case number for a practice area.
// Format: {AREA_CODE}-{YEAR}-{SEQUENCE}
// Example: IMM-2026-0042
//
// The sequence comes from an atomically incremented counter row. When store is
// a transaction, the increment rolls back with it.
func NextCaseNumber(ctx context.Context, store *Store, practiceArea string, now time.Time) (string, error) {
	code, ok := models.PracticeAreaCode(practiceArea)
	if !ok {
		return "", validationError("unknown practice area %q", practiceArea)
	}
	year := now.UTC().Year()

	seq, err := store.NextSequence(ctx, code, year)
	if err != nil {
		return "", err
	}
	return FormatCaseNumber(code, year, seq), nil
}

// FormatCaseNumber builds a case number with a zero-padded sequence
func FormatCaseNumber(areaCode string, year, sequence int) string {
	return fmt.Sprintf("%s-%d-%04d", areaCode, year, sequence)
}

// ParseCaseNumber splits a case number into its components
func ParseCaseNumber(caseNumber string) (*CaseNumberComponents, error) {
	parts := strings.Split(strings.TrimSpace(caseNumber), "-")
	if len(parts) != 3 || parts[0] == "" {
		return nil, fmt.Errorf("case number %q must have the form AREA-YEAR-SEQUENCE", caseNumber)
	}

	year, err := strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 4 {
		return nil, fmt.Errorf("case number %q has an invalid year", caseNumber)
	}

	seq, err := strconv.Atoi(parts[2])
	if err != nil || seq <= 0 {
		return nil, fmt.Errorf("case number %q has an invalid sequence", caseNumber)
	}

	return &CaseNumberComponents{AreaCode: parts[0], Year: year, Sequence: seq}, nil
}
