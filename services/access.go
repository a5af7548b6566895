package services

import (
	"context"
	"fmt"

	"legal_matter_engine/models"
)

// HasAccess reports whether actorID may read the case. Only the client and
// the assigned attorney are parties to a case.
func (s *CaseService) HasAccess(ctx context.Context, caseID, actorID string) (bool, error) {
	c, err := s.store.GetCase(ctx, caseID)
	if err != nil {
		return false, err
	}
	return c.IsParty(actorID), nil
}

// requireAccess loads the case and fails with ErrUnauthorized for non-parties
func (s *CaseService) requireAccess(ctx context.Context, caseID, actorID string) (*models.Case, error) {
	c, err := s.store.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !c.IsParty(actorID) {
		return nil, fmt.Errorf("%w: %s is not a party to case %s", ErrUnauthorized, actorID, c.CaseNumber)
	}
	return c, nil
}

// CanDeleteDocument allows the uploader and the case attorney
func CanDeleteDocument(doc *models.Document, c *models.Case, actorID string) bool {
	if actorID == "" {
		return false
	}
	if doc.UploadedBy == actorID {
		return true
	}
	return c.AttorneyID != nil && *c.AttorneyID == actorID
}
