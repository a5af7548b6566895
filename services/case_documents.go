package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"legal_matter_engine/models"
)

// RecordDocument attaches uploaded document metadata to a case
func (s *CaseService) RecordDocument(ctx context.Context, caseID string, input DocumentInput) (*models.Document, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, validationError("document name is required")
	}
	if input.UploadedBy == "" {
		return nil, validationError("uploaded_by is required")
	}

	doc := &models.Document{
		CaseID:     caseID,
		Name:       input.Name,
		Type:       input.Type,
		URL:        input.URL,
		StorageKey: input.StorageKey,
		Size:       input.Size,
		UploadedBy: input.UploadedBy,
	}
	err := s.store.Transaction(ctx, func(tx *Store) error {
		c, err := tx.GetCase(ctx, caseID)
		if err != nil {
			return err
		}
		if !c.IsParty(input.UploadedBy) {
			return fmt.Errorf("%w: %s is not a party to case %s", ErrUnauthorized, input.UploadedBy, c.CaseNumber)
		}
		return tx.CreateDocument(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(caseID)
	log.Printf("[CASE] document %s recorded on case %s by %s", doc.ID, caseID, doc.UploadedBy)
	return doc, nil
}

// GetDocument returns a document the actor may read
func (s *CaseService) GetDocument(ctx context.Context, documentID, actorID string) (*models.Document, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireAccess(ctx, doc.CaseID, actorID); err != nil {
		return nil, err
	}
	return doc, nil
}

// DeleteDocument soft-deletes the document row and removes its blob.
// Blob removal is best effort; the row is already gone when it fails.
func (s *CaseService) DeleteDocument(ctx context.Context, documentID, actorID string) error {
	var doc *models.Document
	err := s.store.Transaction(ctx, func(tx *Store) error {
		var err error
		doc, err = tx.GetDocument(ctx, documentID)
		if err != nil {
			return err
		}
		c, err := tx.GetCase(ctx, doc.CaseID)
		if err != nil {
			return err
		}
		if !CanDeleteDocument(doc, c, actorID) {
			return fmt.Errorf("%w: %s cannot delete document %s", ErrUnauthorized, actorID, doc.ID)
		}
		return tx.DeleteDocument(ctx, documentID)
	})
	if err != nil {
		return err
	}

	s.invalidate(doc.CaseID)
	if s.storage != nil && doc.StorageKey != "" {
		if err := s.storage.Delete(ctx, doc.StorageKey); err != nil {
			log.Printf("[CASE][WARNING] document %s deleted but blob %s remains: %v", doc.ID, doc.StorageKey, err)
		}
	}
	return nil
}

// DocumentURL returns a short-lived link to the document content
func (s *CaseService) DocumentURL(ctx context.Context, documentID, actorID string) (string, error) {
	doc, err := s.GetDocument(ctx, documentID, actorID)
	if err != nil {
		return "", err
	}
	if s.storage == nil || doc.StorageKey == "" {
		return doc.URL, nil
	}
	url, err := s.storage.GetSignedURL(ctx, doc.StorageKey, DocumentURLExpiry)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return url, nil
}
