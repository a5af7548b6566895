package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"legal_matter_engine/models"
)

const MaxUploadSize = 10 * 1024 * 1024 // 10MB

// allowedDocumentTypes maps accepted extensions to the content types their
// first bytes may sniff as
var allowedDocumentTypes = map[string][]string{
	".pdf":  {"application/pdf"},
	".doc":  {"application/msword", "application/octet-stream"},
	".docx": {"application/zip", "application/octet-stream"},
	".txt":  {"text/plain"},
	".jpg":  {"image/jpeg"},
	".jpeg": {"image/jpeg"},
	".png":  {"image/png"},
}

// ValidateDocumentUpload checks size, extension and that the content matches
// the extension. It returns the sniffed content type.
func ValidateDocumentUpload(fileHeader *multipart.FileHeader) (string, error) {
	if fileHeader.Size > MaxUploadSize {
		return "", validationError("file size exceeds maximum allowed size of 10MB")
	}
	if fileHeader.Size == 0 {
		return "", validationError("file is empty")
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	accepted, ok := allowedDocumentTypes[ext]
	if !ok {
		return "", validationError("file type not allowed. Accepted formats: PDF, DOC, DOCX, TXT, JPG, PNG")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	// Read first 512 bytes to detect content type
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file content: %w", err)
	}
	detected := http.DetectContentType(buffer[:n])
	for _, want := range accepted {
		if strings.HasPrefix(detected, want) {
			return detected, nil
		}
	}
	return "", validationError("file content (%s) does not match its %s extension", detected, ext)
}

// UploadDocument validates the file, stores it and records its metadata on
// the case. The blob is removed again when the metadata cannot be recorded.
func (s *CaseService) UploadDocument(ctx context.Context, caseID string, fileHeader *multipart.FileHeader, docType, actorID string) (*models.Document, error) {
	if s.storage == nil {
		return nil, validationError("document storage is not configured")
	}
	if _, err := s.requireAccess(ctx, caseID, actorID); err != nil {
		return nil, err
	}
	contentType, err := ValidateDocumentUpload(fileHeader)
	if err != nil {
		return nil, err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	key := CaseDocumentKey(caseID, fileHeader.Filename)
	url, err := s.storage.Put(ctx, key, file, contentType, fileHeader.Size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	doc, err := s.RecordDocument(ctx, caseID, DocumentInput{
		Name:       filepath.Base(fileHeader.Filename),
		Type:       docType,
		URL:        url,
		StorageKey: key,
		Size:       fileHeader.Size,
		UploadedBy: actorID,
	})
	if err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			log.Printf("[CASE][WARNING] orphaned blob %s after failed upload: %v", key, delErr)
		}
		return nil, err
	}
	return doc, nil
}
