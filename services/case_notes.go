package services

import (
	"html"
	"strings"

	"legal_matter_engine/models"

	"github.com/microcosm-cc/bluemonday"
)

// Notes are stored as plain text; any markup is stripped on the way in.
var notePolicy = bluemonday.StrictPolicy()

func sanitizeNote(content string) string {
	return strings.TrimSpace(html.UnescapeString(notePolicy.Sanitize(content)))
}

// VisibleNotes returns the notes viewer may read. Private notes are
// hidden from the case client.
func VisibleNotes(c *models.Case, viewerID string) []models.Note {
	notes := c.Metadata.Notes
	if viewerID == "" || viewerID != c.ClientID {
		return append([]models.Note(nil), notes...)
	}
	visible := make([]models.Note, 0, len(notes))
	for _, n := range notes {
		if !n.IsPrivate {
			visible = append(visible, n)
		}
	}
	return visible
}
