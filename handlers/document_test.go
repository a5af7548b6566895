package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"legal_matter_engine/middleware"
	"legal_matter_engine/models"
	"legal_matter_engine/services"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentHandlers(t *testing.T) {
	s := newTestServer(t)
	c := s.createCase(t, "Adjustment of status")

	rec := s.do(t, http.MethodPost, "/api/cases/"+c.ID+"/documents", s.client, services.DocumentInput{
		Name:       "passport.pdf",
		Type:       "id",
		StorageKey: services.CaseDocumentKey(c.ID, "passport.pdf"),
		Size:       2048,
		UploadedBy: s.attorney.ID, // replaced by the actor
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var doc models.Document
	decode(t, rec, &doc)
	assert.Equal(t, s.client.ID, doc.UploadedBy)

	t.Run("OutsiderCannotUpload", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/cases/"+c.ID+"/documents", s.other, services.DocumentInput{Name: "x.pdf"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("Get", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/documents/"+doc.ID, s.attorney, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var got models.Document
		decode(t, rec, &got)
		assert.Equal(t, "passport.pdf", got.Name)

		rec = s.do(t, http.MethodGet, "/api/documents/"+doc.ID, s.other, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("SignedURL", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/documents/"+doc.ID+"/url", s.client, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp struct {
			URL       string `json:"url"`
			ExpiresIn int    `json:"expires_in"`
		}
		decode(t, rec, &resp)
		assert.Contains(t, resp.URL, "/cases/"+c.ID+"/")
		assert.True(t, strings.HasSuffix(resp.URL, ".pdf"), resp.URL)
		assert.False(t, strings.HasPrefix(resp.URL, "//"), resp.URL)
		assert.Equal(t, 900, resp.ExpiresIn)

		rec = s.do(t, http.MethodGet, "/api/documents/"+doc.ID+"/url?redirect=true", s.client, nil)
		assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
		assert.Equal(t, resp.URL, rec.Header().Get("Location"))
	})

	t.Run("Delete", func(t *testing.T) {
		rec := s.do(t, http.MethodDelete, "/api/documents/"+doc.ID, s.other, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = s.do(t, http.MethodDelete, "/api/documents/"+doc.ID, s.attorney, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = s.do(t, http.MethodGet, "/api/documents/"+doc.ID, s.attorney, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		_, err := s.store.GetDocument(context.Background(), doc.ID)
		assert.ErrorIs(t, err, services.ErrNotFound)
	})
}

func TestUploadDocumentHandler(t *testing.T) {
	s := newTestServer(t)
	c := s.createCase(t, "Petition filing")

	upload := func(actor *models.User, filename string, content []byte) *httptest.ResponseRecorder {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
		require.NoError(t, writer.WriteField("type", "evidence"))
		require.NoError(t, writer.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/cases/"+c.ID+"/documents/upload", body)
		req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
		req.Header.Set(middleware.ActorHeader, actor.ID)
		rec := httptest.NewRecorder()
		s.e.ServeHTTP(rec, req)
		return rec
	}

	rec := upload(s.attorney, "photo.png", append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var doc models.Document
	decode(t, rec, &doc)
	assert.Equal(t, "photo.png", doc.Name)
	assert.Equal(t, "evidence", doc.Type)
	assert.Equal(t, s.attorney.ID, doc.UploadedBy)

	rec = upload(s.attorney, "photo.png", []byte("not an image"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = upload(s.other, "photo.png", append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/cases/"+c.ID+"/documents/upload", s.attorney, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
