package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPDFOptions(t *testing.T) {
	opts := DefaultPDFOptions()
	assert.Equal(t, "portrait", opts.PageOrientation)
	assert.Equal(t, "letter", opts.PageSize)
	assert.Equal(t, 54, opts.MarginTop)

	w, h := opts.paperSize()
	assert.Equal(t, 8.5, w)
	assert.Equal(t, 11.0, h)

	opts.PageSize = "A4"
	opts.PageOrientation = "landscape"
	w, h = opts.paperSize()
	assert.Equal(t, 11.69, w)
	assert.Equal(t, 8.27, h)
}

func TestPDFRendererSmoke(t *testing.T) {
	chromePath := os.Getenv("CHROME_PATH")
	if chromePath == "" {
		t.Skip("Skipping PDF generation test: CHROME_PATH not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pdf, err := NewPDFRenderer(chromePath).Render(ctx, "<h1>IMM-2026-0001</h1>", DefaultPDFOptions())
	if err != nil {
		if os.IsNotExist(err) {
			t.Skipf("Skipping: Chrome not found at %s", chromePath)
		}
		t.Fatalf("Render failed: %v", err)
	}
	assert.True(t, len(pdf) > 4)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}
