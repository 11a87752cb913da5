package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PROJECT_ID", "proj")
	t.Setenv("PDF_BUCKET", "bucket")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "pdfs", cfg.FirestoreCollection)
	assert.Equal(t, "us-central1", cfg.VertexRegion)
	assert.Equal(t, "gemini-1.5-flash", cfg.SummaryModel)
	assert.Equal(t, ":8080", cfg.ListenAddr)
}

func TestLoadRequiresProjectAndBucket(t *testing.T) {
	t.Setenv("PROJECT_ID", "")
	t.Setenv("PDF_BUCKET", "bucket")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("PROJECT_ID", "proj")
	t.Setenv("PDF_BUCKET", "")
	_, err = Load()
	assert.Error(t, err)
}
