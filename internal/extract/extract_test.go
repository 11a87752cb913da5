package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marginalia-app/marginalia/internal/pdftest"
)

func TestText(t *testing.T) {
	res, err := Text(pdftest.MinimalPDF(2))
	require.NoError(t, err)

	require.Len(t, res.Pages, 2)
	assert.Contains(t, res.Pages[0], "Page 1")
	assert.Contains(t, res.Pages[1], "Page 2")
	assert.Contains(t, res.Text, "Page 1")
}

func TestTextRejectsGarbage(t *testing.T) {
	_, err := Text([]byte("definitely not a pdf"))
	assert.Error(t, err)
}
