package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHighlightsForPage(t *testing.T) {
	doc := &Document{
		Highlights: []Highlight{
			{ID: "a", Page: 1},
			{ID: "b", Page: 2},
			{ID: "c", Page: 1},
		},
	}

	page1 := doc.HighlightsForPage(1)
	assert.Len(t, page1, 2)
	// Creation order is preserved; footnote numbering depends on it.
	assert.Equal(t, "a", page1[0].ID)
	assert.Equal(t, "c", page1[1].ID)

	assert.Empty(t, doc.HighlightsForPage(3))
}
