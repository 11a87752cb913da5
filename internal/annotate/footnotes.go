package annotate

import (
	"fmt"

	"github.com/marginalia-app/marginalia/internal/models"
)

// Footnote block layout. Anchored near the bottom of the page; entries stack
// downward from the header and run off the page edge when they don't fit.
const (
	footerStartY  = 150.0
	footerX       = 50.0
	footerMargin  = 50.0
	footnoteStep  = 50.0
	headerGap     = 30.0
	commentIndent = 20.0
	commentDrop   = 20.0
)

var (
	separatorGray = RGB{0.2, 0.2, 0.2}
	stampGray     = RGB{0.5, 0.5, 0.5}
)

// hasComments reports whether any highlight carries a comment, i.e. whether
// the page needs a footnote block at all.
func hasComments(hs []models.Highlight) bool {
	for _, h := range hs {
		if h.Comment != "" {
			return true
		}
	}
	return false
}

// renderFootnotes draws the footnote block for one page: a separator line, a
// header, one numbered entry per commented highlight, and a page-number
// stamp. Entry numbers are the highlight's 1-based position within the page's
// highlight list, matching the inline markers drawn by renderHighlights.
// The first failed draw aborts the rest of the block.
func renderFootnotes(w *contentWriter, hs []models.Highlight, pageIndex, totalPages int, pageWidth float64) error {
	w.Line(footerMargin, footerStartY+20, pageWidth-footerMargin, footerStartY+20, 1.5, separatorGray)

	if err := w.Text("Footnotes:", fontBoldName, 14, footerX, footerStartY, black); err != nil {
		return fmt.Errorf("footnote header: %w", err)
	}

	currentY := footerStartY - headerGap
	for i, h := range hs {
		if h.Comment == "" {
			continue
		}
		entry := fmt.Sprintf("%d. %s:", i+1, h.Text)
		if err := w.TextClipped(entry, fontBoldName, 12, footerX, currentY, ResolveColor(h.Color), pageWidth-100); err != nil {
			return fmt.Errorf("footnote entry %d: %w", i+1, err)
		}
		if err := w.TextClipped(h.Comment, fontRegularName, 12, footerX+commentIndent, currentY-commentDrop, black, pageWidth-120); err != nil {
			return fmt.Errorf("footnote comment %d: %w", i+1, err)
		}
		currentY -= footnoteStep
	}

	stamp := fmt.Sprintf("Page %d of %d", pageIndex+1, totalPages)
	if err := w.Text(stamp, fontRegularName, 9, pageWidth-100, footerMargin, stampGray); err != nil {
		return fmt.Errorf("page stamp: %w", err)
	}
	return nil
}
