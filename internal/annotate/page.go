package annotate

import (
	"fmt"
	"log/slog"

	"github.com/marginalia-app/marginalia/internal/models"
)

var black = RGB{0, 0, 0}

// renderHighlights draws the highlight overlays for one page: a translucent
// rectangle per highlight, the highlighted text on top, and for commented
// highlights an inline footnote marker and the comment text to the right of
// the box. Highlights are drawn in document order. A failure while drawing
// one highlight is logged and does not stop the remaining ones.
func renderHighlights(w *contentWriter, hs []models.Highlight, pageHeight float64, est Estimator, log *slog.Logger) {
	for i, h := range hs {
		if err := drawHighlight(w, h, i, pageHeight, est); err != nil {
			log.Warn("skipping highlight", "highlightId", h.ID, "error", err)
		}
	}
}

func drawHighlight(w *contentWriter, h models.Highlight, index int, pageHeight float64, est Estimator) error {
	pos := est.Estimate(h.Start, h.End, pageHeight)
	color := ResolveColor(h.Color)

	w.FillRect(Rect{X: pos.X, Y: pos.Y - 2, W: pos.W, H: pos.H + 4}, color)

	if err := w.TextClipped(h.Text, fontBoldName, 12, pos.X, pos.Y+4, black, pos.W); err != nil {
		return fmt.Errorf("highlight text: %w", err)
	}

	if h.Comment != "" {
		marker := fmt.Sprintf("%d.", index+1)
		if err := w.Text(marker, fontBoldName, 12, pos.X-5, pos.Y+4, black); err != nil {
			return fmt.Errorf("footnote marker: %w", err)
		}
		if err := w.Text(": "+h.Comment, fontRegularName, 12, pos.X+pos.W+5, pos.Y+4, black); err != nil {
			return fmt.Errorf("inline comment: %w", err)
		}
	}
	return nil
}
