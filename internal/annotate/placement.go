package annotate

// Rect is an axis-aligned rectangle in PDF user-space coordinates. The origin
// is the lower-left corner of the page.
type Rect struct {
	X, Y, W, H float64
}

// Estimator converts a highlight's character-offset span into an on-page
// rectangle. Implementations are free to consult real glyph layout; the
// default does not.
type Estimator interface {
	Estimate(start, end int, pageHeight float64) Rect
}

// OffsetEstimator approximates highlight placement from character offsets
// alone, assuming roughly ten horizontal units per character and scaling the
// vertical position down the page by the same factor. It never inspects the
// page's actual text layout, so placements drift on real documents; the
// formula is kept stable because stored highlights were created against it.
type OffsetEstimator struct{}

// Estimate returns the approximate rectangle for a span. Spans with
// end < start yield a negative width, which is passed through untouched.
func (OffsetEstimator) Estimate(start, end int, pageHeight float64) Rect {
	return Rect{
		X: 50 + float64(start)*0.1,
		Y: pageHeight - float64(start)*0.1,
		W: float64(end-start) * 0.1,
		H: 20,
	}
}
