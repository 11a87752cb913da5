// Package extract pulls plain text out of uploaded PDFs so documents can be
// summarized and highlighted by character offset.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Result holds the extracted text of a document. Text is the concatenation of
// all pages separated by newlines; Pages keeps the per-page split so callers
// can map offsets back to a page.
type Result struct {
	Text  string
	Pages []string
}

// Text extracts the plain text of every page in content. Pages whose text
// cannot be decoded are recorded as empty rather than failing the whole
// document; scanned PDFs legitimately yield no text at all.
func Text(content []byte) (Result, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return Result{}, fmt.Errorf("opening pdf for extraction: %w", err)
	}

	var res Result
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			res.Pages = append(res.Pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			res.Pages = append(res.Pages, "")
			continue
		}
		res.Pages = append(res.Pages, text)
	}
	res.Text = strings.Join(res.Pages, "\n")
	return res, nil
}
