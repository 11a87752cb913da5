package models

import "time"

// Highlight is a user-created annotation tying a text span on one page of a
// Document to a color and an optional comment. A highlight belongs to exactly
// one Document and is embedded in its record.
type Highlight struct {
	ID        string    `firestore:"id" json:"id"`
	Text      string    `firestore:"text" json:"text"`
	Color     string    `firestore:"color" json:"color"`
	Comment   string    `firestore:"comment,omitempty" json:"comment,omitempty"`
	Page      int       `firestore:"page" json:"page"`
	Start     int       `firestore:"start" json:"start"`
	End       int       `firestore:"end" json:"end"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
}

// AnnotatedVersion points at the most recently generated annotated rendering
// of a Document. It is overwritten, not versioned, on each generation run.
type AnnotatedVersion struct {
	StoragePath string    `firestore:"storagePath" json:"storagePath"`
	GeneratedAt time.Time `firestore:"generatedAt" json:"generatedAt"`
}

// Document is the main record for one uploaded PDF: its metadata, the
// extracted text, the highlight list and the optional annotated rendering.
type Document struct {
	ID               string            `firestore:"-" json:"id"`
	UserID           string            `firestore:"userId" json:"userId"`
	Title            string            `firestore:"title" json:"title"`
	Size             int64             `firestore:"size" json:"size"`
	PageCount        int               `firestore:"pageCount" json:"pageCount"`
	TextContent      string            `firestore:"textContent,omitempty" json:"textContent,omitempty"`
	Summary          string            `firestore:"summary,omitempty" json:"summary,omitempty"`
	StoragePath      string            `firestore:"storagePath" json:"storagePath"`
	UploadDate       time.Time         `firestore:"uploadDate" json:"uploadDate"`
	Highlights       []Highlight       `firestore:"highlights" json:"highlights"`
	AnnotatedVersion *AnnotatedVersion `firestore:"annotatedVersion,omitempty" json:"annotatedVersion,omitempty"`
}

// HighlightsForPage returns the document's highlights on the given 1-based
// page, preserving creation order.
func (d *Document) HighlightsForPage(page int) []Highlight {
	var res []Highlight
	for _, h := range d.Highlights {
		if h.Page == page {
			res = append(res, h)
		}
	}
	return res
}
