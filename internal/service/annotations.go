package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/marginalia-app/marginalia/internal/annotate"
	"github.com/marginalia-app/marginalia/internal/models"
)

// HighlightInput carries the user-supplied fields for a new highlight.
type HighlightInput struct {
	Text    string `json:"text"`
	Color   string `json:"color"`
	Comment string `json:"comment"`
	Page    int    `json:"page"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

// HighlightUpdate carries a partial update; nil fields are left unchanged.
type HighlightUpdate struct {
	Text    *string `json:"text"`
	Color   *string `json:"color"`
	Comment *string `json:"comment"`
	Page    *int    `json:"page"`
	Start   *int    `json:"start"`
	End     *int    `json:"end"`
}

// AnnotatedResult describes a freshly generated annotated rendering.
type AnnotatedResult struct {
	URL              string                  `json:"url"`
	AnnotatedVersion models.AnnotatedVersion `json:"annotatedVersion"`
	Document         *models.Document        `json:"-"`
}

func (s *PDFService) validateHighlight(doc *models.Document, text, color string, page, start, end int) error {
	if text == "" {
		return fmt.Errorf("%w: highlight text is required", ErrInvalidInput)
	}
	if page < 1 || page > doc.PageCount {
		return fmt.Errorf("%w: page %d out of range 1..%d", ErrInvalidInput, page, doc.PageCount)
	}
	if start < 0 || end < 0 {
		return fmt.Errorf("%w: offsets must not be negative", ErrInvalidInput)
	}
	if color != "" && !annotate.KnownColor(color) {
		return fmt.Errorf("%w: unknown color %q", ErrInvalidInput, color)
	}
	return nil
}

// AddHighlight appends a highlight to one of the user's documents. An empty
// color defaults to yellow.
func (s *PDFService) AddHighlight(ctx context.Context, userID, docID string, in HighlightInput) (*models.Highlight, error) {
	doc, err := s.getOwned(ctx, userID, docID)
	if err != nil {
		return nil, err
	}
	if err := s.validateHighlight(doc, in.Text, in.Color, in.Page, in.Start, in.End); err != nil {
		return nil, err
	}

	color := in.Color
	if color == "" {
		color = "yellow"
	}
	h := models.Highlight{
		ID:        uuid.NewString(),
		Text:      in.Text,
		Color:     color,
		Comment:   in.Comment,
		Page:      in.Page,
		Start:     in.Start,
		End:       in.End,
		CreatedAt: time.Now().UTC(),
	}

	doc.Highlights = append(doc.Highlights, h)
	if err := s.docs.SaveHighlights(ctx, docID, doc.Highlights); err != nil {
		return nil, err
	}
	return &h, nil
}

// UpdateHighlight applies a partial update to one highlight.
func (s *PDFService) UpdateHighlight(ctx context.Context, userID, docID, highlightID string, upd HighlightUpdate) (*models.Highlight, error) {
	doc, err := s.getOwned(ctx, userID, docID)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i, h := range doc.Highlights {
		if h.ID == highlightID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("highlight %s: %w", highlightID, ErrNotFound)
	}

	h := doc.Highlights[idx]
	if upd.Text != nil {
		h.Text = *upd.Text
	}
	if upd.Color != nil {
		h.Color = *upd.Color
	}
	if upd.Comment != nil {
		h.Comment = *upd.Comment
	}
	if upd.Page != nil {
		h.Page = *upd.Page
	}
	if upd.Start != nil {
		h.Start = *upd.Start
	}
	if upd.End != nil {
		h.End = *upd.End
	}
	if err := s.validateHighlight(doc, h.Text, h.Color, h.Page, h.Start, h.End); err != nil {
		return nil, err
	}

	doc.Highlights[idx] = h
	if err := s.docs.SaveHighlights(ctx, docID, doc.Highlights); err != nil {
		return nil, err
	}
	return &h, nil
}

// DeleteHighlight removes one highlight from the document.
func (s *PDFService) DeleteHighlight(ctx context.Context, userID, docID, highlightID string) error {
	doc, err := s.getOwned(ctx, userID, docID)
	if err != nil {
		return err
	}

	kept := doc.Highlights[:0]
	found := false
	for _, h := range doc.Highlights {
		if h.ID == highlightID {
			found = true
			continue
		}
		kept = append(kept, h)
	}
	if !found {
		return fmt.Errorf("highlight %s: %w", highlightID, ErrNotFound)
	}
	return s.docs.SaveHighlights(ctx, docID, kept)
}

// GenerateAnnotated renders the document's highlights into a new PDF, stores
// it alongside the source, records it on the document and returns a signed
// download URL. Each call overwrites the previous annotated version pointer.
func (s *PDFService) GenerateAnnotated(ctx context.Context, userID, docID string) (*AnnotatedResult, error) {
	doc, err := s.getOwned(ctx, userID, docID)
	if err != nil {
		return nil, err
	}
	if doc.StoragePath == "" {
		return nil, ErrStoragePathMissing
	}

	source, err := s.blobs.Download(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("fetching source document: %w", err)
	}

	rendered, err := s.renderer.Render(ctx, source, doc)
	if err != nil {
		return nil, err
	}

	objectName := fmt.Sprintf("annotated/%s/%d-annotated.pdf", docID, time.Now().UnixMilli())
	if err := s.blobs.Upload(ctx, objectName, "application/pdf", rendered); err != nil {
		return nil, fmt.Errorf("storing annotated document: %w", err)
	}

	version := models.AnnotatedVersion{
		StoragePath: objectName,
		GeneratedAt: time.Now().UTC(),
	}
	if err := s.docs.SetAnnotatedVersion(ctx, docID, version); err != nil {
		return nil, err
	}

	url, err := s.blobs.SignedURL(objectName)
	if err != nil {
		s.log.Warn("signing annotated URL failed", "documentId", docID, "error", err)
	}

	doc.AnnotatedVersion = &version
	s.log.Info("annotated version generated", "documentId", docID, "object", objectName)
	return &AnnotatedResult{URL: url, AnnotatedVersion: version, Document: doc}, nil
}

// ExportFresh renders the document's current highlights and returns the PDF
// bytes directly, without persisting anything.
func (s *PDFService) ExportFresh(ctx context.Context, userID, docID string) ([]byte, string, error) {
	doc, err := s.getOwned(ctx, userID, docID)
	if err != nil {
		return nil, "", err
	}
	if doc.StoragePath == "" {
		return nil, "", ErrStoragePathMissing
	}

	source, err := s.blobs.Download(ctx, doc.StoragePath)
	if err != nil {
		return nil, "", fmt.Errorf("fetching source document: %w", err)
	}

	rendered, err := s.renderer.Render(ctx, source, doc)
	if err != nil {
		return nil, "", err
	}
	return rendered, exportFilename(doc.Title), nil
}

// ExportAnnotated returns the bytes of the previously generated annotated
// version. Generation must have happened first.
func (s *PDFService) ExportAnnotated(ctx context.Context, userID, docID string) ([]byte, string, error) {
	doc, err := s.getOwned(ctx, userID, docID)
	if err != nil {
		return nil, "", err
	}
	if doc.AnnotatedVersion == nil || doc.AnnotatedVersion.StoragePath == "" {
		return nil, "", ErrNoAnnotatedVersion
	}

	b, err := s.blobs.Download(ctx, doc.AnnotatedVersion.StoragePath)
	if err != nil {
		return nil, "", fmt.Errorf("fetching annotated document: %w", err)
	}
	return b, exportFilename(doc.Title), nil
}

func exportFilename(title string) string {
	title = strings.TrimSuffix(title, ".pdf")
	if title == "" {
		title = "document"
	}
	return title + "_annotated.pdf"
}
