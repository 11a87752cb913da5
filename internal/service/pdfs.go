// Package service implements the application's use cases on top of the blob
// store, the document store, the summarizer and the annotation pipeline.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/marginalia-app/marginalia/internal/annotate"
	"github.com/marginalia-app/marginalia/internal/extract"
	"github.com/marginalia-app/marginalia/internal/models"
	"github.com/marginalia-app/marginalia/internal/store"
)

// Sentinel errors the HTTP layer maps to status codes.
var (
	ErrNotFound           = errors.New("document not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrStoragePathMissing = errors.New("document has no storage path")
	ErrNoAnnotatedVersion = errors.New("no annotated version has been generated")
)

const (
	maxUploadSize = 10 << 20 // matches the upload limit enforced by the HTTP layer
	// signedURLWorkers caps concurrent URL signing when listing a library.
	signedURLWorkers = 10
)

// BlobStore is the object storage surface the service needs.
type BlobStore interface {
	Upload(ctx context.Context, objectName, contentType string, content []byte) error
	Download(ctx context.Context, objectName string) ([]byte, error)
	Delete(ctx context.Context, objectName string) error
	SignedURL(objectName string) (string, error)
}

// DocumentStore is the metadata persistence surface the service needs.
type DocumentStore interface {
	Create(ctx context.Context, doc *models.Document) error
	Get(ctx context.Context, id string) (*models.Document, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Document, error)
	Delete(ctx context.Context, id string) error
	SaveHighlights(ctx context.Context, id string, hs []models.Highlight) error
	SetAnnotatedVersion(ctx context.Context, id string, v models.AnnotatedVersion) error
}

// Summarizer produces a short summary for extracted document text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Renderer burns a document's highlights into its source PDF.
type Renderer interface {
	Render(ctx context.Context, source []byte, doc *models.Document) ([]byte, error)
}

// PDFService ties the collaborators together. All operations are scoped to
// the calling user; a document owned by someone else behaves as not found.
type PDFService struct {
	blobs      BlobStore
	docs       DocumentStore
	summarizer Summarizer
	renderer   Renderer
	log        *slog.Logger
}

func NewPDFService(blobs BlobStore, docs DocumentStore, summarizer Summarizer, renderer Renderer, log *slog.Logger) *PDFService {
	return &PDFService{
		blobs:      blobs,
		docs:       docs,
		summarizer: summarizer,
		renderer:   renderer,
		log:        log,
	}
}

// DocumentView is a document plus a short-lived download URL for its source
// PDF. URL is empty when signing failed; the metadata is still usable.
type DocumentView struct {
	*models.Document
	URL string `json:"url,omitempty"`
}

// Upload stores a new PDF: the bytes go to blob storage, the text is
// extracted and summarized, and a document record is created. Summarization
// is best-effort; a summarizer failure never fails the upload.
func (s *PDFService) Upload(ctx context.Context, userID, filename string, content []byte) (*models.Document, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidInput)
	}
	if len(content) > maxUploadSize {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidInput, maxUploadSize)
	}

	pageCount, err := annotate.PageCount(content)
	if err != nil {
		return nil, fmt.Errorf("%w: not a readable PDF", ErrInvalidInput)
	}

	objectName := fmt.Sprintf("pdfs/%s/%d-%s", userID, time.Now().UnixMilli(), path.Base(filename))
	if err := s.blobs.Upload(ctx, objectName, "application/pdf", content); err != nil {
		return nil, fmt.Errorf("storing uploaded file: %w", err)
	}

	var textContent string
	if res, err := extract.Text(content); err != nil {
		s.log.Warn("text extraction failed, storing document without text", "object", objectName, "error", err)
	} else {
		textContent = res.Text
	}

	var summary string
	if textContent != "" {
		summary, err = s.summarizer.Summarize(ctx, textContent)
		if err != nil {
			s.log.Warn("summarization failed, storing document without summary", "object", objectName, "error", err)
			summary = ""
		}
	}

	doc := &models.Document{
		UserID:      userID,
		Title:       path.Base(filename),
		Size:        int64(len(content)),
		PageCount:   pageCount,
		TextContent: textContent,
		Summary:     summary,
		StoragePath: objectName,
		UploadDate:  time.Now().UTC(),
		Highlights:  []models.Highlight{},
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}

	s.log.Info("document uploaded", "documentId", doc.ID, "pages", pageCount, "size", doc.Size)
	return doc, nil
}

// List returns the user's documents with signed download URLs. URL signing
// runs concurrently; a signing failure leaves that document's URL empty.
func (s *PDFService) List(ctx context.Context, userID string) ([]DocumentView, error) {
	docs, err := s.docs.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]DocumentView, len(docs))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(signedURLWorkers)
	for i, doc := range docs {
		views[i] = DocumentView{Document: doc}
		if doc.StoragePath == "" {
			continue
		}
		g.Go(func() error {
			url, err := s.blobs.SignedURL(doc.StoragePath)
			if err != nil {
				s.log.Warn("signing download URL failed", "documentId", doc.ID, "error", err)
				return nil
			}
			views[i].URL = url
			return nil
		})
	}
	_ = g.Wait()
	return views, nil
}

// Get returns one of the user's documents with a signed download URL.
func (s *PDFService) Get(ctx context.Context, userID, id string) (*DocumentView, error) {
	doc, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	view := &DocumentView{Document: doc}
	if doc.StoragePath != "" {
		if url, err := s.blobs.SignedURL(doc.StoragePath); err == nil {
			view.URL = url
		} else {
			s.log.Warn("signing download URL failed", "documentId", doc.ID, "error", err)
		}
	}
	return view, nil
}

// Delete removes the document record and its stored blobs, including any
// annotated rendering. Blob deletion failures are logged, not fatal: the
// record going away is what the user observes.
func (s *PDFService) Delete(ctx context.Context, userID, id string) error {
	doc, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return err
	}

	if doc.StoragePath != "" {
		if err := s.blobs.Delete(ctx, doc.StoragePath); err != nil {
			s.log.Warn("deleting source blob failed", "documentId", id, "error", err)
		}
	}
	if doc.AnnotatedVersion != nil && doc.AnnotatedVersion.StoragePath != "" {
		if err := s.blobs.Delete(ctx, doc.AnnotatedVersion.StoragePath); err != nil {
			s.log.Warn("deleting annotated blob failed", "documentId", id, "error", err)
		}
	}
	return s.docs.Delete(ctx, id)
}

// getOwned fetches a document and enforces ownership. Foreign documents are
// reported as not found so IDs cannot be probed across users.
func (s *PDFService) getOwned(ctx context.Context, userID, id string) (*models.Document, error) {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if doc.UserID != userID {
		return nil, ErrNotFound
	}
	return doc, nil
}
