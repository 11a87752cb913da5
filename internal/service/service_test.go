package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marginalia-app/marginalia/internal/annotate"
	"github.com/marginalia-app/marginalia/internal/models"
	"github.com/marginalia-app/marginalia/internal/pdftest"
	"github.com/marginalia-app/marginalia/internal/store"
)

type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	signErr error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: map[string][]byte{}}
}

func (f *fakeBlobs) Upload(_ context.Context, name, _ string, content []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[name] = bytes.Clone(content)
	return nil
}

func (f *fakeBlobs) Download(_ context.Context, name string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[name]
	if !ok {
		return nil, fmt.Errorf("object %s does not exist", name)
	}
	return bytes.Clone(b), nil
}

func (f *fakeBlobs) Delete(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, name)
	return nil
}

func (f *fakeBlobs) SignedURL(name string) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	return "https://signed.example.com/" + name, nil
}

func (f *fakeBlobs) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for k := range f.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type fakeDocs struct {
	mu     sync.Mutex
	docs   map[string]models.Document
	nextID int
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{docs: map[string]models.Document{}}
}

func (f *fakeDocs) Create(_ context.Context, doc *models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	doc.ID = "doc-" + strconv.Itoa(f.nextID)
	f.docs[doc.ID] = *doc
	return nil
}

func (f *fakeDocs) Get(_ context.Context, id string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	doc.Highlights = append([]models.Highlight(nil), doc.Highlights...)
	return &doc, nil
}

func (f *fakeDocs) ListByUser(_ context.Context, userID string) ([]*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Document
	for _, doc := range f.docs {
		if doc.UserID == userID {
			d := doc
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeDocs) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	return nil
}

func (f *fakeDocs) SaveHighlights(_ context.Context, id string, hs []models.Highlight) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return store.ErrNotFound
	}
	doc.Highlights = hs
	f.docs[id] = doc
	return nil
}

func (f *fakeDocs) SetAnnotatedVersion(_ context.Context, id string, v models.AnnotatedVersion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return store.ErrNotFound
	}
	doc.AnnotatedVersion = &v
	f.docs[id] = doc
	return nil
}

type fakeSummarizer struct {
	summary string
	err     error
}

func (f *fakeSummarizer) Summarize(context.Context, string) (string, error) {
	return f.summary, f.err
}

func newTestService(t *testing.T) (*PDFService, *fakeBlobs, *fakeDocs) {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	blobs := newFakeBlobs()
	docs := newFakeDocs()
	svc := NewPDFService(blobs, docs, &fakeSummarizer{summary: "a summary"}, annotate.NewPipeline(log), log)
	return svc, blobs, docs
}

func uploadTestDoc(t *testing.T, svc *PDFService, userID string, pages int) *models.Document {
	t.Helper()
	doc, err := svc.Upload(context.Background(), userID, "report.pdf", pdftest.MinimalPDF(pages))
	require.NoError(t, err)
	return doc
}

func TestUpload(t *testing.T) {
	svc, blobs, _ := newTestService(t)

	doc := uploadTestDoc(t, svc, "user-1", 2)
	assert.Equal(t, "user-1", doc.UserID)
	assert.Equal(t, "report.pdf", doc.Title)
	assert.Equal(t, 2, doc.PageCount)
	assert.Equal(t, "a summary", doc.Summary)
	assert.Contains(t, doc.TextContent, "Page 1")
	assert.NotEmpty(t, doc.ID)
	assert.False(t, doc.UploadDate.IsZero())

	require.Len(t, blobs.names(), 1)
	assert.Contains(t, doc.StoragePath, "pdfs/user-1/")
	_, err := blobs.Download(context.Background(), doc.StoragePath)
	require.NoError(t, err)
}

func TestUploadRejectsInvalidInput(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Upload(context.Background(), "user-1", "x.pdf", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Upload(context.Background(), "user-1", "x.pdf", []byte("not a pdf"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUploadSurvivesSummarizerFailure(t *testing.T) {
	log := slog.New(slog.DiscardHandler)
	svc := NewPDFService(newFakeBlobs(), newFakeDocs(),
		&fakeSummarizer{err: errors.New("quota exceeded")}, annotate.NewPipeline(log), log)

	doc, err := svc.Upload(context.Background(), "user-1", "x.pdf", pdftest.MinimalPDF(1))
	require.NoError(t, err)
	assert.Empty(t, doc.Summary)
}

func TestAddHighlight(t *testing.T) {
	svc, _, _ := newTestService(t)
	doc := uploadTestDoc(t, svc, "user-1", 2)

	h, err := svc.AddHighlight(context.Background(), "user-1", doc.ID, HighlightInput{
		Text: "key passage", Page: 1, Start: 10, End: 60,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, h.ID)
	assert.Equal(t, "yellow", h.Color) // default when omitted
	assert.False(t, h.CreatedAt.IsZero())

	got, err := svc.Get(context.Background(), "user-1", doc.ID)
	require.NoError(t, err)
	require.Len(t, got.Highlights, 1)
	assert.Equal(t, h.ID, got.Highlights[0].ID)
}

func TestAddHighlightValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	doc := uploadTestDoc(t, svc, "user-1", 2)

	cases := []struct {
		name string
		in   HighlightInput
	}{
		{"missing text", HighlightInput{Page: 1, Start: 0, End: 10}},
		{"page zero", HighlightInput{Text: "x", Page: 0, Start: 0, End: 10}},
		{"page beyond end", HighlightInput{Text: "x", Page: 3, Start: 0, End: 10}},
		{"negative offset", HighlightInput{Text: "x", Page: 1, Start: -1, End: 10}},
		{"unknown color", HighlightInput{Text: "x", Color: "mauve", Page: 1, Start: 0, End: 10}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AddHighlight(context.Background(), "user-1", doc.ID, tc.in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestUpdateHighlightPartial(t *testing.T) {
	svc, _, _ := newTestService(t)
	doc := uploadTestDoc(t, svc, "user-1", 2)

	h, err := svc.AddHighlight(context.Background(), "user-1", doc.ID, HighlightInput{
		Text: "original", Color: "green", Comment: "old", Page: 1, Start: 5, End: 25,
	})
	require.NoError(t, err)

	newColor := "red"
	updated, err := svc.UpdateHighlight(context.Background(), "user-1", doc.ID, h.ID, HighlightUpdate{
		Color: &newColor,
	})
	require.NoError(t, err)

	assert.Equal(t, "red", updated.Color)
	assert.Equal(t, "original", updated.Text)
	assert.Equal(t, "old", updated.Comment)
	assert.Equal(t, h.CreatedAt, updated.CreatedAt)
}

func TestUpdateHighlightNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	doc := uploadTestDoc(t, svc, "user-1", 1)

	_, err := svc.UpdateHighlight(context.Background(), "user-1", doc.ID, "nope", HighlightUpdate{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteHighlight(t *testing.T) {
	svc, _, _ := newTestService(t)
	doc := uploadTestDoc(t, svc, "user-1", 1)

	h, err := svc.AddHighlight(context.Background(), "user-1", doc.ID, HighlightInput{
		Text: "x", Page: 1, Start: 0, End: 10,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteHighlight(context.Background(), "user-1", doc.ID, h.ID))

	got, err := svc.Get(context.Background(), "user-1", doc.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Highlights)

	err = svc.DeleteHighlight(context.Background(), "user-1", doc.ID, h.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestForeignDocumentsBehaveAsNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	doc := uploadTestDoc(t, svc, "user-1", 1)

	_, err := svc.Get(context.Background(), "user-2", doc.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = svc.Delete(context.Background(), "user-2", doc.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.AddHighlight(context.Background(), "user-2", doc.ID, HighlightInput{
		Text: "x", Page: 1, Start: 0, End: 1,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGenerateThenExportAnnotated(t *testing.T) {
	svc, _, _ := newTestService(t)
	doc := uploadTestDoc(t, svc, "user-1", 2)

	_, err := svc.AddHighlight(context.Background(), "user-1", doc.ID, HighlightInput{
		Text: "finding", Comment: "discuss", Page: 1, Start: 10, End: 90,
	})
	require.NoError(t, err)

	res, err := svc.GenerateAnnotated(context.Background(), "user-1", doc.ID)
	require.NoError(t, err)
	assert.Contains(t, res.AnnotatedVersion.StoragePath, "annotated/"+doc.ID+"/")
	assert.NotEmpty(t, res.URL)
	require.NotNil(t, res.Document.AnnotatedVersion)

	b, filename, err := svc.ExportAnnotated(context.Background(), "user-1", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "report_annotated.pdf", filename)
	assert.True(t, bytes.HasPrefix(b, []byte("%PDF")))

	// The export streams exactly what generation persisted.
	fresh, _, err := svc.ExportFresh(context.Background(), "user-1", doc.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(fresh, []byte("%PDF")))
}

func TestExportAnnotatedBeforeGenerate(t *testing.T) {
	svc, _, _ := newTestService(t)
	doc := uploadTestDoc(t, svc, "user-1", 1)

	_, _, err := svc.ExportAnnotated(context.Background(), "user-1", doc.ID)
	assert.ErrorIs(t, err, ErrNoAnnotatedVersion)
}

func TestDeleteCascadesBlobs(t *testing.T) {
	svc, blobs, _ := newTestService(t)
	doc := uploadTestDoc(t, svc, "user-1", 1)

	_, err := svc.GenerateAnnotated(context.Background(), "user-1", doc.ID)
	require.NoError(t, err)
	require.Len(t, blobs.names(), 2)

	require.NoError(t, svc.Delete(context.Background(), "user-1", doc.ID))
	assert.Empty(t, blobs.names())

	_, err = svc.Get(context.Background(), "user-1", doc.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListReturnsSignedURLs(t *testing.T) {
	svc, _, _ := newTestService(t)
	uploadTestDoc(t, svc, "user-1", 1)
	uploadTestDoc(t, svc, "user-1", 1)
	uploadTestDoc(t, svc, "user-2", 1)

	views, err := svc.List(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, views, 2)
	for _, v := range views {
		assert.Contains(t, v.URL, "https://signed.example.com/")
	}
}

func TestListToleratesSigningFailure(t *testing.T) {
	svc, blobs, _ := newTestService(t)
	uploadTestDoc(t, svc, "user-1", 1)

	blobs.signErr = errors.New("signer unavailable")
	views, err := svc.List(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Empty(t, views[0].URL)
}
