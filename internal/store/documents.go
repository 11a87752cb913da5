// Package store persists document metadata and highlights in Firestore.
package store

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/marginalia-app/marginalia/internal/models"
)

// ErrNotFound is returned when a document ID has no record.
var ErrNotFound = errors.New("document not found")

// Documents is the Firestore-backed document store. One document record per
// Firestore doc; highlights live embedded in the record.
type Documents struct {
	client     *firestore.Client
	collection string
}

func NewDocuments(client *firestore.Client, collection string) *Documents {
	return &Documents{client: client, collection: collection}
}

func (s *Documents) col() *firestore.CollectionRef {
	return s.client.Collection(s.collection)
}

// Create stores doc under a fresh Firestore ID and fills doc.ID.
func (s *Documents) Create(ctx context.Context, doc *models.Document) error {
	ref := s.col().NewDoc()
	if _, err := ref.Set(ctx, doc); err != nil {
		return fmt.Errorf("creating document record: %w", err)
	}
	doc.ID = ref.ID
	return nil
}

// Get fetches one document by ID.
func (s *Documents) Get(ctx context.Context, id string) (*models.Document, error) {
	snap, err := s.col().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("fetching document %s: %w", id, err)
	}

	var doc models.Document
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decoding document %s: %w", id, err)
	}
	doc.ID = snap.Ref.ID
	return &doc, nil
}

// ListByUser returns all documents owned by userID, newest first.
func (s *Documents) ListByUser(ctx context.Context, userID string) ([]*models.Document, error) {
	iter := s.col().
		Where("userId", "==", userID).
		OrderBy("uploadDate", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var docs []*models.Document
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing documents for user: %w", err)
		}
		var doc models.Document
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decoding document %s: %w", snap.Ref.ID, err)
		}
		doc.ID = snap.Ref.ID
		docs = append(docs, &doc)
	}
	return docs, nil
}

// Delete removes the document record. Deleting a missing record is not an
// error; the caller has already established ownership via Get.
func (s *Documents) Delete(ctx context.Context, id string) error {
	if _, err := s.col().Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	return nil
}

// SaveHighlights replaces the document's highlight list.
func (s *Documents) SaveHighlights(ctx context.Context, id string, hs []models.Highlight) error {
	if hs == nil {
		hs = []models.Highlight{}
	}
	_, err := s.col().Doc(id).Update(ctx, []firestore.Update{
		{Path: "highlights", Value: hs},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("saving highlights for %s: %w", id, err)
	}
	return nil
}

// SetAnnotatedVersion records where the latest annotated rendering lives.
func (s *Documents) SetAnnotatedVersion(ctx context.Context, id string, v models.AnnotatedVersion) error {
	_, err := s.col().Doc(id).Update(ctx, []firestore.Update{
		{Path: "annotatedVersion", Value: v},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("recording annotated version for %s: %w", id, err)
	}
	return nil
}
