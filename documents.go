package docdex

import (
	"context"
	"fmt"

	domdoc "github.com/kailas-cloud/docdex/internal/domain/document"
	"github.com/kailas-cloud/docdex/internal/domain/document/patch"
)

// DocumentService manages documents in one tenant collection.
type DocumentService struct {
	client     *Client
	tenant     string
	collection string
}

// Put stores body under id, replacing any previous version. An empty id is
// generated. The collection is created on first write.
func (s *DocumentService) Put(ctx context.Context, id string, body map[string]any) (Document, error) {
	doc, err := domdoc.New(id, body)
	if err != nil {
		return Document{}, fmt.Errorf("put: %w", err)
	}
	stored, err := s.client.docSvc.Create(s.client.withLogger(ctx), s.tenant, s.collection, doc)
	if err != nil {
		return Document{}, fmt.Errorf("put: %w", err)
	}
	return fromDocument(stored), nil
}

// Get returns a document by id.
func (s *DocumentService) Get(ctx context.Context, id string) (Document, error) {
	doc, err := s.client.docSvc.Get(s.client.withLogger(ctx), s.tenant, s.collection, id)
	if err != nil {
		return Document{}, fmt.Errorf("get: %w", err)
	}
	return fromDocument(doc), nil
}

// Patch shallow-merges fields into the stored document and returns the result.
func (s *DocumentService) Patch(ctx context.Context, id string, fields map[string]any) (Document, error) {
	p, err := patch.New(fields)
	if err != nil {
		return Document{}, fmt.Errorf("patch: %w", err)
	}
	doc, err := s.client.docSvc.Update(s.client.withLogger(ctx), s.tenant, s.collection, id, p)
	if err != nil {
		return Document{}, fmt.Errorf("patch: %w", err)
	}
	return fromDocument(doc), nil
}

// Delete removes a document. Deleting a missing document is not an error.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	if err := s.client.docSvc.Delete(s.client.withLogger(ctx), s.tenant, s.collection, id); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

// Count returns the number of documents in the collection.
func (s *DocumentService) Count(ctx context.Context) (int, error) {
	n, err := s.client.docSvc.Count(s.client.withLogger(ctx), s.tenant, s.collection)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

func fromDocument(d domdoc.Document) Document {
	return Document{ID: d.ID(), Body: d.Body()}
}
