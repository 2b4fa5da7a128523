package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/docdex/internal/db"
	"github.com/kailas-cloud/docdex/internal/domain"
	"github.com/kailas-cloud/docdex/internal/domain/batch"
	domdoc "github.com/kailas-cloud/docdex/internal/domain/document"
	"github.com/kailas-cloud/docdex/internal/domain/document/patch"
)

// store is the consumer interface for documents (ISP).
type store interface {
	Index(ctx context.Context, collection, id string, body map[string]any) (string, error)
	Get(ctx context.Context, collection, id string) (map[string]any, error)
	Merge(ctx context.Context, collection, id string, partial map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	Bulk(ctx context.Context, collection string, items []db.BulkItem) ([]batch.Result, error)
}

// Repo implements usecase/document.Repository and usecase/bulk.Writer.
type Repo struct {
	store store
}

// New creates a document repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Put writes a document and returns it with its assigned id.
func (r *Repo) Put(ctx context.Context, coll string, doc domdoc.Document) (domdoc.Document, error) {
	id, err := r.store.Index(ctx, coll, doc.ID(), doc.Body())
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("index %s/%s: %w", coll, doc.ID(), mapErr(err))
	}
	return doc.WithID(id), nil
}

// Get returns a document by id.
func (r *Repo) Get(ctx context.Context, coll, id string) (domdoc.Document, error) {
	body, err := r.store.Get(ctx, coll, id)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("get %s/%s: %w", coll, id, mapErr(err))
	}
	return domdoc.Reconstruct(id, body), nil
}

// Merge applies a shallow partial update.
func (r *Repo) Merge(ctx context.Context, coll, id string, p patch.Patch) error {
	if err := r.store.Merge(ctx, coll, id, p.Fields()); err != nil {
		return fmt.Errorf("merge %s/%s: %w", coll, id, mapErr(err))
	}
	return nil
}

// Delete removes a document. Returns domain.ErrDocumentNotFound if absent.
func (r *Repo) Delete(ctx context.Context, coll, id string) error {
	if err := r.store.Delete(ctx, coll, id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", coll, id, mapErr(err))
	}
	return nil
}

// Bulk writes docs in one backend call and returns per-item outcomes.
func (r *Repo) Bulk(ctx context.Context, coll string, docs []domdoc.Document) ([]batch.Result, error) {
	items := make([]db.BulkItem, len(docs))
	for i, d := range docs {
		items[i] = db.BulkItem{ID: d.ID(), Body: d.Body()}
	}
	results, err := r.store.Bulk(ctx, coll, items)
	if err != nil {
		return nil, fmt.Errorf("bulk %s (%d items): %w", coll, len(docs), mapErr(err))
	}
	return results, nil
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return domain.ErrDocumentNotFound
	case errors.Is(err, db.ErrCollectionNotFound):
		return domain.ErrCollectionNotFound
	}
	return err
}
