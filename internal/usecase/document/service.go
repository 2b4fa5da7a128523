// Package document implements single-document CRUD over tenant collections.
package document

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/domain"
	domdoc "github.com/kailas-cloud/docdex/internal/domain/document"
	"github.com/kailas-cloud/docdex/internal/domain/document/patch"
	"github.com/kailas-cloud/docdex/internal/domain/mapping"
	"github.com/kailas-cloud/docdex/internal/logger"
)

// Service handles document CRUD.
type Service struct {
	repo  Repository
	colls CollectionResolver
}

// New creates a document service.
func New(repo Repository, colls CollectionResolver) *Service {
	return &Service{repo: repo, colls: colls}
}

// Create stores doc in the tenant's collection, creating the collection with
// dynamic mapping if it does not exist. An empty id is assigned by the backend.
func (s *Service) Create(ctx context.Context, tenant, label string, doc domdoc.Document) (domdoc.Document, error) {
	col, err := s.colls.Resolve(tenant, label)
	if err != nil {
		return domdoc.Document{}, err
	}

	if res := s.colls.Ensure(ctx, col, mapping.Empty(), false); !res.OK() {
		logger.FromContext(ctx).Warn("ensure collection before write failed",
			zap.String("collection", col.Name()), zap.Error(res.Err))
	}

	stored, err := s.repo.Put(ctx, col.Name(), doc)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("create document: %w", err)
	}
	return stored, nil
}

// Get retrieves a document by id.
func (s *Service) Get(ctx context.Context, tenant, label, id string) (domdoc.Document, error) {
	col, err := s.colls.Resolve(tenant, label)
	if err != nil {
		return domdoc.Document{}, err
	}
	doc, err := s.repo.Get(ctx, col.Name(), id)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// Update merges p into the stored document and returns the result.
func (s *Service) Update(ctx context.Context, tenant, label, id string, p patch.Patch) (domdoc.Document, error) {
	col, err := s.colls.Resolve(tenant, label)
	if err != nil {
		return domdoc.Document{}, err
	}

	if err := s.repo.Merge(ctx, col.Name(), id, p); err != nil {
		return domdoc.Document{}, fmt.Errorf("update document: %w", err)
	}

	updated, err := s.repo.Get(ctx, col.Name(), id)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("get updated document: %w", err)
	}
	return updated, nil
}

// Delete removes a document. Deleting a missing document, or one in a
// missing collection, succeeds.
func (s *Service) Delete(ctx context.Context, tenant, label, id string) error {
	col, err := s.colls.Resolve(tenant, label)
	if err != nil {
		return err
	}
	err = s.repo.Delete(ctx, col.Name(), id)
	switch {
	case err == nil,
		errors.Is(err, domain.ErrDocumentNotFound),
		errors.Is(err, domain.ErrCollectionNotFound):
		return nil
	}
	return fmt.Errorf("delete document: %w", err)
}

// Count returns the number of documents in a collection.
func (s *Service) Count(ctx context.Context, tenant, label string) (int, error) {
	col, err := s.colls.Resolve(tenant, label)
	if err != nil {
		return 0, err
	}
	n, err := s.colls.Count(ctx, col.Name())
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}
