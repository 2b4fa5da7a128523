package collection

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/docdex/internal/db"
	"github.com/kailas-cloud/docdex/internal/domain"
	"github.com/kailas-cloud/docdex/internal/domain/mapping"
)

// store is the consumer interface for collections (ISP).
type store interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, name string, m mapping.Mapping) error
	DropCollection(ctx context.Context, name string) error
	Count(ctx context.Context, name string) (int, error)
}

// Repo implements usecase/collection.Repository over a backend store.
type Repo struct {
	store store
}

// New creates a collection repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Exists reports whether the physical collection exists.
func (r *Repo) Exists(ctx context.Context, name string) (bool, error) {
	ok, err := r.store.CollectionExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", name, err)
	}
	return ok, nil
}

// Create creates the physical collection with a fixed mapping.
// Returns domain.ErrAlreadyExists if the name is taken.
func (r *Repo) Create(ctx context.Context, name string, m mapping.Mapping) error {
	if err := r.store.CreateCollection(ctx, name, m); err != nil {
		if errors.Is(err, db.ErrCollectionExists) {
			return fmt.Errorf("create %s: %w", name, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("create %s: %w", name, err)
	}
	return nil
}

// Drop removes the collection and every document in it.
// Returns domain.ErrCollectionNotFound if absent.
func (r *Repo) Drop(ctx context.Context, name string) error {
	if err := r.store.DropCollection(ctx, name); err != nil {
		if errors.Is(err, db.ErrCollectionNotFound) {
			return fmt.Errorf("drop %s: %w", name, domain.ErrCollectionNotFound)
		}
		return fmt.Errorf("drop %s: %w", name, err)
	}
	return nil
}

// Count returns the number of documents in the collection.
func (r *Repo) Count(ctx context.Context, name string) (int, error) {
	n, err := r.store.Count(ctx, name)
	if err != nil {
		if errors.Is(err, db.ErrCollectionNotFound) {
			return 0, fmt.Errorf("count %s: %w", name, domain.ErrCollectionNotFound)
		}
		return 0, fmt.Errorf("count %s: %w", name, err)
	}
	return n, nil
}
