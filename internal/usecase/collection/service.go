// Package collection resolves tenant collection labels to physical
// collections and ensures they exist.
package collection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/domain"
	domcol "github.com/kailas-cloud/docdex/internal/domain/collection"
	"github.com/kailas-cloud/docdex/internal/domain/mapping"
	"github.com/kailas-cloud/docdex/internal/logger"
)

// DefaultExistsTTL is how long an existence check is cached.
const DefaultExistsTTL = 5 * time.Second

// EnsureResult reports what Ensure did. Err carries a swallowed backend
// failure; the collection may then be missing.
type EnsureResult struct {
	Created   bool
	Recreated bool
	Err       error
}

// OK reports whether the collection is known to exist.
func (r EnsureResult) OK() bool { return r.Err == nil }

// Resolver maps (tenant, label) to physical collections.
type Resolver struct {
	repo    Repository
	catalog Catalog
	exists  *cache.Cache
}

// New creates a Resolver. catalog may be nil. Non-positive ttl falls back to DefaultExistsTTL.
func New(repo Repository, catalog Catalog, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = DefaultExistsTTL
	}
	return &Resolver{
		repo:    repo,
		catalog: catalog,
		exists:  cache.New(ttl, 2*ttl),
	}
}

// Resolve validates the tenant and label and derives the physical collection.
func (r *Resolver) Resolve(tenant, label string) (domcol.Collection, error) {
	col, err := domcol.New(tenant, label)
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("resolve collection: %w", err)
	}
	return col, nil
}

// Exists reports whether the physical collection exists. Positive and
// negative answers are cached for the resolver TTL.
func (r *Resolver) Exists(ctx context.Context, name string) (bool, error) {
	if v, ok := r.exists.Get(name); ok {
		return v.(bool), nil
	}
	ok, err := r.repo.Exists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("check collection: %w", err)
	}
	r.exists.SetDefault(name, ok)
	return ok, nil
}

// Ensure makes sure col exists with mapping m. An absent collection is
// created; a present one is dropped and created again when recreate is set.
// Backend failures are reported in the result, never returned.
func (r *Resolver) Ensure(ctx context.Context, col domcol.Collection, m mapping.Mapping, recreate bool) EnsureResult {
	name := col.Name()
	log := logger.FromContext(ctx).With(zap.String("collection", name))
	defer r.exists.Delete(name)

	ok, err := r.repo.Exists(ctx, name)
	if err != nil {
		log.Warn("ensure: exists check failed", zap.Error(err))
		return EnsureResult{Err: fmt.Errorf("check collection %s: %w", name, err)}
	}

	var res EnsureResult
	if ok {
		if !recreate {
			return res
		}
		if err := r.repo.Drop(ctx, name); err != nil && !errors.Is(err, domain.ErrCollectionNotFound) {
			log.Warn("ensure: drop failed", zap.Error(err))
			return EnsureResult{Err: fmt.Errorf("drop collection %s: %w", name, err)}
		}
		res.Recreated = true
	}

	if err := r.repo.Create(ctx, name, m); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// lost a create race; the collection is there
			return res
		}
		log.Warn("ensure: create failed", zap.Error(err))
		res.Err = fmt.Errorf("create collection %s: %w", name, err)
		return res
	}
	res.Created = true
	log.Info("collection created", zap.Bool("recreated", res.Recreated), zap.Int("fields", len(m.Properties())))
	return res
}

// Drop removes a tenant collection and its catalog record.
// Returns domain.ErrCollectionNotFound if absent.
func (r *Resolver) Drop(ctx context.Context, col domcol.Collection) error {
	defer r.exists.Delete(col.Name())
	if err := r.repo.Drop(ctx, col.Name()); err != nil {
		return fmt.Errorf("drop collection: %w", err)
	}
	if r.catalog != nil {
		if err := r.catalog.Delete(ctx, col.Tenant(), col.Label()); err != nil && !errors.Is(err, domain.ErrNotFound) {
			logger.FromContext(ctx).Warn("drop catalog record", zap.String("collection", col.Name()), zap.Error(err))
		}
	}
	return nil
}

// Count returns the number of documents in a collection.
func (r *Resolver) Count(ctx context.Context, name string) (int, error) {
	n, err := r.repo.Count(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("count collection: %w", err)
	}
	return n, nil
}

// List returns a tenant's catalog records, refreshed with live document counts.
// A collection whose count fails keeps its recorded count.
func (r *Resolver) List(ctx context.Context, tenant string) ([]domcol.Collection, error) {
	if err := domcol.ValidateTenant(tenant); err != nil {
		return nil, err
	}
	if r.catalog == nil {
		return []domcol.Collection{}, nil
	}
	cols, err := r.catalog.List(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	for i, c := range cols {
		if n, err := r.repo.Count(ctx, c.Name()); err == nil {
			cols[i] = c.WithDocCount(n)
		}
	}
	return cols, nil
}
