// Package catalog keeps the per-tenant dataset catalog: one record per
// ingested collection with its inferred fields and document count.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kailas-cloud/docdex/internal/db"
	"github.com/kailas-cloud/docdex/internal/domain"
	domcol "github.com/kailas-cloud/docdex/internal/domain/collection"
	"github.com/kailas-cloud/docdex/internal/domain/collection/field"
	"github.com/kailas-cloud/docdex/internal/domain/mapping"
	"github.com/kailas-cloud/docdex/internal/domain/search/query"
)

const (
	// Collection is the reserved physical collection holding catalog records.
	// Tenant collections are always prefixed "users-", so it cannot collide.
	Collection = "docdex-catalog"
	// maxList bounds the records returned per tenant.
	maxList = 1000
)

// store is the consumer interface for the catalog (ISP).
type store interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, name string, m mapping.Mapping) error
	Index(ctx context.Context, collection, id string, body map[string]any) (string, error)
	Get(ctx context.Context, collection, id string) (map[string]any, error)
	Delete(ctx context.Context, collection, id string) error
	Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
}

// Repo implements the dataset catalog over a backend store.
type Repo struct {
	store store

	mu    sync.Mutex
	ready bool
}

// New creates a catalog repository. The backing collection is created lazily.
func New(s store) *Repo {
	return &Repo{store: s}
}

func catalogMapping() mapping.Mapping {
	return mapping.FromProperties([]mapping.Property{
		{Name: "tenant", Type: field.Keyword},
		{Name: "label", Type: field.Keyword},
		{Name: "collection", Type: field.Keyword},
		{Name: "doc_count", Type: field.Long},
		{Name: "created_at", Type: field.Long},
	})
}

// ensure creates the catalog collection on first use. A failed attempt is retried on the next call.
func (r *Repo) ensure(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ready {
		return nil
	}
	exists, err := r.store.CollectionExists(ctx, Collection)
	if err != nil {
		return fmt.Errorf("check catalog: %w", err)
	}
	if !exists {
		err := r.store.CreateCollection(ctx, Collection, catalogMapping())
		if err != nil && !errors.Is(err, db.ErrCollectionExists) {
			return fmt.Errorf("create catalog: %w", err)
		}
	}
	r.ready = true
	return nil
}

// Upsert writes the record for col, replacing any previous one.
func (r *Repo) Upsert(ctx context.Context, col domcol.Collection) error {
	if err := r.ensure(ctx); err != nil {
		return err
	}
	body, err := collectionToRecord(col)
	if err != nil {
		return err
	}
	if _, err := r.store.Index(ctx, Collection, recordID(col.Tenant(), col.Label()), body); err != nil {
		return fmt.Errorf("upsert catalog %s/%s: %w", col.Tenant(), col.Label(), err)
	}
	return nil
}

// Get returns one record. Returns domain.ErrNotFound if absent.
func (r *Repo) Get(ctx context.Context, tenant, label string) (domcol.Collection, error) {
	if err := r.ensure(ctx); err != nil {
		return domcol.Collection{}, err
	}
	m, err := r.store.Get(ctx, Collection, recordID(tenant, label))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domcol.Collection{}, domain.ErrNotFound
		}
		return domcol.Collection{}, fmt.Errorf("get catalog %s/%s: %w", tenant, label, err)
	}
	return collectionFromRecord(m)
}

// List returns a tenant's records sorted by CreatedAt.
func (r *Repo) List(ctx context.Context, tenant string) ([]domcol.Collection, error) {
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}
	sr, err := r.store.Search(ctx, &db.SearchQuery{
		Collections: []string{Collection},
		Query:       query.Term{Field: "tenant", Value: tenant},
		Size:        maxList,
	})
	if err != nil {
		return nil, fmt.Errorf("list catalog %s: %w", tenant, err)
	}

	out := make([]domcol.Collection, 0, len(sr.Hits))
	for _, h := range sr.Hits {
		col, err := collectionFromRecord(h.Source)
		if err != nil {
			return nil, fmt.Errorf("parse catalog record %s: %w", h.ID, err)
		}
		out = append(out, col)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt() < out[j].CreatedAt()
	})
	return out, nil
}

// Delete removes a record. Returns domain.ErrNotFound if absent.
func (r *Repo) Delete(ctx context.Context, tenant, label string) error {
	if err := r.ensure(ctx); err != nil {
		return err
	}
	if err := r.store.Delete(ctx, Collection, recordID(tenant, label)); err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete catalog %s/%s: %w", tenant, label, err)
	}
	return nil
}

func recordID(tenant, label string) string {
	return tenant + ":" + domcol.NormalizeLabel(label)
}
