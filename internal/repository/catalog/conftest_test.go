package catalog

import (
	"context"
	"testing"

	"github.com/kailas-cloud/docdex/internal/db"
	"github.com/kailas-cloud/docdex/internal/db/bleve"
	"github.com/kailas-cloud/docdex/internal/domain/mapping"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	existsFn func(ctx context.Context, name string) (bool, error)
	createFn func(ctx context.Context, name string, m mapping.Mapping) error
	indexFn  func(ctx context.Context, coll, id string, body map[string]any) (string, error)
	getFn    func(ctx context.Context, coll, id string) (map[string]any, error)
	deleteFn func(ctx context.Context, coll, id string) error
	searchFn func(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
}

func (m *mockStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, name)
	}
	return true, nil
}

func (m *mockStore) CreateCollection(ctx context.Context, name string, mp mapping.Mapping) error {
	if m.createFn != nil {
		return m.createFn(ctx, name, mp)
	}
	return nil
}

func (m *mockStore) Index(ctx context.Context, coll, id string, body map[string]any) (string, error) {
	if m.indexFn != nil {
		return m.indexFn(ctx, coll, id, body)
	}
	return id, nil
}

func (m *mockStore) Get(ctx context.Context, coll, id string) (map[string]any, error) {
	if m.getFn != nil {
		return m.getFn(ctx, coll, id)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) Delete(ctx context.Context, coll, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, coll, id)
	}
	return nil
}

func (m *mockStore) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}

// newBleveRepo returns a catalog over a real in-memory bleve store.
func newBleveRepo(t *testing.T) *Repo {
	t.Helper()
	s, err := bleve.NewStore(bleve.Config{})
	if err != nil {
		t.Fatalf("bleve store: %v", err)
	}
	t.Cleanup(s.Close)
	return New(s)
}
