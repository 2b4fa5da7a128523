package document

import (
	"context"
	"testing"

	"github.com/kailas-cloud/docdex/internal/db"
	"github.com/kailas-cloud/docdex/internal/domain/batch"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	indexFn  func(ctx context.Context, coll, id string, body map[string]any) (string, error)
	getFn    func(ctx context.Context, coll, id string) (map[string]any, error)
	mergeFn  func(ctx context.Context, coll, id string, partial map[string]any) error
	deleteFn func(ctx context.Context, coll, id string) error
	bulkFn   func(ctx context.Context, coll string, items []db.BulkItem) ([]batch.Result, error)
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
	return map[string]any{}, nil
}

func (m *mockStore) Merge(ctx context.Context, coll, id string, partial map[string]any) error {
	if m.mergeFn != nil {
		return m.mergeFn(ctx, coll, id, partial)
	}
	return nil
}

func (m *mockStore) Delete(ctx context.Context, coll, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, coll, id)
	}
	return nil
}

func (m *mockStore) Bulk(ctx context.Context, coll string, items []db.BulkItem) ([]batch.Result, error) {
	if m.bulkFn != nil {
		return m.bulkFn(ctx, coll, items)
	}
	out := make([]batch.Result, len(items))
	for i, it := range items {
		out[i] = batch.NewOK(it.ID)
	}
	return out, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}
