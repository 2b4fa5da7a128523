package collection

import (
	"context"
	"testing"

	"github.com/kailas-cloud/docdex/internal/domain/mapping"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	existsFn func(ctx context.Context, name string) (bool, error)
	createFn func(ctx context.Context, name string, m mapping.Mapping) error
	dropFn   func(ctx context.Context, name string) error
	countFn  func(ctx context.Context, name string) (int, error)
}

func (m *mockStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) CreateCollection(ctx context.Context, name string, mp mapping.Mapping) error {
	if m.createFn != nil {
		return m.createFn(ctx, name, mp)
	}
	return nil
}

func (m *mockStore) DropCollection(ctx context.Context, name string) error {
	if m.dropFn != nil {
		return m.dropFn(ctx, name)
	}
	return nil
}

func (m *mockStore) Count(ctx context.Context, name string) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx, name)
	}
	return 0, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}
