package search

import (
	"context"
	"testing"

	"github.com/kailas-cloud/docdex/internal/db"
	"github.com/kailas-cloud/docdex/internal/domain/search/request"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchFn func(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
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

func mustRequest(t *testing.T, p request.Params) *request.Request {
	t.Helper()
	req, err := request.New(p)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	return &req
}
