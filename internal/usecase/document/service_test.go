package document

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/docdex/internal/db/bleve"
	"github.com/kailas-cloud/docdex/internal/domain"
	domcol "github.com/kailas-cloud/docdex/internal/domain/collection"
	domdoc "github.com/kailas-cloud/docdex/internal/domain/document"
	"github.com/kailas-cloud/docdex/internal/domain/document/patch"
	"github.com/kailas-cloud/docdex/internal/domain/mapping"
	collrepo "github.com/kailas-cloud/docdex/internal/repository/collection"
	docrepo "github.com/kailas-cloud/docdex/internal/repository/document"
	"github.com/kailas-cloud/docdex/internal/usecase/collection"
)

// --- Mocks ---

type mockDocRepo struct {
	putDoc    domdoc.Document
	putErr    error
	getDoc    domdoc.Document
	getErr    error
	mergeErr  error
	deleteErr error

	putColl string
	merged  map[string]any
}

func (m *mockDocRepo) Put(_ context.Context, coll string, doc domdoc.Document) (domdoc.Document, error) {
	m.putColl = coll
	if m.putErr != nil {
		return domdoc.Document{}, m.putErr
	}
	if m.putDoc.ID() != "" {
		return m.putDoc, nil
	}
	return doc.WithID("generated"), nil
}

func (m *mockDocRepo) Get(_ context.Context, _, _ string) (domdoc.Document, error) {
	return m.getDoc, m.getErr
}

func (m *mockDocRepo) Merge(_ context.Context, _, _ string, p patch.Patch) error {
	m.merged = p.Fields()
	return m.mergeErr
}

func (m *mockDocRepo) Delete(_ context.Context, _, _ string) error {
	return m.deleteErr
}

type mockResolver struct {
	ensureErr   error
	ensureCalls int
	count       int
}

func (m *mockResolver) Resolve(tenant, label string) (domcol.Collection, error) {
	return domcol.New(tenant, label)
}

func (m *mockResolver) Ensure(
	_ context.Context, _ domcol.Collection, _ mapping.Mapping, recreate bool,
) collection.EnsureResult {
	m.ensureCalls++
	if recreate {
		return collection.EnsureResult{Err: errors.New("unexpected recreate")}
	}
	return collection.EnsureResult{Err: m.ensureErr}
}

func (m *mockResolver) Count(_ context.Context, _ string) (int, error) {
	return m.count, nil
}

func mustDoc(t *testing.T, id string, body map[string]any) domdoc.Document {
	t.Helper()
	d, err := domdoc.New(id, body)
	if err != nil {
		t.Fatalf("domdoc.New: %v", err)
	}
	return d
}

// --- Tests ---

func TestCreate_EnsuresCollectionAndAssignsID(t *testing.T) {
	repo := &mockDocRepo{}
	colls := &mockResolver{}
	svc := New(repo, colls)

	doc, err := svc.Create(context.Background(), "t1", "Notes", mustDoc(t, "", map[string]any{"a": 1}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID() != "generated" {
		t.Errorf("id = %q", doc.ID())
	}
	if colls.ensureCalls != 1 {
		t.Errorf("ensure calls = %d", colls.ensureCalls)
	}
	if repo.putColl != "users-t1-notes" {
		t.Errorf("collection = %q", repo.putColl)
	}
}

func TestCreate_EnsureFailureStillWrites(t *testing.T) {
	repo := &mockDocRepo{}
	svc := New(repo, &mockResolver{ensureErr: domain.ErrBackendUnavailable})

	if _, err := svc.Create(context.Background(), "t1", "a", mustDoc(t, "x", map[string]any{})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.putColl == "" {
		t.Error("write should be attempted")
	}
}

func TestCreate_InvalidTenant(t *testing.T) {
	svc := New(&mockDocRepo{}, &mockResolver{})
	_, err := svc.Create(context.Background(), "bad tenant", "a", mustDoc(t, "", map[string]any{}))
	if !errors.Is(err, domain.ErrInvalidTenant) {
		t.Errorf("got %v, want ErrInvalidTenant", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	svc := New(&mockDocRepo{getErr: domain.ErrDocumentNotFound}, &mockResolver{})
	_, err := svc.Get(context.Background(), "t1", "a", "nope")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("got %v, want ErrDocumentNotFound", err)
	}
}

func TestUpdate_MergesAndRereads(t *testing.T) {
	repo := &mockDocRepo{getDoc: domdoc.Reconstruct("1", map[string]any{"a": 1, "b": 2})}
	svc := New(repo, &mockResolver{})

	p, err := patch.New(map[string]any{"b": 2})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	doc, err := svc.Update(context.Background(), "t1", "a", "1", p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.merged["b"] != 2 {
		t.Errorf("merged = %v", repo.merged)
	}
	if doc.Body()["a"] != 1 {
		t.Errorf("doc = %v", doc.Body())
	}
}

func TestUpdate_MissingDocument(t *testing.T) {
	svc := New(&mockDocRepo{mergeErr: domain.ErrDocumentNotFound}, &mockResolver{})
	p, _ := patch.New(map[string]any{"b": 2})
	if _, err := svc.Update(context.Background(), "t1", "a", "1", p); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("got %v, want ErrDocumentNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name    string
		repoErr error
		wantErr error
	}{
		{"deleted", nil, nil},
		{"missing document", domain.ErrDocumentNotFound, nil},
		{"missing collection", domain.ErrCollectionNotFound, nil},
		{"backend failure", domain.ErrBackendUnavailable, domain.ErrBackendUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(&mockDocRepo{deleteErr: tt.repoErr}, &mockResolver{})
			err := svc.Delete(context.Background(), "t1", "a", "1")
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCount(t *testing.T) {
	svc := New(&mockDocRepo{}, &mockResolver{count: 7})
	n, err := svc.Count(context.Background(), "t1", "a")
	if err != nil || n != 7 {
		t.Errorf("count = %d, %v", n, err)
	}
}

func TestService_BleveRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := bleve.NewStore(bleve.Config{})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(store.Close)

	colls := collection.New(collrepo.New(store), nil, 0)
	svc := New(docrepo.New(store), colls)

	created, err := svc.Create(ctx, "t1", "notes", mustDoc(t, "n1", map[string]any{"title": "hello", "tags": "a"}))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID() != "n1" {
		t.Fatalf("id = %q", created.ID())
	}

	p, _ := patch.New(map[string]any{"tags": "b", "views": 3.0})
	updated, err := svc.Update(ctx, "t1", "notes", "n1", p)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	body := updated.Body()
	if body["title"] != "hello" || body["tags"] != "b" || body["views"] != 3.0 {
		t.Errorf("updated = %v", body)
	}

	if n, err := svc.Count(ctx, "t1", "notes"); err != nil || n != 1 {
		t.Errorf("count = %d, %v", n, err)
	}

	if err := svc.Delete(ctx, "t1", "notes", "n1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, "t1", "notes", "n1"); err != nil {
		t.Errorf("second delete: %v", err)
	}
	if _, err := svc.Get(ctx, "t1", "notes", "n1"); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("get after delete: %v", err)
	}
}
