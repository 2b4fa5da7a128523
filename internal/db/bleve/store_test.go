package bleve

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/docdex/internal/db"
	"github.com/kailas-cloud/docdex/internal/domain/batch"
	"github.com/kailas-cloud/docdex/internal/domain/collection/field"
	"github.com/kailas-cloud/docdex/internal/domain/mapping"
	"github.com/kailas-cloud/docdex/internal/domain/search/query"
)

func testMapping() mapping.Mapping {
	return mapping.FromProperties([]mapping.Property{
		{Name: "title", Type: field.Text, Raw: true},
		{Name: "city", Type: field.Keyword},
		{Name: "price", Type: field.Float},
		{Name: "created", Type: field.Date, Formats: mapping.DateFormats},
	})
}

func newTestStore(t *testing.T, collections ...string) *Store {
	t.Helper()
	s, err := NewStore(Config{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(s.Close)
	for _, c := range collections {
		if err := s.CreateCollection(context.Background(), c, testMapping()); err != nil {
			t.Fatalf("create %s: %v", c, err)
		}
	}
	return s
}

func seed(t *testing.T, s *Store, coll string, docs map[string]map[string]any) {
	t.Helper()
	items := make([]db.BulkItem, 0, len(docs))
	for id, body := range docs {
		items = append(items, db.BulkItem{ID: id, Body: body})
	}
	results, err := s.Bulk(context.Background(), coll, items)
	if err != nil {
		t.Fatalf("bulk: %v", err)
	}
	for _, r := range results {
		if r.Status() != batch.StatusOK {
			t.Fatalf("bulk item %s: %v", r.ID(), r.Err())
		}
	}
}

func sampleDocs() map[string]map[string]any {
	return map[string]map[string]any{
		"1": {"title": "Quick brown fox", "city": "Oslo", "price": 10.0, "created": "2024-01-01"},
		"2": {"title": "Lazy dog sleeps", "city": "Rome", "price": "25", "created": "2024-03-15"},
		"3": {"title": "Brown bear", "city": "Oslo", "price": 40, "note": "dynamic"},
	}
}

func TestCollectionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "users-1-a")

	ok, err := s.CollectionExists(ctx, "users-1-a")
	if err != nil || !ok {
		t.Fatalf("exists = %v, %v", ok, err)
	}
	if err := s.CreateCollection(ctx, "users-1-a", mapping.Empty()); !errors.Is(err, db.ErrCollectionExists) {
		t.Errorf("second create: got %v, want ErrCollectionExists", err)
	}
	if err := s.DropCollection(ctx, "users-1-a"); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if err := s.DropCollection(ctx, "users-1-a"); !errors.Is(err, db.ErrCollectionNotFound) {
		t.Errorf("second drop: got %v, want ErrCollectionNotFound", err)
	}
	if _, err := s.Count(ctx, "users-1-a"); !errors.Is(err, db.ErrCollectionNotFound) {
		t.Errorf("count after drop: got %v", err)
	}
}

func TestPersistentStore_ReopensMapping(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewStore(Config{Path: dir})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := s.CreateCollection(ctx, "c", testMapping()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Index(ctx, "c", "1", map[string]any{"city": "Oslo"}); err != nil {
		t.Fatalf("index: %v", err)
	}
	s.Close()

	s2, err := NewStore(Config{Path: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	n, err := s2.Count(ctx, "c")
	if err != nil || n != 1 {
		t.Fatalf("count = %d, %v; want 1", n, err)
	}
	c, _ := s2.collection("c")
	if p, ok := c.mapping.Lookup("price"); !ok || p.Type != field.Float {
		t.Errorf("mapping not restored: %+v, %v", p, ok)
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "c")

	id, err := s.Index(ctx, "c", "", map[string]any{"title": "Hello", "city": "Oslo"})
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated id")
	}

	doc, err := s.Get(ctx, "c", id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc["title"] != "Hello" || doc["city"] != "Oslo" {
		t.Errorf("doc = %v", doc)
	}

	if err := s.Merge(ctx, "c", id, map[string]any{"city": "Rome", "extra": 1.0}); err != nil {
		t.Fatalf("merge: %v", err)
	}
	doc, _ = s.Get(ctx, "c", id)
	if doc["city"] != "Rome" || doc["title"] != "Hello" || doc["extra"] != 1.0 {
		t.Errorf("merged doc = %v", doc)
	}

	if err := s.Delete(ctx, "c", id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "c", id); !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("get after delete: %v", err)
	}
	if err := s.Delete(ctx, "c", id); !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("second delete: %v", err)
	}
	if err := s.Merge(ctx, "c", "missing", map[string]any{"a": 1}); !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("merge missing: %v", err)
	}
}

func TestSearch_Queries(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "c")
	seed(t, s, "c", sampleDocs())

	tests := []struct {
		name string
		q    query.Query
		want int
	}{
		{"match all", query.MatchAll{}, 3},
		{"term keyword", query.Term{Field: "city", Value: "Oslo"}, 2},
		{"term keyword is case sensitive", query.Term{Field: "city", Value: "oslo"}, 0},
		{"term text uses raw", query.Term{Field: "title", Value: "Brown bear"}, 1},
		{"terms", query.Terms{Field: "city", Values: []any{"Oslo", "Rome"}}, 3},
		{"match text", query.Match{Field: "title", Text: "brown"}, 2},
		{"phrase", query.MatchPhrase{Field: "title", Text: "brown fox"}, 1},
		{"wildcard", query.Wildcard{Field: "title", Pattern: "*OX*"}, 1},
		{"prefix keyword", query.Prefix{Field: "city", Prefix: "Ro"}, 1},
		{"range numeric coerced", query.Range{Field: "price", GTE: 20}, 2},
		{"range exclusive", query.Range{Field: "price", GT: 10, LT: 40}, 1},
		{"range date", query.Range{Field: "created", GTE: "2024-02-01"}, 1},
		{"exists date", query.Exists{Field: "created"}, 2},
		{"exists dynamic", query.Exists{Field: "note"}, 1},
		{"query string", query.QueryString{Text: "dog"}, 1},
		{"unknown field term", query.Term{Field: "nope", Value: "x"}, 0},
		{"id", query.Term{Field: "_id", Value: "2"}, 1},
		{
			"bool",
			query.Bool{
				Filter:  []query.Query{query.Term{Field: "city", Value: "Oslo"}},
				MustNot: []query.Query{query.Match{Field: "title", Text: "bear"}},
			},
			1,
		},
		{"must not only", query.Not(query.Term{Field: "city", Value: "Oslo"}), 1},
		{
			"should min one",
			query.Bool{
				Should: []query.Query{
					query.Term{Field: "city", Value: "Rome"},
					query.Match{Field: "title", Text: "bear"},
				},
				MinimumShouldMatch: 1,
			},
			2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Search(ctx, &db.SearchQuery{Collections: []string{"c"}, Query: tt.q, Size: 10})
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if res.Total != tt.want {
				t.Errorf("total = %d, want %d", res.Total, tt.want)
			}
		})
	}
}

func TestSearch_SortPageAndProject(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "c")
	seed(t, s, "c", sampleDocs())

	res, err := s.Search(ctx, &db.SearchQuery{
		Collections: []string{"c"},
		Query:       query.MatchAll{},
		From:        1,
		Size:        1,
		Sort:        []db.SortField{{Field: "price", Desc: true}},
		Fields:      []string{"city"},
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Total != 3 || len(res.Hits) != 1 {
		t.Fatalf("total=%d hits=%d", res.Total, len(res.Hits))
	}
	h := res.Hits[0]
	if h.ID != "2" || h.Collection != "c" {
		t.Errorf("hit = %s/%s, want c/2", h.Collection, h.ID)
	}
	if len(h.Source) != 1 || h.Source["city"] != "Rome" {
		t.Errorf("projected source = %v", h.Source)
	}
}

func TestSearch_MultiCollectionAggregationsHighlight(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "a", "b")
	seed(t, s, "a", map[string]map[string]any{"1": {"title": "red apple", "city": "Oslo"}})
	seed(t, s, "b", map[string]map[string]any{
		"1": {"title": "green apple", "city": "Oslo"},
		"2": {"title": "pear", "city": "Rome"},
	})

	res, err := s.Search(ctx, &db.SearchQuery{
		Collections:  []string{"a", "b"},
		Query:        query.Match{Field: "title", Text: "apple"},
		Size:         10,
		Aggregations: []db.TermsAggregation{{Name: "cities", Field: "city", Size: 5}},
		Highlight:    []string{"title"},
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Total != 2 {
		t.Fatalf("total = %d, want 2", res.Total)
	}
	seen := map[string]bool{}
	for _, h := range res.Hits {
		seen[h.Collection] = true
		if len(h.Highlight["title"]) == 0 {
			t.Errorf("hit %s/%s has no highlight", h.Collection, h.ID)
		}
	}
	if !seen["a"] || !seen["b"] {
		t.Errorf("hits should span both collections: %v", seen)
	}
	buckets := res.Aggregations["cities"]
	if len(buckets) != 1 || buckets[0].Key != "Oslo" || buckets[0].Count != 2 {
		t.Errorf("buckets = %+v", buckets)
	}
}

func TestSearch_UnknownCollection(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Search(context.Background(), &db.SearchQuery{Collections: []string{"nope"}, Size: 1})
	if !errors.Is(err, db.ErrCollectionNotFound) {
		t.Errorf("got %v, want ErrCollectionNotFound", err)
	}
}

func TestPing_AfterClose(t *testing.T) {
	s, err := NewStore(Config{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	s.Close()
	if err := s.Ping(context.Background()); err == nil {
		t.Error("expected error after close")
	}
}

func TestIndex_UnderscoreKeysStayInSource(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "c")

	if _, err := s.Index(ctx, "c", "x1", map[string]any{"_id": "x1", "_rank": 3.0, "city": "Oslo"}); err != nil {
		t.Fatalf("index: %v", err)
	}
	doc, err := s.Get(ctx, "c", "x1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc["_id"] != "x1" || doc["_rank"] != 3.0 {
		t.Errorf("source = %v", doc)
	}
	res, err := s.Search(ctx, &db.SearchQuery{Collections: []string{"c"}, Query: query.Term{Field: "_id", Value: "x1"}, Size: 1})
	if err != nil || res.Total != 1 {
		t.Errorf("id lookup = %v, %v", res, err)
	}
}
