package docdex

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  clientConfig
	}{
		{"unknown driver", clientConfig{driver: "mongo"}},
		{"redis without address", clientConfig{driver: driverRedis}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := createStore(&tt.cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &clientConfig{}

	WithRedis("localhost:6379", "secret").apply(cfg)
	if cfg.driver != driverRedis || cfg.addrs[0] != "localhost:6379" || cfg.password != "secret" {
		t.Errorf("redis option: %+v", cfg)
	}

	WithBleve("/tmp/idx").apply(cfg)
	if cfg.driver != driverBleve || cfg.path != "/tmp/idx" {
		t.Errorf("bleve option: %+v", cfg)
	}

	WithChunkSize(50).apply(cfg)
	WithSampleRows(10).apply(cfg)
	WithKeyPrefix("x:").apply(cfg)
	if cfg.chunkSize != 50 || cfg.sampleRows != 10 || cfg.keyPrefix != "x:" {
		t.Errorf("tuning options: %+v", cfg)
	}
}

func TestDocuments(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	docs := c.Documents("acme", "notes")

	doc, err := docs.Put(ctx, "", map[string]any{"title": "first"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if doc.ID == "" {
		t.Fatal("expected generated id")
	}

	patched, err := docs.Patch(ctx, doc.ID, map[string]any{"tag": "x"})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if patched.Body["title"] != "first" || patched.Body["tag"] != "x" {
		t.Errorf("patched = %v", patched.Body)
	}

	if n, err := docs.Count(ctx); err != nil || n != 1 {
		t.Errorf("count = %d, %v", n, err)
	}

	if err := docs.Delete(ctx, doc.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := docs.Get(ctx, doc.ID); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("get after delete: %v", err)
	}

	if _, err := c.Documents("bad tenant", "notes").Get(ctx, "1"); !errors.Is(err, ErrInvalidTenant) {
		t.Errorf("bad tenant: %v", err)
	}
}

func TestDocuments_TenantIsolation(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	if _, err := c.Documents("acme-corp", "orders").Put(ctx, "secret", map[string]any{"ssn": 123}); err != nil {
		t.Fatalf("put: %v", err)
	}

	page, err := c.Search("acme").In("corp-orders").Do(ctx)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if page.Total != 0 || len(page.Hits) != 0 {
		t.Errorf("acme sees %d hits from acme-corp: %+v", page.Total, page.Hits)
	}
	if _, err := c.Documents("acme", "corp-orders").Get(ctx, "secret"); !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("cross-tenant get: err = %v, want ErrCollectionNotFound", err)
	}
	if _, err := c.Documents("acme-corp", "orders").Get(ctx, "secret"); err != nil {
		t.Errorf("owner get: %v", err)
	}
}

func TestSearch_IncompleteConditionRejected(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	docs := c.Documents("acme", "people")
	for _, name := range []string{"ann", "bob"} {
		if _, err := docs.Put(ctx, name, map[string]any{"name": name}); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	page, err := c.Search("acme").In("people").Match(Condition{Field: "name", Op: "eq"}).Do(ctx)
	if !errors.Is(err, ErrInvalidCondition) {
		t.Errorf("err = %v (total %d), want ErrInvalidCondition", err, page.Total)
	}
}

func TestIngestAndSearch(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	customers := writeFile(t, "customers.csv", "id,name,tier\nc1,Ada,gold\nc2,Linus,silver\n")
	orders := writeFile(t, "orders.jsonl",
		`{"order_id":"o1","customer":"c1","total":120,"status":"paid"}`+"\n"+
			`{"order_id":"o2","customer":"c2","total":15.5,"status":"paid"}`+"\n"+
			`{"order_id":"o3","customer":"c1","total":80,"status":"open"}`+"\n")

	job, err := c.Ingest(ctx, "acme", []File{
		{Path: customers, IDField: "id"},
		{Path: orders, IDField: "order_id"},
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if job.Status != JobDone || job.IndexedRows != 5 || len(job.Files) != 2 {
		t.Fatalf("job = %+v", job)
	}

	page, err := c.Search("acme").
		In("orders").
		Where("status", "paid").
		Between("total", 50, nil).
		Expand("buyer", "customers", "customer", "id", "name").
		Do(ctx)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if page.Total != 1 || page.Hits[0].ID != "o1" {
		t.Fatalf("page = %+v", page)
	}
	expanded, _ := page.Hits[0].Source["_expanded"].(map[string]any)
	buyer, _ := expanded["buyer"].(map[string]any)
	if buyer["name"] != "Ada" || buyer["tier"] != nil {
		t.Errorf("buyer = %v", buyer)
	}

	page, err = c.Search("acme").In("orders").Terms("by_status", "status", 5).SortBy("total", false).Do(ctx)
	if err != nil {
		t.Fatalf("agg search: %v", err)
	}
	if page.Total != 3 || page.Hits[0].ID != "o2" {
		t.Errorf("sorted page = %+v", page.Hits)
	}
	if b := page.Aggregations["by_status"]; len(b) != 2 || b[0].Key != "paid" || b[0].Count != 2 {
		t.Errorf("buckets = %+v", b)
	}

	cols, err := c.Collections(ctx, "acme")
	if err != nil || len(cols) != 2 {
		t.Fatalf("collections = %+v, %v", cols, err)
	}

	if err := c.DropCollection(ctx, "acme", "orders"); err != nil {
		t.Fatalf("drop: %v", err)
	}
	page, err = c.Search("acme").In("orders").Do(ctx)
	if err != nil || page.Total != 0 || len(page.Collections) != 0 {
		t.Errorf("search after drop = %+v, %v", page, err)
	}
}

func TestSubmitAndJob(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	path := writeFile(t, "events.csv", "kind\nclick\nview\n")

	id, err := c.Submit(ctx, "acme", []File{{Path: path}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	c.ingest.Wait()

	job, err := c.Job("acme", id)
	if err != nil {
		t.Fatalf("job: %v", err)
	}
	if job.Status != JobDone || job.IndexedRows != 2 {
		t.Errorf("job = %+v", job)
	}
	if _, err := c.Job("other", id); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("other tenant: %v", err)
	}
}

func TestInfer(t *testing.T) {
	path := writeFile(t, "items.csv", "sku,price,added\nA,1.5,2024-01-02\nB,2,2024-02-03\n")
	fields, err := Infer(context.Background(), path, 0)
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	got := map[string]FieldType{}
	for _, f := range fields {
		got[f.Name] = f.Type
	}
	if got["sku"] != FieldKeyword || got["price"] != FieldFloat || got["added"] != FieldDate {
		t.Errorf("fields = %v", got)
	}

	if _, err := Infer(context.Background(), writeFile(t, "x.xlsx", "nope"), 0); !errors.Is(err, ErrUnsupportedSource) {
		t.Errorf("unsupported: %v", err)
	}
}
