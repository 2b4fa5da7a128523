package expand

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/cast"

	domcol "github.com/kailas-cloud/docdex/internal/domain/collection"
	"github.com/kailas-cloud/docdex/internal/domain/expansion"
	"github.com/kailas-cloud/docdex/internal/domain/search/result"
)

// --- Mocks ---

// memRepo serves lookups from an in-memory set of documents per collection.
type memRepo struct {
	docs      map[string][]result.Hit
	err       error
	calls     int
	lastKeys  []any
	lastSize  int
	lastField string
}

func (m *memRepo) Lookup(_ context.Context, coll, field string, keys []any, _ []string) ([]result.Hit, error) {
	m.calls++
	m.lastKeys = keys
	m.lastField = field
	if m.err != nil {
		return nil, m.err
	}
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[cast.ToString(k)] = true
	}
	var out []result.Hit
	for _, h := range m.docs[coll] {
		if want[cast.ToString(h.Source()[field])] {
			out = append(out, result.New(coll, h.ID(), 0, cloneMap(h.Source()), nil))
		}
	}
	return out, nil
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type mockResolver struct {
	missing map[string]bool
	err     error
}

func (m *mockResolver) Resolve(tenant, label string) (domcol.Collection, error) {
	return domcol.New(tenant, label)
}

func (m *mockResolver) Exists(_ context.Context, name string) (bool, error) {
	return !m.missing[name], m.err
}

func hit(id string, src map[string]any) result.Hit {
	return result.New("src", id, 1, src, nil)
}

func mustSpec(t *testing.T, name, target, from, to string, many bool, fields ...string) expansion.Spec {
	t.Helper()
	s, err := expansion.New(name, target, from, to, many, fields)
	if err != nil {
		t.Fatalf("spec: %v", err)
	}
	return s
}

func ordersRepo() *memRepo {
	return &memRepo{docs: map[string][]result.Hit{
		"users-t-orders": {
			result.New("", "o1", 0, map[string]any{"order_id": 1.0, "total": 10.0}, nil),
			result.New("", "o2", 0, map[string]any{"order_id": "2", "total": 20.0}, nil),
		},
	}}
}

// --- Tests ---

func TestExpand_SingleValueJoin(t *testing.T) {
	repo := ordersRepo()
	e := New(repo, &mockResolver{})
	hits := []result.Hit{
		hit("a", map[string]any{"order_id": "1"}),
		hit("b", map[string]any{"order_id": 1}),
		hit("c", map[string]any{"order_id": 2}),
		hit("d", map[string]any{"order_id": 99}),
	}

	e.Expand(context.Background(), "t", hits, []expansion.Spec{mustSpec(t, "order", "orders", "order_id", "order_id", false)})

	if repo.calls != 1 {
		t.Fatalf("lookups = %d, want 1", repo.calls)
	}
	if len(repo.lastKeys) != 3 {
		t.Errorf("keys = %v, want 3 distinct", repo.lastKeys)
	}

	get := func(i int) map[string]any {
		v, ok := hits[i].Expanded("order")
		if !ok {
			t.Fatalf("hit %d not expanded", i)
		}
		if v == nil {
			return nil
		}
		return v.(map[string]any)
	}
	if get(0)["_id"] != "o1" || get(1)["_id"] != "o1" {
		t.Errorf("hits a/b should share order o1: %v %v", get(0), get(1))
	}
	if get(2)["_id"] != "o2" {
		t.Errorf("hit c = %v", get(2))
	}
	if get(3) != nil {
		t.Errorf("unmatched key should attach nil, got %v", get(3))
	}
	if _, ok := hits[0].Source()["order"]; ok {
		t.Error("expansion must not overwrite the raw field namespace")
	}
}

func TestExpand_Many(t *testing.T) {
	repo := ordersRepo()
	e := New(repo, &mockResolver{})
	hits := []result.Hit{
		hit("a", map[string]any{"orders": []any{"2", "missing", "1"}}),
		hit("b", map[string]any{"other": 1}),
	}

	e.Expand(context.Background(), "t", hits, []expansion.Spec{mustSpec(t, "orders", "orders", "orders", "order_id", true)})

	v, _ := hits[0].Expanded("orders")
	list := v.([]any)
	if len(list) != 2 {
		t.Fatalf("list = %v", list)
	}
	if list[0].(map[string]any)["_id"] != "o2" || list[1].(map[string]any)["_id"] != "o1" {
		t.Errorf("order not preserved: %v", list)
	}
	v, _ = hits[1].Expanded("orders")
	if l, ok := v.([]any); !ok || len(l) != 0 {
		t.Errorf("missing from-field should attach [], got %#v", v)
	}
}

func TestExpand_NoKeys(t *testing.T) {
	repo := ordersRepo()
	e := New(repo, &mockResolver{})
	hits := []result.Hit{hit("a", map[string]any{})}

	e.Expand(context.Background(), "t", hits, []expansion.Spec{
		mustSpec(t, "one", "orders", "order_id", "", false),
		mustSpec(t, "many", "orders", "order_id", "", true),
	})

	if repo.calls != 0 {
		t.Errorf("lookups = %d, want 0", repo.calls)
	}
	if v, ok := hits[0].Expanded("one"); !ok || v != nil {
		t.Errorf("one = %v, %v", v, ok)
	}
	if v, _ := hits[0].Expanded("many"); len(v.([]any)) != 0 {
		t.Errorf("many = %v", v)
	}
}

func TestExpand_MissingTargetSkipped(t *testing.T) {
	repo := ordersRepo()
	e := New(repo, &mockResolver{missing: map[string]bool{"users-t-orders": true}})
	hits := []result.Hit{hit("a", map[string]any{"order_id": 1})}

	e.Expand(context.Background(), "t", hits, []expansion.Spec{mustSpec(t, "order", "orders", "order_id", "order_id", false)})

	if repo.calls != 0 {
		t.Errorf("lookups = %d", repo.calls)
	}
	if _, ok := hits[0].Expanded("order"); ok {
		t.Error("skipped spec must not attach")
	}
}

func TestExpand_FailureIsIsolated(t *testing.T) {
	repo := ordersRepo()
	repo.err = errors.New("timeout")
	e := New(repo, &mockResolver{})
	hits := []result.Hit{hit("a", map[string]any{"order_id": 1})}

	e.Expand(context.Background(), "t", hits, []expansion.Spec{
		mustSpec(t, "broken", "orders", "order_id", "order_id", false),
		mustSpec(t, "bad-target", "Bad Label!", "order_id", "order_id", false),
	})

	if _, ok := hits[0].Expanded("broken"); ok {
		t.Error("failed spec must not attach")
	}
}

func TestExpand_KeyCap(t *testing.T) {
	repo := ordersRepo()
	e := New(repo, &mockResolver{}).WithMaxKeys(2)
	hits := []result.Hit{
		hit("a", map[string]any{"order_id": 1}),
		hit("b", map[string]any{"order_id": 2}),
		hit("c", map[string]any{"order_id": 3}),
	}

	e.Expand(context.Background(), "t", hits, []expansion.Spec{mustSpec(t, "order", "orders", "order_id", "order_id", false)})

	if len(repo.lastKeys) != 2 {
		t.Errorf("keys = %v, want 2", repo.lastKeys)
	}
}

func TestExpand_ProjectionAndDefaultToField(t *testing.T) {
	repo := &memRepo{docs: map[string][]result.Hit{
		"users-t-customers": {
			result.New("", "c1", 0, map[string]any{"id": "7", "name": "Ann", "email": "a@x"}, nil),
		},
	}}
	e := New(repo, &mockResolver{})
	hits := []result.Hit{hit("a", map[string]any{"customer": "7"})}

	e.Expand(context.Background(), "t", hits, []expansion.Spec{mustSpec(t, "customer", "customers", "customer", "", false, "name")})

	if repo.lastField != "id" {
		t.Errorf("to_field = %q, want id", repo.lastField)
	}
	v, _ := hits[0].Expanded("customer")
	doc := v.(map[string]any)
	if doc["name"] != "Ann" || doc["_id"] != "c1" {
		t.Errorf("doc = %v", doc)
	}
	if _, ok := doc["email"]; ok {
		t.Error("projection should drop email")
	}
	if _, ok := doc["id"]; ok {
		t.Error("projection should drop the key field")
	}
}
