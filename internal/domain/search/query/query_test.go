package query

import (
	"encoding/json"
	"testing"
)

func mustJSON(t *testing.T, q Query) string {
	t.Helper()
	data, err := json.Marshal(q)
	if err != nil {
		t.Fatalf("marshal %s: %v", q.Kind(), err)
	}
	return string(data)
}

func TestMarshal_Leaves(t *testing.T) {
	tests := []struct {
		q    Query
		want string
	}{
		{Term{Field: "status", Value: "open"}, `{"term":{"status":"open"}}`},
		{Terms{Field: "id", Values: []any{"1", 2}}, `{"terms":{"id":["1",2]}}`},
		{Terms{Field: "id"}, `{"terms":{"id":[]}}`},
		{Match{Field: "title", Text: "red shoes"}, `{"match":{"title":"red shoes"}}`},
		{MatchPhrase{Field: "title", Text: "red shoes"}, `{"match_phrase":{"title":"red shoes"}}`},
		{Wildcard{Field: "name", Pattern: "*an*"}, `{"wildcard":{"name":{"value":"*an*"}}}`},
		{Prefix{Field: "sku", Prefix: "AB"}, `{"prefix":{"sku":"AB"}}`},
		{Range{Field: "price", GTE: 10, LT: 20}, `{"range":{"price":{"gte":10,"lt":20}}}`},
		{Exists{Field: "email"}, `{"exists":{"field":"email"}}`},
		{MatchAll{}, `{"match_all":{}}`},
		{QueryString{Text: "foo"}, `{"query_string":{"query":"foo"}}`},
		{QueryString{Field: "notes", Text: "foo"}, `{"query_string":{"default_field":"notes","query":"foo"}}`},
	}
	for _, tt := range tests {
		if got := mustJSON(t, tt.q); got != tt.want {
			t.Errorf("%s: got %s, want %s", tt.q.Kind(), got, tt.want)
		}
	}
}

func TestMarshal_Bool(t *testing.T) {
	q := Bool{
		Should:             []Query{Term{Field: "a", Value: 1}, Term{Field: "b", Value: 2}},
		MustNot:            []Query{Exists{Field: "deleted"}},
		MinimumShouldMatch: 1,
	}
	want := `{"bool":{"minimum_should_match":1,"must_not":[{"exists":{"field":"deleted"}}],` +
		`"should":[{"term":{"a":1}},{"term":{"b":2}}]}}`
	if got := mustJSON(t, q); got != want {
		t.Errorf("got %s\nwant %s", got, want)
	}
}

func TestBool_IsEmpty(t *testing.T) {
	if !(Bool{}).IsEmpty() {
		t.Error("zero Bool should be empty")
	}
	if (Bool{Filter: []Query{MatchAll{}}}).IsEmpty() {
		t.Error("Bool with filter should not be empty")
	}
}

func TestRange_IsOpen(t *testing.T) {
	if !(Range{Field: "x"}).IsOpen() {
		t.Error("expected open range")
	}
	if (Range{Field: "x", LTE: 5}).IsOpen() {
		t.Error("expected bounded range")
	}
}

func TestWalk(t *testing.T) {
	q := Bool{
		Must:   []Query{Term{Field: "a"}, Bool{Should: []Query{Prefix{Field: "b"}}}},
		Filter: []Query{Exists{Field: "c"}},
	}
	var kinds []Kind
	Walk(q, func(n Query) { kinds = append(kinds, n.Kind()) })

	want := []Kind{KindBool, KindTerm, KindBool, KindPrefix, KindExists}
	if len(kinds) != len(want) {
		t.Fatalf("visited %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("kinds[%d] = %s, want %s", i, kinds[i], want[i])
		}
	}
}
