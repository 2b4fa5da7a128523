package ingest

import (
	"testing"

	"github.com/kailas-cloud/docdex/internal/domain/collection/field"
	"github.com/kailas-cloud/docdex/internal/domain/schema"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		in   string
		ft   field.Type
		want any
	}{
		{"42", field.Long, int64(42)},
		{" 42 ", field.Long, int64(42)},
		{"3.0", field.Long, int64(3)},
		{"3.5", field.Long, 3.5},
		{"1e3", field.Float, 1000.0},
		{"2.5", field.Float, 2.5},
		{"NaN", field.Float, nil},
		{"none", field.Long, nil},
		{"", field.Float, nil},
		{"inf", field.Float, nil},
		{"abc", field.Long, nil},
		{"abc", field.Keyword, "abc"},
		{"null", field.Text, "null"},
		{"2024-01-01", field.Date, "2024-01-01"},
	}
	for _, tt := range tests {
		if got := coerce(tt.in, tt.ft); got != tt.want {
			t.Errorf("coerce(%q, %s) = %v (%T), want %v (%T)", tt.in, tt.ft, got, got, tt.want, tt.want)
		}
	}
}

func TestToDocument(t *testing.T) {
	sch := schema.New([]field.Field{
		field.Reconstruct("id", field.Keyword),
		field.Reconstruct("n", field.Long),
	})
	s := func(v string) *string { return &v }

	doc, err := toDocument(map[string]*string{"id": s("k1"), "n": s("x"), "note": nil}, sch, "id")
	if err != nil {
		t.Fatalf("toDocument: %v", err)
	}
	if doc.ID() != "k1" {
		t.Errorf("id = %q", doc.ID())
	}
	body := doc.Body()
	if body["n"] != nil || body["id"] != "k1" {
		t.Errorf("body = %v", body)
	}
	if v, ok := body["note"]; !ok || v != nil {
		t.Errorf("null column should be kept as null: %v", body)
	}

	if _, err := toDocument(map[string]*string{"n": s("1")}, sch, "id"); err == nil {
		t.Error("missing id column should fail the row")
	}
}
