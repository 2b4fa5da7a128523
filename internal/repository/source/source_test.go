package source

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/parquet-go/parquet-go"

	"github.com/kailas-cloud/docdex/internal/domain"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func collect(t *testing.T, s Source) ([]Row, []error) {
	t.Helper()
	var rows []Row
	var errs []error
	for row, err := range s.Rows(context.Background()) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rows = append(rows, row)
	}
	return rows, errs
}

func val(r Row, k string) string {
	if v := r[k]; v != nil {
		return *v
	}
	return "<nil>"
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		want Format
		err  bool
	}{
		{"a.csv", CSV, false},
		{"A.TSV", TSV, false},
		{"a.jsonl", JSONL, false},
		{"a.json", JSONL, false},
		{"a.jsonl.zst", JSONLZstd, false},
		{"a.json.zst", JSONLZstd, false},
		{"a.parquet", Parquet, false},
		{"a.xlsx", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.name)
			if tt.err {
				if !errors.Is(err, domain.ErrUnsupportedSource) {
					t.Errorf("err = %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("got %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

func TestCSV(t *testing.T) {
	data := "\ufeffname, price ,city\nfoo,1.5,Oslo\nbar,,\nshort\n"
	s, err := Open(writeFile(t, "items.csv", []byte(data)), "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if s.Name() != "items.csv" {
		t.Errorf("name = %q", s.Name())
	}

	rows, errs := collect(t, s)
	if len(errs) != 0 {
		t.Fatalf("errors: %v", errs)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if val(rows[0], "name") != "foo" || val(rows[0], "price") != "1.5" {
		t.Errorf("row0 = %v %v", val(rows[0], "name"), val(rows[0], "price"))
	}
	if rows[1]["price"] != nil || rows[1]["city"] != nil {
		t.Error("empty cells should be null")
	}
	if _, ok := rows[2]["city"]; !ok || rows[2]["city"] != nil {
		t.Error("missing cells should be present as null")
	}
}

func TestTSV(t *testing.T) {
	s, err := Open(writeFile(t, "x.tsv", []byte("a\tb\n1\thello world\n")), "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	rows, _ := collect(t, s)
	if len(rows) != 1 || val(rows[0], "b") != "hello world" {
		t.Errorf("rows = %v", rows)
	}
}

func TestJSONL(t *testing.T) {
	data := `{"id":1,"name":"a","tags":["x","y"],"gone":null,"ok":true}
not json

{"id":2.5,"name":"b"}
`
	s, err := Open(writeFile(t, "x.jsonl", []byte(data)), "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	rows, errs := collect(t, s)
	if len(rows) != 2 || len(errs) != 1 {
		t.Fatalf("rows=%d errs=%d", len(rows), len(errs))
	}
	r := rows[0]
	if val(r, "id") != "1" || val(r, "name") != "a" || val(r, "ok") != "true" {
		t.Errorf("scalars = %s %s %s", val(r, "id"), val(r, "name"), val(r, "ok"))
	}
	if val(r, "tags") != `["x","y"]` {
		t.Errorf("tags = %s", val(r, "tags"))
	}
	if v, ok := r["gone"]; !ok || v != nil {
		t.Error("null should be present as nil")
	}
	if val(rows[1], "id") != "2.5" {
		t.Errorf("id = %s", val(rows[1], "id"))
	}
}

func TestJSONLZstd(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	plain := []byte("{\"a\":\"1\"}\n{\"a\":\"2\"}\n")
	compressed := enc.EncodeAll(plain, nil)
	_ = enc.Close()

	s, err := Open(writeFile(t, "upload.bin", compressed), "dump.jsonl.zst")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if s.Format() != JSONLZstd {
		t.Errorf("format = %s", s.Format())
	}
	rows, errs := collect(t, s)
	if len(errs) != 0 || len(rows) != 2 || val(rows[1], "a") != "2" {
		t.Errorf("rows=%v errs=%v", rows, errs)
	}
}

func TestJSONLZstd_Corrupt(t *testing.T) {
	s, err := Open(writeFile(t, "x.jsonl.zst", bytes.Repeat([]byte{0xff}, 32)), "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	rows, errs := collect(t, s)
	if len(rows) != 0 || len(errs) == 0 {
		t.Errorf("rows=%d errs=%d", len(rows), len(errs))
	}
}

type parquetItem struct {
	Name  string   `parquet:"name"`
	Price *float64 `parquet:"price,optional"`
	Qty   int64    `parquet:"qty"`
}

func TestParquet(t *testing.T) {
	p := filepath.Join(t.TempDir(), "items.parquet")
	price := 9.5
	items := []parquetItem{
		{Name: "a", Price: &price, Qty: 3},
		{Name: "b", Qty: 4},
	}
	if err := parquet.WriteFile(p, items); err != nil {
		t.Fatalf("write parquet: %v", err)
	}

	s, err := Open(p, "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	rows, errs := collect(t, s)
	if len(errs) != 0 || len(rows) != 2 {
		t.Fatalf("rows=%d errs=%v", len(rows), errs)
	}
	if val(rows[0], "name") != "a" || val(rows[0], "price") != "9.5" || val(rows[0], "qty") != "3" {
		t.Errorf("row0 = %s %s %s", val(rows[0], "name"), val(rows[0], "price"), val(rows[0], "qty"))
	}
	if v, ok := rows[1]["price"]; !ok || v != nil {
		t.Error("null price should be present as nil")
	}
}

func TestSample(t *testing.T) {
	s, err := Open(writeFile(t, "x.csv", []byte("a\n1\n2\n3\n4\n")), "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	rows, err := s.Sample(context.Background(), 2)
	if err != nil || len(rows) != 2 {
		t.Errorf("sample = %d, %v", len(rows), err)
	}
}

func TestSample_OpenFailure(t *testing.T) {
	p := writeFile(t, "x.csv", []byte("a\n1\n"))
	s, err := Open(p, "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = os.Remove(p)
	if _, err := s.Sample(context.Background(), 10); err == nil {
		t.Error("expected error for removed file")
	}
}

func TestOpen_Errors(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.csv"), ""); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Open(writeFile(t, "x.xls", nil), ""); !errors.Is(err, domain.ErrUnsupportedSource) {
		t.Errorf("got %v", err)
	}
}

func TestRows_Cancelled(t *testing.T) {
	s, err := Open(writeFile(t, "x.csv", []byte("a\n1\n2\n")), "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, err := range s.Rows(ctx) {
		if !errors.Is(err, context.Canceled) {
			t.Errorf("got %v, want context.Canceled", err)
		}
	}
}
