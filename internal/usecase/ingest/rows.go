package ingest

import (
	"context"
	"fmt"
	"iter"
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/docdex/internal/domain/collection/field"
	domdoc "github.com/kailas-cloud/docdex/internal/domain/document"
	"github.com/kailas-cloud/docdex/internal/domain/schema"
)

// documents turns source rows into documents. Values of numeric fields are
// parsed per the inferred type; a value that does not parse becomes null and
// the row is kept. idField, when set, names the column holding document ids.
func documents(
	ctx context.Context, src Source, sch schema.Schema, idField string,
) iter.Seq2[domdoc.Document, error] {
	return func(yield func(domdoc.Document, error) bool) {
		for row, err := range src.Rows(ctx) {
			if err != nil {
				if !yield(domdoc.Document{}, err) {
					return
				}
				continue
			}
			if !yield(toDocument(row, sch, idField)) {
				return
			}
		}
	}
}

func toDocument(row map[string]*string, sch schema.Schema, idField string) (domdoc.Document, error) {
	body := make(map[string]any, len(row))
	for k, v := range row {
		if v == nil {
			body[k] = nil
			continue
		}
		ft, _ := sch.Lookup(k)
		body[k] = coerce(*v, ft)
	}

	var id string
	if idField != "" {
		v, ok := row[idField]
		if !ok {
			return domdoc.Document{}, fmt.Errorf("id column %q missing", idField)
		}
		if v != nil {
			id = strings.TrimSpace(*v)
		}
	}
	return domdoc.New(id, body)
}

// hasColumn reports whether any sampled row carries name. Unlike the
// inferred schema, it also sees internal "_" columns and columns past the field cap.
func hasColumn(rows []map[string]*string, name string) bool {
	for _, row := range rows {
		if _, ok := row[name]; ok {
			return true
		}
	}
	return false
}

// coerce converts a raw value for a field of type ft. Only numeric types are
// converted; other values pass through unchanged.
func coerce(v string, ft field.Type) any {
	if !ft.IsNumeric() {
		return v
	}
	s := strings.TrimSpace(v)
	if schema.IsNullLiteral(s) {
		return nil
	}
	if ft == field.Long {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil
	}
	// a fractional value in a long column keeps its precision
	if ft == field.Long && f == math.Trunc(f) && math.Abs(f) < math.MaxInt64 {
		return int64(f)
	}
	return f
}
