package bleve

import (
	"strings"
	"time"

	blevesearch "github.com/blevesearch/bleve/v2"
	bmapping "github.com/blevesearch/bleve/v2/mapping"
	"github.com/spf13/cast"

	"github.com/kailas-cloud/docdex/internal/domain/collection/field"
	"github.com/kailas-cloud/docdex/internal/domain/mapping"
)

// sourceField holds the original document as stored, unindexed JSON.
const sourceField = "__source"

// buildIndexMapping converts a document mapping into a bleve index mapping.
// Unmapped fields are indexed dynamically but never stored.
func buildIndexMapping(m mapping.Mapping) *bmapping.IndexMappingImpl {
	im := blevesearch.NewIndexMapping()
	im.DefaultAnalyzer = "standard"
	im.StoreDynamic = false
	im.IndexDynamic = true
	im.DocValuesDynamic = true

	doc := blevesearch.NewDocumentMapping()

	src := blevesearch.NewTextFieldMapping()
	src.Index = false
	src.Store = true
	src.IncludeInAll = false
	src.IncludeTermVectors = false
	src.DocValues = false
	doc.AddFieldMappingsAt(sourceField, src)

	for _, p := range m.Properties() {
		doc.AddFieldMappingsAt(p.Name, fieldMappings(p)...)
	}

	im.DefaultMapping = doc
	return im
}

func fieldMappings(p mapping.Property) []*bmapping.FieldMapping {
	switch p.Type {
	case field.Long, field.Float:
		fm := blevesearch.NewNumericFieldMapping()
		fm.Store = false
		return []*bmapping.FieldMapping{fm}
	case field.Date:
		fm := blevesearch.NewDateTimeFieldMapping()
		fm.Store = false
		return []*bmapping.FieldMapping{fm}
	case field.Keyword:
		return []*bmapping.FieldMapping{keywordField("")}
	}

	text := blevesearch.NewTextFieldMapping()
	text.Analyzer = "standard"
	text.Store = true // required by the highlighter
	text.IncludeTermVectors = true
	if !p.Raw {
		return []*bmapping.FieldMapping{text}
	}
	return []*bmapping.FieldMapping{text, keywordField(p.ExactField())}
}

func keywordField(name string) *bmapping.FieldMapping {
	fm := blevesearch.NewTextFieldMapping()
	fm.Name = name
	fm.Analyzer = "keyword"
	fm.Store = false
	fm.IncludeInAll = false
	fm.IncludeTermVectors = false
	return fm
}

// indexable converts a document body into the value bleve indexes.
// Mapped values are coerced to the field type; values that cannot be coerced are
// left out of the index but kept in the source.
func indexable(m mapping.Mapping, body map[string]any, source string) map[string]any {
	out := make(map[string]any, len(body)+1)
	for k, v := range body {
		if v == nil {
			continue
		}
		p, ok := m.Lookup(k)
		if !ok {
			// "_" names collide with bleve's internal fields; they stay source-only
			if !strings.HasPrefix(k, "_") {
				out[k] = v
			}
			continue
		}
		if cv, ok := coerce(p.Type, v); ok {
			out[k] = cv
		}
	}
	out[sourceField] = source
	return out
}

func coerce(t field.Type, v any) (any, bool) {
	switch t {
	case field.Long, field.Float:
		f, err := cast.ToFloat64E(v)
		return f, err == nil
	case field.Date:
		ts, ok := mapping.ParseDate(v)
		if !ok {
			return nil, false
		}
		return ts.Format(time.RFC3339Nano), true
	case field.Keyword, field.Text:
		switch x := v.(type) {
		case string:
			return x, true
		case []any:
			vals := make([]string, 0, len(x))
			for _, e := range x {
				if s, err := cast.ToStringE(e); err == nil {
					vals = append(vals, s)
				}
			}
			return vals, true
		}
		s, err := cast.ToStringE(v)
		return s, err == nil
	}
	return v, true
}
