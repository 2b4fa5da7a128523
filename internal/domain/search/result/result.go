package result

import (
	"slices"

	"github.com/kailas-cloud/docdex/internal/domain/expansion"
)

// Hit is a single search hit.
type Hit struct {
	collection string
	id         string
	score      float64
	source     map[string]any
	highlight  map[string][]string
}

// New creates a search hit. A nil source becomes an empty map.
func New(collection, id string, score float64, source map[string]any, highlight map[string][]string) Hit {
	if source == nil {
		source = make(map[string]any)
	}
	return Hit{collection: collection, id: id, score: score, source: source, highlight: highlight}
}

// Collection returns the collection label the hit came from.
func (h *Hit) Collection() string { return h.collection }

// ID returns the document identifier.
func (h *Hit) ID() string { return h.id }

// Score returns the relevance score.
func (h *Hit) Score() float64 { return h.score }

// Source returns the document body, including attached expansions.
func (h *Hit) Source() map[string]any { return h.source }

// Highlight returns highlighted fragments per field.
func (h *Hit) Highlight() map[string][]string { return h.highlight }

// Keep drops source fields not listed in fields. Attached expansions stay.
func (h *Hit) Keep(fields []string) {
	for k := range h.source {
		if k != expansion.Namespace && !slices.Contains(fields, k) {
			delete(h.source, k)
		}
	}
}

// Attach stores v under the reserved expansion namespace as name.
func (h *Hit) Attach(name string, v any) {
	ns, ok := h.source[expansion.Namespace].(map[string]any)
	if !ok {
		ns = make(map[string]any)
		h.source[expansion.Namespace] = ns
	}
	ns[name] = v
}

// Expanded returns the value attached under name.
func (h *Hit) Expanded(name string) (any, bool) {
	ns, ok := h.source[expansion.Namespace].(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := ns[name]
	return v, ok
}

// Bucket is one terms aggregation bucket.
type Bucket struct {
	Key   string
	Count int
}

// Page is the outcome of one search call.
type Page struct {
	Total        int
	Hits         []Hit
	Aggregations map[string][]Bucket
	// Collections lists the labels that existed and were searched.
	Collections []string
}
