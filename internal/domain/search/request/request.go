package request

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kailas-cloud/docdex/internal/domain"
	"github.com/kailas-cloud/docdex/internal/domain/condition"
	"github.com/kailas-cloud/docdex/internal/domain/expansion"
)

// Search parameter limits.
const (
	// MaxTextLength is the maximum allowed free-text query length.
	MaxTextLength = 4096
	DefaultSize   = 20
	MaxSize       = 500
	MaxAggSize    = 100
	DefaultAgg    = 10
)

// Order is a sort direction.
type Order string

// Sort directions.
const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// Sort orders hits by one field.
type Sort struct {
	Field string
	Order Order
}

// Aggregation requests terms buckets over a field.
type Aggregation struct {
	Name  string
	Field string
	Size  int
}

// Params is the unvalidated input to New.
type Params struct {
	Collections  []string
	Condition    condition.Group
	Text         string
	From         int
	Size         int
	Sort         *Sort
	Fields       []string
	Aggregations []Aggregation
	Highlight    []string
	Expand       []expansion.Spec
}

// Request is a validated multi-collection search.
type Request struct {
	collections  []string
	cond         condition.Group
	text         string
	from         int
	size         int
	sort         *Sort
	fields       []string
	aggregations []Aggregation
	highlight    []string
	expand       []expansion.Spec
}

// New validates and normalizes search parameters.
// size is clamped to [1, MaxSize] (0 means DefaultSize), negative from becomes 0,
// sort order defaults to descending.
func New(p Params) (Request, error) {
	if len(p.Text) > MaxTextLength {
		return Request{}, fmt.Errorf("text too long (max %d chars): %w", MaxTextLength, domain.ErrInvalidRequest)
	}
	if err := p.Condition.Validate(); err != nil {
		return Request{}, err
	}

	collections := p.Collections
	if len(collections) == 0 {
		collections = []string{""}
	}

	size := p.Size
	switch {
	case size == 0:
		size = DefaultSize
	case size < 1:
		size = 1
	case size > MaxSize:
		size = MaxSize
	}

	var sort *Sort
	if p.Sort != nil && strings.TrimSpace(p.Sort.Field) != "" {
		order := Order(strings.ToLower(string(p.Sort.Order)))
		switch order {
		case "":
			order = Desc
		case Asc, Desc:
		default:
			return Request{}, fmt.Errorf("invalid sort order %q: %w", p.Sort.Order, domain.ErrInvalidRequest)
		}
		sort = &Sort{Field: strings.TrimSpace(p.Sort.Field), Order: order}
	}

	aggs := make([]Aggregation, 0, len(p.Aggregations))
	seen := make(map[string]bool, len(p.Aggregations))
	for _, a := range p.Aggregations {
		if a.Field == "" {
			return Request{}, fmt.Errorf("aggregation field is required: %w", domain.ErrInvalidRequest)
		}
		if a.Name == "" {
			a.Name = a.Field
		}
		if seen[a.Name] {
			return Request{}, fmt.Errorf("duplicate aggregation %q: %w", a.Name, domain.ErrInvalidRequest)
		}
		seen[a.Name] = true
		if a.Size <= 0 {
			a.Size = DefaultAgg
		}
		a.Size = min(a.Size, MaxAggSize)
		aggs = append(aggs, a)
	}

	return Request{
		collections:  collections,
		cond:         p.Condition,
		text:         strings.TrimSpace(p.Text),
		from:         max(p.From, 0),
		size:         size,
		sort:         sort,
		fields:       p.Fields,
		aggregations: aggs,
		highlight:    p.Highlight,
		expand:       p.Expand,
	}, nil
}

// Collections returns the requested collection labels.
func (r *Request) Collections() []string { return r.collections }

// Condition returns the boolean condition group.
func (r *Request) Condition() condition.Group { return r.cond }

// Text returns the optional free-text term.
func (r *Request) Text() string { return r.text }

// From returns the hit offset.
func (r *Request) From() int { return r.from }

// Size returns the page size.
func (r *Request) Size() int { return r.size }

// Sort returns the sort, or nil for relevance order.
func (r *Request) Sort() *Sort { return r.sort }

// Fields returns the source projection.
func (r *Request) Fields() []string { return r.fields }

// FetchFields is the projection sent to the backend: Fields plus the
// from_field of every expansion. Nil means the full source.
func (r *Request) FetchFields() []string {
	if len(r.fields) == 0 {
		return nil
	}
	out := slices.Clone(r.fields)
	for _, spec := range r.expand {
		if !slices.Contains(out, spec.FromField()) {
			out = append(out, spec.FromField())
		}
	}
	return out
}

// Aggregations returns the terms aggregations.
func (r *Request) Aggregations() []Aggregation { return r.aggregations }

// Highlight returns fields to highlight.
func (r *Request) Highlight() []string { return r.highlight }

// Expand returns expansion specs in application order.
func (r *Request) Expand() []expansion.Spec { return r.expand }
