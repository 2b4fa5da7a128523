package docdex

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/docdex/internal/domain/condition"
	"github.com/kailas-cloud/docdex/internal/domain/expansion"
	"github.com/kailas-cloud/docdex/internal/domain/search/request"
	"github.com/kailas-cloud/docdex/internal/domain/search/result"
)

// SearchBuilder is a fluent builder for one tenant search.
type SearchBuilder struct {
	client *Client
	tenant string

	collections []string
	group       condition.Group
	text        string
	from, size  int
	sort        *request.Sort
	fields      []string
	aggs        []request.Aggregation
	highlight   []string
	expand      []expansionArgs
}

type expansionArgs struct {
	name, target, from, to string
	many                   bool
	fields                 []string
}

// Search starts a search for tenant.
func (c *Client) Search(tenant string) *SearchBuilder {
	return &SearchBuilder{client: c, tenant: tenant}
}

// In adds collection labels to search. No labels means the default collection.
func (b *SearchBuilder) In(collections ...string) *SearchBuilder {
	b.collections = append(b.collections, collections...)
	return b
}

// Where adds an exact-match filter.
func (b *SearchBuilder) Where(field string, value any) *SearchBuilder {
	b.group.Filters = append(b.group.Filters, condition.Condition{Field: field, Op: condition.OpEq, Value: value})
	return b
}

// WhereIn adds a filter matching any of values.
func (b *SearchBuilder) WhereIn(field string, values ...any) *SearchBuilder {
	b.group.Filters = append(b.group.Filters, condition.Condition{Field: field, Op: condition.OpIn, Values: values})
	return b
}

// Between adds an inclusive range filter. A nil bound is open.
func (b *SearchBuilder) Between(field string, lo, hi any) *SearchBuilder {
	b.group.Filters = append(b.group.Filters, condition.Condition{Field: field, Op: condition.OpRange, GTE: lo, LTE: hi})
	return b
}

// Not excludes documents matching the condition.
func (b *SearchBuilder) Not(c Condition) *SearchBuilder {
	b.group.None = append(b.group.None, c)
	return b
}

// Match adds a scored condition.
func (b *SearchBuilder) Match(c Condition) *SearchBuilder {
	b.group.All = append(b.group.All, c)
	return b
}

// Condition replaces the builder's condition group.
func (b *SearchBuilder) Condition(g Group) *SearchBuilder {
	b.group = g
	return b
}

// Text sets a free-text query over all fields.
func (b *SearchBuilder) Text(q string) *SearchBuilder {
	b.text = q
	return b
}

// Offset skips the first n hits.
func (b *SearchBuilder) Offset(n int) *SearchBuilder {
	b.from = n
	return b
}

// Limit sets the page size.
func (b *SearchBuilder) Limit(n int) *SearchBuilder {
	b.size = n
	return b
}

// SortBy orders hits by field.
func (b *SearchBuilder) SortBy(field string, desc bool) *SearchBuilder {
	order := request.Asc
	if desc {
		order = request.Desc
	}
	b.sort = &request.Sort{Field: field, Order: order}
	return b
}

// Fields projects the returned sources.
func (b *SearchBuilder) Fields(fields ...string) *SearchBuilder {
	b.fields = append(b.fields, fields...)
	return b
}

// Terms requests a terms aggregation named name over field.
func (b *SearchBuilder) Terms(name, field string, size int) *SearchBuilder {
	b.aggs = append(b.aggs, request.Aggregation{Name: name, Field: field, Size: size})
	return b
}

// Highlight requests highlighted fragments for fields.
func (b *SearchBuilder) Highlight(fields ...string) *SearchBuilder {
	b.highlight = append(b.highlight, fields...)
	return b
}

// Expand attaches the document of target whose toField equals each hit's
// fromField, under name. An empty toField means "id".
func (b *SearchBuilder) Expand(name, target, fromField, toField string, fields ...string) *SearchBuilder {
	b.expand = append(b.expand, expansionArgs{name: name, target: target, from: fromField, to: toField, fields: fields})
	return b
}

// ExpandMany is Expand for list-valued fromFields; every match is attached.
func (b *SearchBuilder) ExpandMany(name, target, fromField, toField string, fields ...string) *SearchBuilder {
	b.expand = append(b.expand, expansionArgs{
		name: name, target: target, from: fromField, to: toField, many: true, fields: fields,
	})
	return b
}

// Do executes the search.
func (b *SearchBuilder) Do(ctx context.Context) (Page, error) {
	specs := make([]expansion.Spec, 0, len(b.expand))
	for _, e := range b.expand {
		spec, err := expansion.New(e.name, e.target, e.from, e.to, e.many, e.fields)
		if err != nil {
			return Page{}, fmt.Errorf("search: %w", err)
		}
		specs = append(specs, spec)
	}

	req, err := request.New(request.Params{
		Collections:  b.collections,
		Condition:    b.group,
		Text:         b.text,
		From:         b.from,
		Size:         b.size,
		Sort:         b.sort,
		Fields:       b.fields,
		Aggregations: b.aggs,
		Highlight:    b.highlight,
		Expand:       specs,
	})
	if err != nil {
		return Page{}, fmt.Errorf("search: %w", err)
	}

	page, err := b.client.searchSvc.Search(b.client.withLogger(ctx), b.tenant, &req)
	if err != nil {
		return Page{}, fmt.Errorf("search: %w", err)
	}
	return fromPage(page), nil
}

func fromPage(p result.Page) Page {
	out := Page{
		Total:       p.Total,
		Hits:        make([]Hit, len(p.Hits)),
		Collections: p.Collections,
	}
	for i := range p.Hits {
		h := &p.Hits[i]
		out.Hits[i] = Hit{
			Collection: h.Collection(),
			ID:         h.ID(),
			Score:      h.Score(),
			Source:     h.Source(),
			Highlight:  h.Highlight(),
		}
	}
	if len(p.Aggregations) > 0 {
		out.Aggregations = make(map[string][]Bucket, len(p.Aggregations))
		for name, bs := range p.Aggregations {
			buckets := make([]Bucket, len(bs))
			for i, bk := range bs {
				buckets[i] = Bucket{Key: bk.Key, Count: bk.Count}
			}
			out.Aggregations[name] = buckets
		}
	}
	return out
}
