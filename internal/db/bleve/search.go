package bleve

import (
	"context"
	"fmt"

	blevesearch "github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"

	"github.com/kailas-cloud/docdex/internal/db"
	"github.com/kailas-cloud/docdex/internal/domain/collection/field"
	"github.com/kailas-cloud/docdex/internal/domain/mapping"
)

// Search runs q over an index alias spanning every listed collection.
// When collections disagree on a field's type, the first collection's type wins.
func (s *Store) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if len(q.Collections) == 0 {
		return &db.SearchResult{}, nil
	}

	indexes := make([]blevesearch.Index, 0, len(q.Collections))
	var props []mapping.Property
	seen := make(map[string]bool)
	for _, name := range q.Collections {
		c, err := s.collection(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		indexes = append(indexes, c.index)
		for _, p := range c.mapping.Properties() {
			if !seen[p.Name] {
				seen[p.Name] = true
				props = append(props, p)
			}
		}
	}
	m := mapping.FromProperties(props)

	req := blevesearch.NewSearchRequestOptions(translate(m, q.Query), q.Size, q.From, false)
	req.Fields = []string{sourceField}
	req.SortBy(sortOrder(m, q.Sort))
	for _, agg := range q.Aggregations {
		req.AddFacet(agg.Name, blevesearch.NewFacetRequest(m.ExactField(agg.Field), agg.Size))
	}
	if len(q.Highlight) > 0 {
		req.Highlight = blevesearch.NewHighlight()
		for _, f := range q.Highlight {
			req.Highlight.AddField(f)
		}
	}

	var (
		res *blevesearch.SearchResult
		err error
	)
	if len(indexes) == 1 {
		res, err = indexes[0].SearchInContext(ctx, req)
	} else {
		res, err = blevesearch.NewIndexAlias(indexes...).SearchInContext(ctx, req)
	}
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	out := &db.SearchResult{
		Total: int(res.Total),
		Hits:  make([]db.SearchHit, 0, len(res.Hits)),
	}
	for _, h := range res.Hits {
		hit, err := toHit(h, q.Fields)
		if err != nil {
			return nil, err
		}
		if len(indexes) == 1 {
			hit.Collection = q.Collections[0]
		}
		out.Hits = append(out.Hits, hit)
	}
	if len(q.Aggregations) > 0 {
		out.Aggregations = make(map[string][]db.Bucket, len(q.Aggregations))
		for _, agg := range q.Aggregations {
			out.Aggregations[agg.Name] = buckets(res.Facets[agg.Name])
		}
	}
	return out, nil
}

// sortOrder maps sort fields to bleve sort keys. Text fields sort on their raw sub-field.
func sortOrder(m mapping.Mapping, order []db.SortField) []string {
	if len(order) == 0 {
		return []string{"-_score"}
	}
	keys := make([]string, 0, len(order)+1)
	for _, sf := range order {
		name := sf.Field
		if p, ok := m.Lookup(name); ok && p.Type == field.Text {
			name = p.ExactField()
		}
		if sf.Desc {
			name = "-" + name
		}
		keys = append(keys, name)
	}
	return append(keys, "-_score")
}

func toHit(h *search.DocumentMatch, fields []string) (db.SearchHit, error) {
	src, err := decodeSource(h.Fields[sourceField])
	if err != nil {
		return db.SearchHit{}, err
	}
	hit := db.SearchHit{
		Collection: h.Index,
		ID:         h.ID,
		Score:      h.Score,
		Source:     project(src, fields),
	}
	if len(h.Fragments) > 0 {
		hit.Highlight = make(map[string][]string, len(h.Fragments))
		for f, frags := range h.Fragments {
			hit.Highlight[f] = frags
		}
	}
	return hit, nil
}

func buckets(fr *search.FacetResult) []db.Bucket {
	if fr == nil || fr.Terms == nil {
		return []db.Bucket{}
	}
	terms := fr.Terms.Terms()
	out := make([]db.Bucket, 0, len(terms))
	for _, t := range terms {
		out = append(out, db.Bucket{Key: t.Term, Count: t.Count})
	}
	return out
}

func project(source map[string]any, fields []string) map[string]any {
	if len(fields) == 0 {
		return source
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := source[f]; ok {
			out[f] = v
		}
	}
	return out
}
