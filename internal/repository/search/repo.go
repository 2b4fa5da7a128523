package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/docdex/internal/db"
	"github.com/kailas-cloud/docdex/internal/domain"
	domcol "github.com/kailas-cloud/docdex/internal/domain/collection"
	"github.com/kailas-cloud/docdex/internal/domain/search/query"
	"github.com/kailas-cloud/docdex/internal/domain/search/request"
	"github.com/kailas-cloud/docdex/internal/domain/search/result"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
}

// target is one collection to search: its physical name and the label
// reported back on hits.
type target struct {
	name  string
	label string
}

// Repo implements usecase/search.Repository and usecase/expand.Repository.
type Repo struct {
	store store
}

// New creates a search repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Search runs q across cols with the paging, sort, projection,
// aggregation and highlight options of req. Hits carry collection labels.
func (r *Repo) Search(
	ctx context.Context, cols []domcol.Collection, q query.Query, req *request.Request,
) (result.Page, error) {
	if len(cols) == 0 {
		return result.Page{}, nil
	}
	targets := make([]target, len(cols))
	for i, c := range cols {
		targets[i] = target{name: c.Name(), label: c.Label()}
	}

	sq := &db.SearchQuery{
		Collections: names(targets),
		Query:       q,
		From:        req.From(),
		Size:        req.Size(),
		Fields:      req.FetchFields(),
		Highlight:   req.Highlight(),
	}
	if s := req.Sort(); s != nil {
		sq.Sort = []db.SortField{{Field: s.Field, Desc: s.Order == request.Desc}}
	}
	for _, a := range req.Aggregations() {
		sq.Aggregations = append(sq.Aggregations, db.TermsAggregation{Name: a.Name, Field: a.Field, Size: a.Size})
	}

	sr, err := r.store.Search(ctx, sq)
	if err != nil {
		return result.Page{}, fmt.Errorf("search %v: %w", sq.Collections, mapErr(err))
	}
	return toPage(sr, targets), nil
}

// Lookup fetches documents of one physical collection whose field matches
// any key. The result is sized to the key count. A non-empty projection
// always includes field so callers can key the hits.
func (r *Repo) Lookup(
	ctx context.Context, collection, field string, keys []any, fields []string,
) ([]result.Hit, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	if len(fields) > 0 && !contains(fields, field) {
		fields = append(append(make([]string, 0, len(fields)+1), fields...), field)
	}

	sq := &db.SearchQuery{
		Collections: []string{collection},
		Query:       query.Terms{Field: field, Values: keys},
		Size:        len(keys),
		Fields:      fields,
	}
	sr, err := r.store.Search(ctx, sq)
	if err != nil {
		return nil, fmt.Errorf("lookup %s.%s: %w", collection, field, mapErr(err))
	}
	return toPage(sr, []target{{name: collection, label: collection}}).Hits, nil
}

func toPage(sr *db.SearchResult, targets []target) result.Page {
	labels := make(map[string]string, len(targets))
	page := result.Page{Collections: make([]string, 0, len(targets))}
	for _, t := range targets {
		labels[t.name] = t.label
		page.Collections = append(page.Collections, t.label)
	}
	if sr == nil {
		return page
	}

	page.Total = sr.Total
	page.Hits = make([]result.Hit, 0, len(sr.Hits))
	for _, h := range sr.Hits {
		label, ok := labels[h.Collection]
		if !ok {
			label = h.Collection
		}
		page.Hits = append(page.Hits, result.New(label, h.ID, h.Score, h.Source, h.Highlight))
	}
	if len(sr.Aggregations) > 0 {
		page.Aggregations = make(map[string][]result.Bucket, len(sr.Aggregations))
		for name, bs := range sr.Aggregations {
			out := make([]result.Bucket, len(bs))
			for i, b := range bs {
				out[i] = result.Bucket{Key: b.Key, Count: b.Count}
			}
			page.Aggregations[name] = out
		}
	}
	return page
}

func names(targets []target) []string {
	out := make([]string, len(targets))
	for i, t := range targets {
		out[i] = t.name
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func mapErr(err error) error {
	if errors.Is(err, db.ErrCollectionNotFound) {
		return domain.ErrCollectionNotFound
	}
	return err
}
