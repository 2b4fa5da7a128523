package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/rueidis"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/docdex/internal/db"
	"github.com/kailas-cloud/docdex/internal/domain/collection/field"
	"github.com/kailas-cloud/docdex/internal/domain/mapping"
)

// Search runs q against every listed collection concurrently and merges the pages.
// Each index returns its first From+Size hits so the merged window is exact.
func (s *Store) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if len(q.Collections) == 0 {
		return &db.SearchResult{}, nil
	}
	if len(q.Aggregations) > 0 || len(q.Highlight) > 0 {
		s.logger.Debug("aggregations and highlight are not supported by the redis backend",
			zap.Int("aggregations", len(q.Aggregations)),
			zap.Int("highlight_fields", len(q.Highlight)),
		)
	}

	window := q.From + q.Size
	parts := make([]*db.SearchResult, len(q.Collections))

	g, gctx := errgroup.WithContext(ctx)
	for i, coll := range q.Collections {
		g.Go(func() error {
			res, err := s.searchOne(gctx, coll, q, window)
			if err != nil {
				return err
			}
			parts[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &db.SearchResult{}
	for _, p := range parts {
		out.Total += p.Total
		out.Hits = append(out.Hits, p.Hits...)
	}
	sortHits(out.Hits, q.Sort)

	from := min(q.From, len(out.Hits))
	to := min(from+q.Size, len(out.Hits))
	out.Hits = out.Hits[from:to]
	for i := range out.Hits {
		out.Hits[i].Source = project(out.Hits[i].Source, q.Fields)
	}
	return out, nil
}

func (s *Store) searchOne(ctx context.Context, coll string, q *db.SearchQuery, window int) (*db.SearchResult, error) {
	m, err := s.mappingFor(ctx, coll)
	if err != nil {
		return nil, err
	}
	l := newLayout(m)

	args := []string{s.indexName(coll), buildQuery(l, m, q.Query), "WITHSCORES", "RETURN", "1", "$"}
	if len(q.Sort) > 0 {
		if alias, ok := sortAlias(l, q.Sort[0].Field); ok {
			dir := "ASC"
			if q.Sort[0].Desc {
				dir = "DESC"
			}
			args = append(args, "SORTBY", alias, dir)
		}
	}
	args = append(args, "LIMIT", "0", strconv.Itoa(window), "DIALECT", "2")

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isUnknownIndex(err) {
			return nil, fmt.Errorf("%s: %w", coll, db.ErrCollectionNotFound)
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	return parseSearchResult(raw, coll, s.docPrefix(coll))
}

// sortAlias returns the sortable attribute for a field: the TAG alias for text fields.
func sortAlias(l layout, name string) (string, bool) {
	alias, ft, ok := l.resolve(name)
	if !ok {
		return "", false
	}
	if ft == field.Text {
		if raw, _, ok := l.resolve(name + "." + mapping.RawSubfield); ok {
			return raw, true
		}
		return "", false
	}
	return alias, true
}

// parseSearchResult decodes a WITHSCORES reply:
// [total, key1, score1, fields1, key2, score2, fields2, ...].
func parseSearchResult(raw []rueidis.RedisMessage, coll, keyPrefix string) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	hits := make([]db.SearchHit, 0, (len(raw)-1)/3)
	for i := 1; i+2 < len(raw); i += 3 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		scoreStr, err := raw[i+1].ToString()
		if err != nil {
			continue
		}
		score, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			continue
		}
		fields, err := raw[i+2].ToArray()
		if err != nil {
			continue
		}
		source, err := decodeSource(parseFieldPairs(fields)["$"])
		if err != nil {
			continue
		}
		hits = append(hits, db.SearchHit{
			Collection: coll,
			ID:         strings.TrimPrefix(key, keyPrefix),
			Score:      score,
			Source:     source,
		})
	}

	return &db.SearchResult{Total: int(total), Hits: hits}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// decodeSource accepts both a bare document and the single-element array JSONPath form.
func decodeSource(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "[") {
		var arr []json.RawMessage
		if err := json.Unmarshal([]byte(raw), &arr); err != nil || len(arr) == 0 {
			return nil, fmt.Errorf("decode source array: %w", err)
		}
		raw = string(arr[0])
	}
	return decodeDocument(raw)
}

// sortHits orders merged hits by the first sort field, or by score when unsorted.
// Hits lacking the sort value go last; ties keep collection order.
func sortHits(hits []db.SearchHit, order []db.SortField) {
	if len(order) == 0 {
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
		return
	}
	sf := order[0]
	sort.SliceStable(hits, func(i, j int) bool {
		a, aok := hits[i].Source[sf.Field]
		b, bok := hits[j].Source[sf.Field]
		if !aok || !bok {
			return aok && !bok
		}
		c := compareValues(a, b)
		if sf.Desc {
			return c > 0
		}
		return c < 0
	})
}

func compareValues(a, b any) int {
	fa, errA := cast.ToFloat64E(a)
	fb, errB := cast.ToFloat64E(b)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	if ta, ok := mapping.ParseDate(a); ok {
		if tb, ok := mapping.ParseDate(b); ok {
			return ta.Compare(tb)
		}
	}
	return strings.Compare(cast.ToString(a), cast.ToString(b))
}

func project(source map[string]any, fields []string) map[string]any {
	if len(fields) == 0 || source == nil {
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
