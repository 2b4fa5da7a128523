package bleve

import (
	"math"
	"strings"
	"time"

	blevesearch "github.com/blevesearch/bleve/v2"
	bquery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/spf13/cast"

	"github.com/kailas-cloud/docdex/internal/domain/collection/field"
	"github.com/kailas-cloud/docdex/internal/domain/mapping"
	"github.com/kailas-cloud/docdex/internal/domain/search/query"
)

// Date bounds representable in bleve's nanosecond date encoding.
var (
	minDate = time.Date(1678, 1, 1, 0, 0, 0, 0, time.UTC)
	maxDate = time.Date(2261, 12, 31, 0, 0, 0, 0, time.UTC)
)

// translate compiles the query AST into a bleve query. Field types come from m;
// unmapped fields fall back to behavior that suits dynamically indexed values.
func translate(m mapping.Mapping, q query.Query) bquery.Query {
	if q == nil {
		return blevesearch.NewMatchAllQuery()
	}
	t := translator{m: m}
	return t.node(q)
}

type translator struct {
	m mapping.Mapping
}

func (t translator) node(q query.Query) bquery.Query {
	switch n := q.(type) {
	case query.MatchAll:
		return blevesearch.NewMatchAllQuery()
	case query.Term:
		return t.term(n.Field, n.Value)
	case query.Terms:
		if len(n.Values) == 0 {
			return blevesearch.NewMatchNoneQuery()
		}
		alts := make([]bquery.Query, len(n.Values))
		for i, v := range n.Values {
			alts[i] = t.term(n.Field, v)
		}
		return blevesearch.NewDisjunctionQuery(alts...)
	case query.Match:
		return t.match(n.Field, n.Text, false)
	case query.MatchPhrase:
		return t.match(n.Field, n.Text, true)
	case query.Wildcard:
		return t.wildcard(n)
	case query.Prefix:
		return t.prefix(n)
	case query.Range:
		return t.rangeQuery(n)
	case query.Exists:
		return t.exists(n.Field)
	case query.QueryString:
		if strings.TrimSpace(n.Text) == "" {
			return blevesearch.NewMatchAllQuery()
		}
		return t.match(n.Field, n.Text, false)
	case query.Bool:
		return t.boolean(n)
	}
	return blevesearch.NewMatchNoneQuery()
}

func (t translator) fieldType(name string) (field.Type, bool) {
	p, ok := t.m.Lookup(name)
	if !ok {
		return "", false
	}
	return p.Type, true
}

func (t translator) term(name string, v any) bquery.Query {
	if name == "_id" {
		return blevesearch.NewDocIDQuery([]string{cast.ToString(v)})
	}
	exact := t.m.ExactField(name)
	ft, ok := t.fieldType(exact)
	if !ok {
		return dynamicTerm(name, v)
	}
	switch ft {
	case field.Long, field.Float:
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return blevesearch.NewMatchNoneQuery()
		}
		return numericRange(exact, &f, &f, true, true)
	case field.Date:
		ts, ok := mapping.ParseDate(v)
		if !ok {
			return blevesearch.NewMatchNoneQuery()
		}
		return dateRange(exact, ts, ts, true, true)
	case field.Keyword:
		tq := blevesearch.NewTermQuery(cast.ToString(v))
		tq.SetField(exact)
		return tq
	}
	pq := blevesearch.NewMatchPhraseQuery(cast.ToString(v))
	pq.SetField(exact)
	return pq
}

// dynamicTerm matches an unmapped field: numbers by value, strings as a phrase.
func dynamicTerm(name string, v any) bquery.Query {
	switch v.(type) {
	case int, int32, int64, float32, float64, uint, uint32, uint64:
		f := cast.ToFloat64(v)
		return numericRange(name, &f, &f, true, true)
	}
	pq := blevesearch.NewMatchPhraseQuery(cast.ToString(v))
	pq.SetField(name)
	return pq
}

func (t translator) match(name, text string, phrase bool) bquery.Query {
	ft, ok := t.fieldType(name)
	if ok && ft != field.Text {
		return t.term(name, text)
	}
	if phrase {
		pq := blevesearch.NewMatchPhraseQuery(text)
		pq.SetField(name)
		return pq
	}
	mq := blevesearch.NewMatchQuery(text)
	mq.SetField(name)
	return mq
}

func (t translator) wildcard(n query.Wildcard) bquery.Query {
	pattern := n.Pattern
	if ft, ok := t.fieldType(n.Field); !ok || ft == field.Text {
		pattern = strings.ToLower(pattern)
	}
	wq := blevesearch.NewWildcardQuery(pattern)
	wq.SetField(n.Field)
	return wq
}

func (t translator) prefix(n query.Prefix) bquery.Query {
	p := n.Prefix
	if ft, ok := t.fieldType(n.Field); !ok || ft == field.Text {
		p = strings.ToLower(p)
	}
	pq := blevesearch.NewPrefixQuery(p)
	pq.SetField(n.Field)
	return pq
}

func (t translator) rangeQuery(n query.Range) bquery.Query {
	if n.IsOpen() {
		return t.exists(n.Field)
	}
	lo, loIncl := n.GTE, true
	if n.GT != nil {
		lo, loIncl = n.GT, false
	}
	hi, hiIncl := n.LTE, true
	if n.LT != nil {
		hi, hiIncl = n.LT, false
	}

	ft, ok := t.fieldType(n.Field)
	if !ok {
		ft = guessType(lo, hi)
	}
	switch ft {
	case field.Long, field.Float:
		minV, okMin := optFloat(lo)
		maxV, okMax := optFloat(hi)
		if !okMin || !okMax {
			return blevesearch.NewMatchNoneQuery()
		}
		return numericRange(n.Field, minV, maxV, loIncl, hiIncl)
	case field.Date:
		start, okStart := optDate(lo)
		end, okEnd := optDate(hi)
		if !okStart || !okEnd {
			return blevesearch.NewMatchNoneQuery()
		}
		return dateRange(n.Field, start, end, loIncl, hiIncl)
	}
	exact := t.m.ExactField(n.Field)
	tq := blevesearch.NewTermRangeInclusiveQuery(cast.ToString(lo), cast.ToString(hi), &loIncl, &hiIncl)
	tq.SetField(exact)
	return tq
}

// guessType picks a range flavor for an unmapped field from its bounds.
func guessType(bounds ...any) field.Type {
	for _, b := range bounds {
		if b == nil {
			continue
		}
		if _, err := cast.ToFloat64E(b); err == nil {
			return field.Float
		}
		if _, ok := mapping.ParseDate(b); ok {
			return field.Date
		}
		return field.Keyword
	}
	return field.Keyword
}

func optFloat(v any) (*float64, bool) {
	if v == nil {
		return nil, true
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return nil, false
	}
	return &f, true
}

func optDate(v any) (time.Time, bool) {
	if v == nil {
		return time.Time{}, true
	}
	return mapping.ParseDate(v)
}

// exists matches any indexed value: a term of any shape, any number or any date.
func (t translator) exists(name string) bquery.Query {
	anyTerm := func(f string) bquery.Query {
		wq := blevesearch.NewWildcardQuery("*")
		wq.SetField(f)
		return wq
	}
	lo, hi := -math.MaxFloat64, math.MaxFloat64
	anyNumber := numericRange(name, &lo, &hi, true, true)
	anyDate := dateRange(name, minDate, maxDate, true, true)

	ft, ok := t.fieldType(name)
	if !ok {
		return blevesearch.NewDisjunctionQuery(anyTerm(name), anyNumber, anyDate)
	}
	switch ft {
	case field.Long, field.Float:
		return anyNumber
	case field.Date:
		return anyDate
	}
	return anyTerm(t.m.ExactField(name))
}

func (t translator) boolean(b query.Bool) bquery.Query {
	if b.IsEmpty() {
		return blevesearch.NewMatchAllQuery()
	}
	must := make([]bquery.Query, 0, len(b.Must)+len(b.Filter))
	for _, c := range b.Must {
		must = append(must, t.node(c))
	}
	for _, c := range b.Filter {
		must = append(must, t.node(c))
	}
	should := make([]bquery.Query, 0, len(b.Should))
	for _, c := range b.Should {
		should = append(should, t.node(c))
	}
	mustNot := make([]bquery.Query, 0, len(b.MustNot))
	for _, c := range b.MustNot {
		mustNot = append(mustNot, t.node(c))
	}

	bq := bquery.NewBooleanQuery(nonEmpty(must), nonEmpty(should), nonEmpty(mustNot))
	if len(should) > 0 && b.MinimumShouldMatch > 0 {
		bq.SetMinShould(float64(b.MinimumShouldMatch))
	}
	return bq
}

func nonEmpty(qs []bquery.Query) []bquery.Query {
	if len(qs) == 0 {
		return nil
	}
	return qs
}

func numericRange(name string, lo, hi *float64, loIncl, hiIncl bool) bquery.Query {
	q := blevesearch.NewNumericRangeInclusiveQuery(lo, hi, &loIncl, &hiIncl)
	q.SetField(name)
	return q
}

func dateRange(name string, start, end time.Time, startIncl, endIncl bool) bquery.Query {
	q := blevesearch.NewDateRangeInclusiveQuery(start, end, &startIncl, &endIncl)
	q.SetField(name)
	return q
}
