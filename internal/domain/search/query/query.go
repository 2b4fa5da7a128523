// Package query defines the boolean search query AST shared by the condition
// compiler and the backend drivers. Every node marshals to the
// Elasticsearch query DSL shape.
package query

import (
	"encoding/json"
	"fmt"
)

// Kind names a query node type.
type Kind string

// Query node kinds.
const (
	KindTerm        Kind = "term"
	KindTerms       Kind = "terms"
	KindMatch       Kind = "match"
	KindMatchPhrase Kind = "match_phrase"
	KindWildcard    Kind = "wildcard"
	KindPrefix      Kind = "prefix"
	KindRange       Kind = "range"
	KindExists      Kind = "exists"
	KindMatchAll    Kind = "match_all"
	KindQueryString Kind = "query_string"
	KindBool        Kind = "bool"
)

// Query is a node of the boolean query tree.
type Query interface {
	Kind() Kind
	json.Marshaler
}

// Term is an exact-value match.
type Term struct {
	Field string
	Value any
}

// Terms matches any of the listed exact values.
type Terms struct {
	Field  string
	Values []any
}

// Match is an analyzed full-text match on one field.
type Match struct {
	Field string
	Text  string
}

// MatchPhrase matches an exact token sequence.
type MatchPhrase struct {
	Field string
	Text  string
}

// Wildcard matches a pattern where * and ? are wildcards.
type Wildcard struct {
	Field   string
	Pattern string
}

// Prefix matches values starting with Prefix.
type Prefix struct {
	Field  string
	Prefix string
}

// Range bounds a field. Nil bounds are open. Bounds may be numbers or date strings.
type Range struct {
	Field string
	GT    any
	GTE   any
	LT    any
	LTE   any
}

// IsOpen reports whether no bound is set.
func (r Range) IsOpen() bool {
	return r.GT == nil && r.GTE == nil && r.LT == nil && r.LTE == nil
}

// Exists matches documents having a non-null value for Field.
type Exists struct {
	Field string
}

// MatchAll matches every document.
type MatchAll struct{}

// QueryString is free text. An empty Field searches all fields.
type QueryString struct {
	Field string
	Text  string
}

// Bool combines clauses. Filter clauses constrain without scoring.
type Bool struct {
	Must               []Query
	Should             []Query
	MustNot            []Query
	Filter             []Query
	MinimumShouldMatch int
}

// IsEmpty reports whether the group has no clauses.
func (b Bool) IsEmpty() bool {
	return len(b.Must) == 0 && len(b.Should) == 0 && len(b.MustNot) == 0 && len(b.Filter) == 0
}

// Not wraps q in a bool must_not.
func Not(q Query) Bool { return Bool{MustNot: []Query{q}} }

func (Term) Kind() Kind        { return KindTerm }
func (Terms) Kind() Kind       { return KindTerms }
func (Match) Kind() Kind       { return KindMatch }
func (MatchPhrase) Kind() Kind { return KindMatchPhrase }
func (Wildcard) Kind() Kind    { return KindWildcard }
func (Prefix) Kind() Kind      { return KindPrefix }
func (Range) Kind() Kind       { return KindRange }
func (Exists) Kind() Kind      { return KindExists }
func (MatchAll) Kind() Kind    { return KindMatchAll }
func (QueryString) Kind() Kind { return KindQueryString }
func (Bool) Kind() Kind        { return KindBool }

func wrap(kind Kind, body any) ([]byte, error) {
	data, err := json.Marshal(map[Kind]any{kind: body})
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", kind, err)
	}
	return data, nil
}

// MarshalJSON implements json.Marshaler.
func (q Term) MarshalJSON() ([]byte, error) {
	return wrap(KindTerm, map[string]any{q.Field: q.Value})
}

// MarshalJSON implements json.Marshaler.
func (q Terms) MarshalJSON() ([]byte, error) {
	values := q.Values
	if values == nil {
		values = []any{}
	}
	return wrap(KindTerms, map[string]any{q.Field: values})
}

// MarshalJSON implements json.Marshaler.
func (q Match) MarshalJSON() ([]byte, error) {
	return wrap(KindMatch, map[string]any{q.Field: q.Text})
}

// MarshalJSON implements json.Marshaler.
func (q MatchPhrase) MarshalJSON() ([]byte, error) {
	return wrap(KindMatchPhrase, map[string]any{q.Field: q.Text})
}

// MarshalJSON implements json.Marshaler.
func (q Wildcard) MarshalJSON() ([]byte, error) {
	return wrap(KindWildcard, map[string]any{q.Field: map[string]string{"value": q.Pattern}})
}

// MarshalJSON implements json.Marshaler.
func (q Prefix) MarshalJSON() ([]byte, error) {
	return wrap(KindPrefix, map[string]any{q.Field: q.Prefix})
}

// MarshalJSON implements json.Marshaler.
func (q Range) MarshalJSON() ([]byte, error) {
	bounds := make(map[string]any, 2)
	if q.GT != nil {
		bounds["gt"] = q.GT
	}
	if q.GTE != nil {
		bounds["gte"] = q.GTE
	}
	if q.LT != nil {
		bounds["lt"] = q.LT
	}
	if q.LTE != nil {
		bounds["lte"] = q.LTE
	}
	return wrap(KindRange, map[string]any{q.Field: bounds})
}

// MarshalJSON implements json.Marshaler.
func (q Exists) MarshalJSON() ([]byte, error) {
	return wrap(KindExists, map[string]string{"field": q.Field})
}

// MarshalJSON implements json.Marshaler.
func (MatchAll) MarshalJSON() ([]byte, error) {
	return wrap(KindMatchAll, struct{}{})
}

// MarshalJSON implements json.Marshaler.
func (q QueryString) MarshalJSON() ([]byte, error) {
	body := map[string]any{"query": q.Text}
	if q.Field != "" {
		body["default_field"] = q.Field
	}
	return wrap(KindQueryString, body)
}

// MarshalJSON implements json.Marshaler.
func (q Bool) MarshalJSON() ([]byte, error) {
	body := make(map[string]any, 5)
	if len(q.Must) > 0 {
		body["must"] = q.Must
	}
	if len(q.Should) > 0 {
		body["should"] = q.Should
	}
	if len(q.MustNot) > 0 {
		body["must_not"] = q.MustNot
	}
	if len(q.Filter) > 0 {
		body["filter"] = q.Filter
	}
	if q.MinimumShouldMatch > 0 {
		body["minimum_should_match"] = q.MinimumShouldMatch
	}
	return wrap(KindBool, body)
}

// Walk visits q and every nested clause depth-first.
func Walk(q Query, fn func(Query)) {
	if q == nil {
		return
	}
	fn(q)
	b, ok := q.(Bool)
	if !ok {
		return
	}
	for _, group := range [][]Query{b.Must, b.Should, b.MustNot, b.Filter} {
		for _, c := range group {
			Walk(c, fn)
		}
	}
}
