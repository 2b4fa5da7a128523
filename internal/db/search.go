package db

import "github.com/kailas-cloud/docdex/internal/domain/search/query"

// SortField orders hits by one field.
type SortField struct {
	Field string
	Desc  bool
}

// TermsAggregation counts the most frequent values of a field.
type TermsAggregation struct {
	Name  string
	Field string
	Size  int
}

// SearchQuery is the input for a multi-collection search.
type SearchQuery struct {
	Collections  []string
	Query        query.Query
	From         int
	Size         int
	Sort         []SortField
	Fields       []string // source projection; empty means the whole document
	Aggregations []TermsAggregation
	Highlight    []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total        int
	Hits         []SearchHit
	Aggregations map[string][]Bucket
}

// SearchHit is a single document hit from a search.
type SearchHit struct {
	Collection string
	ID         string
	Score      float64
	Source     map[string]any
	Highlight  map[string][]string
}

// Bucket is one terms aggregation bucket.
type Bucket struct {
	Key   string
	Count int
}
