package chi

import (
	"time"

	"github.com/kailas-cloud/docdex/internal/domain/condition"
	domjob "github.com/kailas-cloud/docdex/internal/domain/job"
)

// ErrorResponseCode is a machine-readable error code.
type ErrorResponseCode string

// Error codes returned by the API.
const (
	ErrorResponseCodeBadRequest         ErrorResponseCode = "bad_request"
	ErrorResponseCodeUnauthorized       ErrorResponseCode = "unauthorized"
	ErrorResponseCodeForbidden          ErrorResponseCode = "forbidden"
	ErrorResponseCodeValidationFailed   ErrorResponseCode = "validation_failed"
	ErrorResponseCodeInvalidCondition   ErrorResponseCode = "invalid_condition"
	ErrorResponseCodeInvalidTenant      ErrorResponseCode = "invalid_tenant"
	ErrorResponseCodeCollectionNotFound ErrorResponseCode = "collection_not_found"
	ErrorResponseCodeDocumentNotFound   ErrorResponseCode = "document_not_found"
	ErrorResponseCodeJobNotFound        ErrorResponseCode = "job_not_found"
	ErrorResponseCodeNotFound           ErrorResponseCode = "not_found"
	ErrorResponseCodeAlreadyExists      ErrorResponseCode = "already_exists"
	ErrorResponseCodeUnsupportedSource  ErrorResponseCode = "unsupported_source"
	ErrorResponseCodeBackendUnavailable ErrorResponseCode = "backend_unavailable"
	ErrorResponseCodeInternalError      ErrorResponseCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// SortSpec orders hits by one field.
type SortSpec struct {
	Field string `json:"field"`
	Order string `json:"order,omitempty"`
}

// AggregationSpec requests terms buckets.
type AggregationSpec struct {
	Name  string `json:"name,omitempty"`
	Field string `json:"field"`
	Size  int    `json:"size,omitempty"`
}

// ExpandSpec attaches related documents from another collection.
type ExpandSpec struct {
	Name       string   `json:"name"`
	Collection string   `json:"collection"`
	FromField  string   `json:"from_field"`
	ToField    string   `json:"to_field,omitempty"`
	Many       bool     `json:"many,omitempty"`
	Fields     []string `json:"fields,omitempty"`
}

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Collections []string          `json:"collections"`
	Query       condition.Group   `json:"query"`
	Text        string            `json:"text,omitempty"`
	From        int               `json:"from,omitempty"`
	Size        int               `json:"size,omitempty"`
	Sort        *SortSpec         `json:"sort,omitempty"`
	Fields      []string          `json:"fields,omitempty"`
	Aggs        []AggregationSpec `json:"aggs,omitempty"`
	Highlight   []string          `json:"highlight,omitempty"`
	Expand      []ExpandSpec      `json:"expand,omitempty"`
}

// SearchHit is one hit in a SearchResponse.
type SearchHit struct {
	Collection string              `json:"collection"`
	ID         string              `json:"id"`
	Score      float64             `json:"score"`
	Source     map[string]any      `json:"source"`
	Highlight  map[string][]string `json:"highlight,omitempty"`
}

// Bucket is one aggregation bucket.
type Bucket struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// SearchResponse is the body returned by POST /search.
type SearchResponse struct {
	Total        int                 `json:"total"`
	Hits         []SearchHit         `json:"hits"`
	Aggregations map[string][]Bucket `json:"aggregations,omitempty"`
	Collections  []string            `json:"collections"`
}

// DocumentResponse is a stored document.
type DocumentResponse struct {
	ID         string         `json:"id"`
	Collection string         `json:"collection"`
	Source     map[string]any `json:"source"`
}

// FieldDefinition is one inferred field of a collection.
type FieldDefinition struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Collection is a catalog entry.
type Collection struct {
	Label         string            `json:"label"`
	Collection    string            `json:"collection"`
	Fields        []FieldDefinition `json:"fields"`
	DocumentCount int               `json:"doc_count"`
	CreatedAt     time.Time         `json:"created_at"`
}

// CollectionListResponse is the body of GET /collections.
type CollectionListResponse struct {
	Items []Collection `json:"items"`
}

// CountResponse is the body of GET /collections/{collection}/count.
type CountResponse struct {
	Collection string `json:"collection"`
	Count      int    `json:"count"`
}

// IngestFile names a server-local file for POST /ingest.
type IngestFile struct {
	Path       string `json:"path"`
	Filename   string `json:"filename,omitempty"`
	Collection string `json:"collection,omitempty"`
	IDField    string `json:"id_field,omitempty"`
}

// IngestRequest is the JSON body of POST /ingest.
type IngestRequest struct {
	Files    []IngestFile `json:"files"`
	Recreate *bool        `json:"recreate,omitempty"`
}

// IngestResponse acknowledges a queued job.
type IngestResponse struct {
	JobID  string        `json:"job_id"`
	Status domjob.Status `json:"status"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
