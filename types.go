package docdex

import (
	"time"

	"github.com/kailas-cloud/docdex/internal/domain"
	"github.com/kailas-cloud/docdex/internal/domain/collection/field"
	"github.com/kailas-cloud/docdex/internal/domain/condition"
	domjob "github.com/kailas-cloud/docdex/internal/domain/job"
)

// Sentinel errors, matchable with errors.Is.
var (
	ErrNotFound           = domain.ErrNotFound
	ErrDocumentNotFound   = domain.ErrDocumentNotFound
	ErrCollectionNotFound = domain.ErrCollectionNotFound
	ErrInvalidCondition   = domain.ErrInvalidCondition
	ErrInvalidRequest     = domain.ErrInvalidRequest
	ErrInvalidTenant      = domain.ErrInvalidTenant
	ErrJobNotFound        = domain.ErrJobNotFound
	ErrUnsupportedSource  = domain.ErrUnsupportedSource
)

// FieldType is an inferred field type.
type FieldType string

// Field types.
const (
	FieldNull    = FieldType(field.Null)
	FieldLong    = FieldType(field.Long)
	FieldFloat   = FieldType(field.Float)
	FieldDate    = FieldType(field.Date)
	FieldKeyword = FieldType(field.Keyword)
	FieldText    = FieldType(field.Text)
)

// FieldInfo describes one field of a collection.
type FieldInfo struct {
	Name string
	Type FieldType
}

// CollectionInfo is a catalog entry for an ingested collection.
type CollectionInfo struct {
	Label     string
	Fields    []FieldInfo
	DocCount  int
	CreatedAt time.Time
}

// Document is a stored document.
type Document struct {
	ID   string
	Body map[string]any
}

// Condition and Group form the condition language of Search.
type (
	Condition = condition.Condition
	Group     = condition.Group
	Op        = condition.Op
)

// Hit is one search hit. Expansions are attached under Source["_expanded"].
type Hit struct {
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

// Page is the result of one search.
type Page struct {
	Total        int
	Hits         []Hit
	Aggregations map[string][]Bucket
	// Collections lists the labels that existed and were searched.
	Collections []string
}

// File is one input of an ingestion job.
type File struct {
	Path string
	// Collection overrides the label derived from the file name.
	Collection string
	// IDField names the column used as document id.
	IDField string
}

// JobStatus is the lifecycle state of an ingestion job.
type JobStatus = domjob.Status

// Job states.
const (
	JobQueued  = domjob.StatusQueued
	JobRunning = domjob.StatusRunning
	JobDone    = domjob.StatusDone
	JobError   = domjob.StatusError
)

// Job is a snapshot of an ingestion job.
type Job = domjob.Snapshot
