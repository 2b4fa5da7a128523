package ingest

import (
	"context"
	"iter"

	domcol "github.com/kailas-cloud/docdex/internal/domain/collection"
	domdoc "github.com/kailas-cloud/docdex/internal/domain/document"
	domjob "github.com/kailas-cloud/docdex/internal/domain/job"
	"github.com/kailas-cloud/docdex/internal/domain/mapping"
	"github.com/kailas-cloud/docdex/internal/usecase/bulk"
	"github.com/kailas-cloud/docdex/internal/usecase/collection"
)

// JobStore holds job state between submission and polling.
type JobStore interface {
	Create(tenant string) string
	Update(id string, fn func(j *domjob.Job)) error
	Get(tenant, id string) (domjob.Snapshot, error)
}

// CollectionResolver resolves labels and (re)creates collections.
type CollectionResolver interface {
	Resolve(tenant, label string) (domcol.Collection, error)
	Ensure(ctx context.Context, col domcol.Collection, m mapping.Mapping, recreate bool) collection.EnsureResult
	Count(ctx context.Context, name string) (int, error)
}

// Loader streams documents into a collection.
type Loader interface {
	Load(ctx context.Context, collection string, items iter.Seq2[domdoc.Document, error], chunkSize int) (bulk.Stats, error)
}

// Catalog records ingested collections. Optional.
type Catalog interface {
	Upsert(ctx context.Context, col domcol.Collection) error
}

// Source is a re-readable tabular file.
type Source interface {
	Name() string
	Rows(ctx context.Context) iter.Seq2[map[string]*string, error]
	Sample(ctx context.Context, n int) ([]map[string]*string, error)
}

// OpenFunc opens path as a Source; name is the display name used for
// format detection.
type OpenFunc func(path, name string) (Source, error)
