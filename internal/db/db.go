package db

import (
	"context"
	"time"

	"github.com/kailas-cloud/docdex/internal/domain/batch"
	"github.com/kailas-cloud/docdex/internal/domain/mapping"
)

// Store is the document search backend facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	CollectionManager
	DocumentStore
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CollectionManager provides collection lifecycle operations.
type CollectionManager interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	// CreateCollection returns ErrCollectionExists if name is taken.
	CreateCollection(ctx context.Context, name string, m mapping.Mapping) error
	// DropCollection removes the collection and its documents.
	// Returns ErrCollectionNotFound if absent.
	DropCollection(ctx context.Context, name string) error
	Count(ctx context.Context, name string) (int, error)
}

// BulkItem is one document of a bulk load. An empty ID lets the backend assign one.
type BulkItem struct {
	ID   string
	Body map[string]any
}

// DocumentStore provides per-document operations.
type DocumentStore interface {
	// Index writes body under id (assigned when empty) and returns the id.
	Index(ctx context.Context, collection, id string, body map[string]any) (string, error)
	// Get returns ErrKeyNotFound if the document is absent.
	Get(ctx context.Context, collection, id string) (map[string]any, error)
	// Merge shallow-merges partial into the stored document.
	// Returns ErrKeyNotFound if the document is absent.
	Merge(ctx context.Context, collection, id string, partial map[string]any) error
	// Delete returns ErrKeyNotFound if the document is absent.
	Delete(ctx context.Context, collection, id string) error
	// Bulk writes items and reports a per-item outcome in input order.
	// A returned error means the whole call failed and no outcome is known.
	Bulk(ctx context.Context, collection string, items []BulkItem) ([]batch.Result, error)
}

// Searcher runs one search across one or more collections.
type Searcher interface {
	Search(ctx context.Context, q *SearchQuery) (*SearchResult, error)
}
