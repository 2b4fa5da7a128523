package document

import (
	"context"

	domcol "github.com/kailas-cloud/docdex/internal/domain/collection"
	domdoc "github.com/kailas-cloud/docdex/internal/domain/document"
	"github.com/kailas-cloud/docdex/internal/domain/document/patch"
	"github.com/kailas-cloud/docdex/internal/domain/mapping"
	"github.com/kailas-cloud/docdex/internal/usecase/collection"
)

// Repository defines the storage contract for documents.
type Repository interface {
	Put(ctx context.Context, coll string, doc domdoc.Document) (domdoc.Document, error)
	Get(ctx context.Context, coll, id string) (domdoc.Document, error)
	Merge(ctx context.Context, coll, id string, p patch.Patch) error
	Delete(ctx context.Context, coll, id string) error
}

// CollectionResolver resolves labels and creates collections on first write.
type CollectionResolver interface {
	Resolve(tenant, label string) (domcol.Collection, error)
	Ensure(ctx context.Context, col domcol.Collection, m mapping.Mapping, recreate bool) collection.EnsureResult
	Count(ctx context.Context, name string) (int, error)
}
