package expand

import (
	"context"

	domcol "github.com/kailas-cloud/docdex/internal/domain/collection"
	"github.com/kailas-cloud/docdex/internal/domain/search/result"
)

// Repository looks up documents by key in one physical collection.
type Repository interface {
	Lookup(ctx context.Context, collection, field string, keys []any, fields []string) ([]result.Hit, error)
}

// CollectionResolver resolves and checks target collections.
type CollectionResolver interface {
	Resolve(tenant, label string) (domcol.Collection, error)
	Exists(ctx context.Context, name string) (bool, error)
}
