package search

import (
	"context"

	domcol "github.com/kailas-cloud/docdex/internal/domain/collection"
	"github.com/kailas-cloud/docdex/internal/domain/expansion"
	"github.com/kailas-cloud/docdex/internal/domain/search/query"
	"github.com/kailas-cloud/docdex/internal/domain/search/request"
	"github.com/kailas-cloud/docdex/internal/domain/search/result"
)

// Repository defines the storage contract for search operations.
type Repository interface {
	Search(ctx context.Context, cols []domcol.Collection, q query.Query, req *request.Request) (result.Page, error)
}

// CollectionResolver resolves labels and checks existence.
type CollectionResolver interface {
	Resolve(tenant, label string) (domcol.Collection, error)
	Exists(ctx context.Context, name string) (bool, error)
}

// Expander attaches related documents to hits.
type Expander interface {
	Expand(ctx context.Context, tenant string, hits []result.Hit, specs []expansion.Spec)
}
