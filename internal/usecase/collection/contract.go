package collection

import (
	"context"

	domcol "github.com/kailas-cloud/docdex/internal/domain/collection"
	"github.com/kailas-cloud/docdex/internal/domain/mapping"
)

// Repository defines the storage contract for physical collections.
type Repository interface {
	Exists(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, name string, m mapping.Mapping) error
	Drop(ctx context.Context, name string) error
	Count(ctx context.Context, name string) (int, error)
}

// Catalog records collections created by ingestion. Optional.
type Catalog interface {
	List(ctx context.Context, tenant string) ([]domcol.Collection, error)
	Delete(ctx context.Context, tenant, label string) error
}
