package bulk

import (
	"context"

	"github.com/kailas-cloud/docdex/internal/domain/batch"
	domdoc "github.com/kailas-cloud/docdex/internal/domain/document"
)

// Writer sends one chunk of documents to storage.
type Writer interface {
	Bulk(ctx context.Context, collection string, docs []domdoc.Document) ([]batch.Result, error)
}
