package docdex

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/docdex/internal/domain/schema"
	"github.com/kailas-cloud/docdex/internal/repository/source"
	ingestuc "github.com/kailas-cloud/docdex/internal/usecase/ingest"
)

// IngestOptions tunes one ingestion job.
type IngestOptions struct {
	// Append keeps existing collections instead of dropping and recreating them.
	Append bool
}

// Ingest loads files into tenant collections and blocks until the job
// finishes. Per-file failures are reported in the returned Job; the error
// is non-nil only when the job could not run at all.
func (c *Client) Ingest(ctx context.Context, tenant string, files []File, opts ...IngestOptions) (Job, error) {
	snap, err := c.ingest.Run(c.withLogger(ctx), tenant, toFileSpecs(files), toOptions(opts))
	if err != nil {
		return Job{}, fmt.Errorf("ingest: %w", err)
	}
	return snap, nil
}

// Submit starts an ingestion job in the background and returns its id.
// Poll it with Job; Close waits for running jobs.
func (c *Client) Submit(ctx context.Context, tenant string, files []File, opts ...IngestOptions) (string, error) {
	id, err := c.ingest.Submit(c.withLogger(ctx), tenant, toFileSpecs(files), toOptions(opts))
	if err != nil {
		return "", fmt.Errorf("submit: %w", err)
	}
	return id, nil
}

// Job returns a snapshot of a tenant's ingestion job.
func (c *Client) Job(tenant, id string) (Job, error) {
	snap, err := c.ingest.Get(tenant, id)
	if err != nil {
		return Job{}, fmt.Errorf("job: %w", err)
	}
	return snap, nil
}

func toFileSpecs(files []File) []ingestuc.FileSpec {
	out := make([]ingestuc.FileSpec, len(files))
	for i, f := range files {
		out[i] = ingestuc.FileSpec{Path: f.Path, Collection: f.Collection, IDField: f.IDField}
	}
	return out
}

func toOptions(opts []IngestOptions) ingestuc.Options {
	o := ingestuc.Options{Recreate: true}
	if len(opts) > 0 && opts[0].Append {
		o.Recreate = false
	}
	return o
}

// Infer samples up to sampleRows rows of a file and returns the field types
// ingestion would create. Non-positive sampleRows uses the ingestion default.
func Infer(ctx context.Context, path string, sampleRows int) ([]FieldInfo, error) {
	if sampleRows <= 0 {
		sampleRows = ingestuc.DefaultSampleRows
	}
	src, err := source.Open(path, "")
	if err != nil {
		return nil, fmt.Errorf("infer: %w", err)
	}
	rows, err := src.Sample(ctx, sampleRows)
	if err != nil {
		return nil, fmt.Errorf("infer: %w", err)
	}
	sch := schema.Infer(rows, schema.DefaultMaxFields)
	out := make([]FieldInfo, 0, sch.Len())
	for _, f := range sch.Fields() {
		out = append(out, FieldInfo{Name: f.Name(), Type: FieldType(f.FieldType())})
	}
	return out, nil
}
