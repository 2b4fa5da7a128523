// Package ingest runs ingestion jobs: each file is sampled, its schema
// inferred, its collection (re)created and its rows bulk-loaded.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/domain"
	domcol "github.com/kailas-cloud/docdex/internal/domain/collection"
	domjob "github.com/kailas-cloud/docdex/internal/domain/job"
	"github.com/kailas-cloud/docdex/internal/domain/mapping"
	"github.com/kailas-cloud/docdex/internal/domain/schema"
	"github.com/kailas-cloud/docdex/internal/logger"
)

// Defaults for Config fields left zero.
const (
	DefaultSampleRows = 200
	DefaultJobTimeout = 2 * time.Hour
)

// Config tunes ingestion.
type Config struct {
	SampleRows int
	MaxFields  int
	ChunkSize  int
	JobTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.SampleRows <= 0 {
		c.SampleRows = DefaultSampleRows
	}
	if c.MaxFields <= 0 {
		c.MaxFields = schema.DefaultMaxFields
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = DefaultJobTimeout
	}
	return c
}

// FileSpec describes one file of a job.
type FileSpec struct {
	// Path is the file on local disk.
	Path string
	// Filename is the display name; defaults to the base of Path.
	Filename string
	// Collection is the target label; defaults to a slug of Filename.
	Collection string
	// IDField names the column holding document ids. Empty means generated ids.
	IDField string
	// Temporary files are removed once processed.
	Temporary bool
}

func (f FileSpec) name() string {
	if f.Filename != "" {
		return f.Filename
	}
	return filepath.Base(f.Path)
}

func (f FileSpec) label() string {
	if f.Collection != "" {
		return f.Collection
	}
	name := f.name()
	for _, ext := range []string{".zst", filepath.Ext(strings.TrimSuffix(name, ".zst"))} {
		name = strings.TrimSuffix(name, ext)
	}
	return domcol.Slugify(name)
}

// Options apply to every file of a job.
type Options struct {
	// Recreate drops and recreates existing collections before loading.
	Recreate bool
}

// Coordinator submits and runs ingestion jobs.
type Coordinator struct {
	jobs    JobStore
	colls   CollectionResolver
	loader  Loader
	open    OpenFunc
	catalog Catalog
	cfg     Config
	locks   *collectionLocks
	wg      sync.WaitGroup

	jobsTotal    *prometheus.CounterVec
	fileDuration prometheus.Observer
}

// New creates a Coordinator.
func New(jobs JobStore, colls CollectionResolver, loader Loader, open OpenFunc, cfg Config) *Coordinator {
	return &Coordinator{
		jobs:   jobs,
		colls:  colls,
		loader: loader,
		open:   open,
		cfg:    cfg.withDefaults(),
		locks:  newCollectionLocks(),
	}
}

// WithCatalog records every ingested collection in cat.
func (c *Coordinator) WithCatalog(cat Catalog) *Coordinator {
	c.catalog = cat
	return c
}

// WithMetrics counts finished jobs by status and observes per-file durations.
func (c *Coordinator) WithMetrics(jobsTotal *prometheus.CounterVec, fileDuration prometheus.Observer) *Coordinator {
	c.jobsTotal = jobsTotal
	c.fileDuration = fileDuration
	return c
}

// Submit registers a job and runs it in the background. It returns as soon
// as the job is queued. The job outlives ctx but keeps its values.
func (c *Coordinator) Submit(ctx context.Context, tenant string, files []FileSpec, opts Options) (string, error) {
	if err := domcol.ValidateTenant(tenant); err != nil {
		return "", err
	}
	id := c.jobs.Create(tenant)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(context.WithoutCancel(ctx), id, tenant, files, opts)
	}()
	return id, nil
}

// Run executes a job in the calling goroutine and returns its final snapshot.
func (c *Coordinator) Run(ctx context.Context, tenant string, files []FileSpec, opts Options) (domjob.Snapshot, error) {
	if err := domcol.ValidateTenant(tenant); err != nil {
		return domjob.Snapshot{}, err
	}
	id := c.jobs.Create(tenant)
	c.run(ctx, id, tenant, files, opts)
	return c.jobs.Get(tenant, id)
}

// Get returns a snapshot of a tenant's job.
func (c *Coordinator) Get(tenant, id string) (domjob.Snapshot, error) {
	return c.jobs.Get(tenant, id)
}

// Wait blocks until every submitted job has finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

func (c *Coordinator) run(ctx context.Context, id, tenant string, files []FileSpec, opts Options) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.JobTimeout)
	defer cancel()

	log := logger.FromContext(ctx).With(zap.String("job_id", id), zap.String("tenant", tenant))
	ctx = logger.ContextWithLogger(ctx, log)
	start := time.Now()

	c.update(ctx, id, func(j *domjob.Job) { j.Start() })
	if len(files) == 0 {
		c.update(ctx, id, func(j *domjob.Job) { j.Fail("no files to ingest") })
		c.observeJob(domjob.StatusError)
		log.Warn("ingest job has no files")
		return
	}
	log.Info("ingest job started", zap.Int("files", len(files)), zap.Bool("recreate", opts.Recreate))

	for _, f := range files {
		res := c.processFile(ctx, id, tenant, f, opts)
		c.update(ctx, id, func(j *domjob.Job) { j.AddFile(res) })
		if f.Temporary {
			if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
				log.Warn("remove uploaded file", zap.String("path", f.Path), zap.Error(err))
			}
		}
	}

	c.update(ctx, id, func(j *domjob.Job) { j.Finish() })
	c.observeJob(domjob.StatusDone)
	log.Info("ingest job finished", zap.Duration("duration", time.Since(start)))
}

// processFile ingests one file. Failures are reported in the result; the
// row counters of the job are updated as the file completes.
func (c *Coordinator) processFile(ctx context.Context, id, tenant string, f FileSpec, opts Options) domjob.FileResult {
	name := f.name()
	res := domjob.FileResult{Filename: name}
	log := logger.FromContext(ctx).With(zap.String("file", name))
	start := time.Now()
	defer func() {
		if c.fileDuration != nil {
			c.fileDuration.Observe(time.Since(start).Seconds())
		}
	}()

	fail := func(err error) domjob.FileResult {
		log.Warn("ingest file failed", zap.Error(err))
		res.Error = err.Error()
		return res
	}

	col, err := c.colls.Resolve(tenant, f.label())
	if err != nil {
		return fail(err)
	}
	res.Collection = col.Label()

	src, err := c.open(f.Path, name)
	if err != nil {
		return fail(err)
	}
	sample, err := src.Sample(ctx, c.cfg.SampleRows)
	if err != nil {
		return fail(fmt.Errorf("sample: %w", err))
	}
	sch := schema.Infer(sample, c.cfg.MaxFields)
	if f.IDField != "" && len(sample) > 0 && !hasColumn(sample, f.IDField) {
		return fail(fmt.Errorf("id column %q not found: %w", f.IDField, domain.ErrInvalidRequest))
	}
	m := mapping.Build(sch)

	unlock := c.locks.lock(col.Name())
	defer unlock()

	if er := c.colls.Ensure(ctx, col, m, opts.Recreate); !er.OK() {
		// load anyway; chunk failures will be counted against the file
		c.update(ctx, id, func(j *domjob.Job) { j.RecordError(name + ": " + er.Err.Error()) })
	}

	st, err := c.loader.Load(ctx, col.Name(), documents(ctx, src, sch, f.IDField), c.cfg.ChunkSize)
	res.Indexed, res.Errors = st.OK, st.Errors
	c.update(ctx, id, func(j *domjob.Job) {
		j.AddRows(st.OK+st.Errors, st.OK, st.Errors)
		for _, s := range st.Samples {
			j.RecordError(name + ": " + s)
		}
	})
	if err != nil {
		return fail(fmt.Errorf("load: %w", err))
	}

	c.record(ctx, col.WithFields(sch.Fields()), st.OK)
	log.Info("file ingested",
		zap.String("collection", col.Name()),
		zap.Int("indexed", st.OK),
		zap.Int("errors", st.Errors),
		zap.Int("fields", sch.Len()))
	return res
}

// record upserts the catalog entry with the live document count, falling
// back to the rows just loaded.
func (c *Coordinator) record(ctx context.Context, col domcol.Collection, loaded int) {
	if c.catalog == nil {
		return
	}
	n, err := c.colls.Count(ctx, col.Name())
	if err != nil {
		n = loaded
	}
	if err := c.catalog.Upsert(ctx, col.WithDocCount(n)); err != nil {
		logger.FromContext(ctx).Warn("catalog upsert failed", zap.String("collection", col.Name()), zap.Error(err))
	}
}

func (c *Coordinator) update(ctx context.Context, id string, fn func(j *domjob.Job)) {
	if err := c.jobs.Update(id, fn); err != nil {
		logger.FromContext(ctx).Error("job update failed", zap.Error(err))
	}
}

func (c *Coordinator) observeJob(status domjob.Status) {
	if c.jobsTotal != nil {
		c.jobsTotal.WithLabelValues(string(status)).Inc()
	}
}
