package docdex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/db"
	dbBleve "github.com/kailas-cloud/docdex/internal/db/bleve"
	dbRedis "github.com/kailas-cloud/docdex/internal/db/redis"
	"github.com/kailas-cloud/docdex/internal/logger"
	catalogrepo "github.com/kailas-cloud/docdex/internal/repository/catalog"
	collectionrepo "github.com/kailas-cloud/docdex/internal/repository/collection"
	documentrepo "github.com/kailas-cloud/docdex/internal/repository/document"
	jobrepo "github.com/kailas-cloud/docdex/internal/repository/job"
	searchrepo "github.com/kailas-cloud/docdex/internal/repository/search"
	"github.com/kailas-cloud/docdex/internal/repository/source"
	"github.com/kailas-cloud/docdex/internal/usecase/bulk"
	collectionuc "github.com/kailas-cloud/docdex/internal/usecase/collection"
	documentuc "github.com/kailas-cloud/docdex/internal/usecase/document"
	"github.com/kailas-cloud/docdex/internal/usecase/expand"
	ingestuc "github.com/kailas-cloud/docdex/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/docdex/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the docdex SDK entry point.
type Client struct {
	store     db.Store
	logger    *zap.Logger
	colls     *collectionuc.Resolver
	docSvc    *documentuc.Service
	searchSvc *searchuc.Service
	ingest    *ingestuc.Coordinator
}

// New opens the configured backend. Without a driver option the client
// runs on an in-memory bleve store.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{driver: driverBleve}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(context.Background(), defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("docdex: database not ready: %w", err)
	}

	return wireClient(store, cfg), nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case driverBleve:
		s, err := dbBleve.NewStore(dbBleve.Config{Path: cfg.path, Logger: cfg.logger})
		if err != nil {
			return nil, fmt.Errorf("docdex: open bleve store: %w", err)
		}
		return s, nil
	case driverRedis:
		if len(cfg.addrs) == 0 || cfg.addrs[0] == "" {
			return nil, errors.New("docdex: redis address required")
		}
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:     cfg.addrs,
			Password:  cfg.password,
			KeyPrefix: cfg.keyPrefix,
			Logger:    cfg.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("docdex: create redis store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("docdex: unknown driver %q", cfg.driver)
	}
}

func wireClient(store db.Store, cfg *clientConfig) *Client {
	catalog := catalogrepo.New(store)
	docRepo := documentrepo.New(store)
	searchRepo := searchrepo.New(store)

	colls := collectionuc.New(collectionrepo.New(store), catalog, cfg.existsTTL)
	open := func(path, name string) (ingestuc.Source, error) { return source.Open(path, name) }
	coordinator := ingestuc.New(jobrepo.NewStore(0), colls, bulk.New(docRepo, cfg.chunkSize), open, ingestuc.Config{
		SampleRows: cfg.sampleRows,
		ChunkSize:  cfg.chunkSize,
		JobTimeout: cfg.jobTimeout,
	}).WithCatalog(catalog)

	return &Client{
		store:     store,
		logger:    cfg.logger,
		colls:     colls,
		docSvc:    documentuc.New(docRepo, colls),
		searchSvc: searchuc.New(searchRepo, colls, expand.New(searchRepo, colls)),
		ingest:    coordinator,
	}
}

// Close waits for background ingestion jobs and releases the backend.
func (c *Client) Close() {
	c.ingest.Wait()
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks backend connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Documents returns the document service for one tenant collection.
func (c *Client) Documents(tenant, collection string) *DocumentService {
	return &DocumentService{client: c, tenant: tenant, collection: collection}
}

// Collections lists a tenant's ingested collections.
func (c *Client) Collections(ctx context.Context, tenant string) ([]CollectionInfo, error) {
	cols, err := c.colls.List(c.withLogger(ctx), tenant)
	if err != nil {
		return nil, fmt.Errorf("collections: %w", err)
	}
	out := make([]CollectionInfo, len(cols))
	for i, col := range cols {
		fields := make([]FieldInfo, len(col.Fields()))
		for j, f := range col.Fields() {
			fields[j] = FieldInfo{Name: f.Name(), Type: FieldType(f.FieldType())}
		}
		out[i] = CollectionInfo{
			Label:     col.Label(),
			Fields:    fields,
			DocCount:  col.DocCount(),
			CreatedAt: time.UnixMilli(col.CreatedAt()).UTC(),
		}
	}
	return out, nil
}

// DropCollection removes a tenant collection and its documents.
func (c *Client) DropCollection(ctx context.Context, tenant, collection string) error {
	col, err := c.colls.Resolve(tenant, collection)
	if err != nil {
		return fmt.Errorf("drop collection: %w", err)
	}
	if err := c.colls.Drop(c.withLogger(ctx), col); err != nil {
		return fmt.Errorf("drop collection: %w", err)
	}
	return nil
}

func (c *Client) withLogger(ctx context.Context) context.Context {
	return logger.ContextWithLogger(ctx, c.logger)
}
