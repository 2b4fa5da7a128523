// Package bleve implements the embedded search backend on bleve indexes,
// one index per collection, held in memory or on disk.
package bleve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	blevesearch "github.com/blevesearch/bleve/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/db"
	"github.com/kailas-cloud/docdex/internal/domain/mapping"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

var (
	mappingKey = []byte("docdex_mapping")

	errClosed = errors.New("store is closed")
)

// Config holds embedded store parameters. An empty Path keeps indexes in memory.
type Config struct {
	Path   string
	Logger *zap.Logger
}

type collection struct {
	index   blevesearch.Index
	mapping mapping.Mapping
	// mu serializes read-modify-write cycles on this collection.
	mu sync.Mutex
}

// Store implements db.Store over bleve indexes.
type Store struct {
	path   string
	logger *zap.Logger

	mu          sync.RWMutex
	collections map[string]*collection
	closed      bool
}

// NewStore opens every index found under cfg.Path, or starts an empty in-memory store.
func NewStore(cfg Config) (*Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		path:        cfg.Path,
		logger:      logger,
		collections: make(map[string]*collection),
	}
	if cfg.Path == "" {
		return s, nil
	}

	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	entries, err := os.ReadDir(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("read index dir: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		c, err := openCollection(filepath.Join(cfg.Path, e.Name()), e.Name())
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("open collection %s: %w", e.Name(), err)
		}
		s.collections[e.Name()] = c
	}
	logger.Info("bleve store opened", zap.String("path", cfg.Path), zap.Int("collections", len(s.collections)))
	return s, nil
}

func openCollection(path, name string) (*collection, error) {
	idx, err := blevesearch.Open(path)
	if err != nil {
		return nil, err
	}
	idx.SetName(name)

	m := mapping.Empty()
	raw, err := idx.GetInternal(mappingKey)
	if err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("read mapping: %w", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &m); err != nil {
			_ = idx.Close()
			return nil, fmt.Errorf("decode mapping: %w", err)
		}
	}
	return &collection{index: idx, mapping: m}, nil
}

// Ping reports whether the store is open.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return &db.Error{Op: db.OpPing, Err: errClosed}
	}
	return nil
}

// WaitForReady returns immediately: the embedded store is ready once opened.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	return s.Ping(ctx)
}

// Close closes every open index.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for name, c := range s.collections {
		if err := c.index.Close(); err != nil {
			s.logger.Warn("close index", zap.String("collection", name), zap.Error(err))
		}
	}
}

// CollectionExists reports whether an index exists for name.
func (s *Store) CollectionExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[name]
	return ok, nil
}

// CreateCollection creates the index for name with the given mapping.
func (s *Store) CreateCollection(_ context.Context, name string, m mapping.Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &db.Error{Op: db.OpCreate, Err: errClosed}
	}
	if _, ok := s.collections[name]; ok {
		return db.ErrCollectionExists
	}

	im := buildIndexMapping(m)
	var (
		idx blevesearch.Index
		err error
	)
	if s.path == "" {
		idx, err = blevesearch.NewMemOnly(im)
	} else {
		idx, err = blevesearch.New(filepath.Join(s.path, name), im)
	}
	if err != nil {
		return &db.Error{Op: db.OpCreate, Err: err}
	}
	idx.SetName(name)

	raw, err := json.Marshal(m)
	if err != nil {
		_ = idx.Close()
		return &db.Error{Op: db.OpCreate, Err: fmt.Errorf("marshal mapping: %w", err)}
	}
	if err := idx.SetInternal(mappingKey, raw); err != nil {
		_ = idx.Close()
		return &db.Error{Op: db.OpCreate, Err: err}
	}

	s.collections[name] = &collection{index: idx, mapping: m}
	return nil
}

// DropCollection closes the index and removes its files.
func (s *Store) DropCollection(_ context.Context, name string) error {
	s.mu.Lock()
	c, ok := s.collections[name]
	delete(s.collections, name)
	s.mu.Unlock()
	if !ok {
		return db.ErrCollectionNotFound
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.index.Close(); err != nil {
		return &db.Error{Op: db.OpDrop, Err: err}
	}
	if s.path != "" {
		if err := os.RemoveAll(filepath.Join(s.path, name)); err != nil {
			return &db.Error{Op: db.OpDrop, Err: err}
		}
	}
	return nil
}

// Count returns the number of documents in a collection.
func (s *Store) Count(_ context.Context, name string) (int, error) {
	c, err := s.collection(name)
	if err != nil {
		return 0, err
	}
	n, err := c.index.DocCount()
	if err != nil {
		return 0, &db.Error{Op: db.OpCount, Err: err}
	}
	return int(n), nil
}

func (s *Store) collection(name string) (*collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return nil, db.ErrCollectionNotFound
	}
	return c, nil
}
