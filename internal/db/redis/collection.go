package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/docdex/internal/db"
	"github.com/kailas-cloud/docdex/internal/domain/mapping"
)

// CreateCollection creates the FT index for a collection and persists its mapping.
func (s *Store) CreateCollection(ctx context.Context, name string, m mapping.Mapping) error {
	idx := &IndexDefinition{
		Name:        s.indexName(name),
		StorageType: StorageJSON,
		Prefixes:    []string{s.docPrefix(name)},
		Fields:      newLayout(m).fields(m),
	}
	args, err := buildCreateArgs(idx)
	if err != nil {
		return &db.Error{Op: db.OpCreate, Err: err}
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return db.ErrCollectionExists
		}
		return &db.Error{Op: db.OpCreate, Err: err}
	}

	raw, err := json.Marshal(m)
	if err != nil {
		return &db.Error{Op: db.OpCreate, Err: fmt.Errorf("marshal mapping: %w", err)}
	}
	set := s.b().Set().Key(s.mappingKey(name)).Value(string(raw)).Build()
	if err := s.do(ctx, set).Error(); err != nil {
		return &db.Error{Op: db.OpCreate, Err: err}
	}

	s.mu.Lock()
	s.mappings[name] = m
	s.mu.Unlock()
	return nil
}

// DropCollection removes the index, its documents and the stored mapping.
func (s *Store) DropCollection(ctx context.Context, name string) error {
	s.forget(name)

	cmd := s.b().Arbitrary("FT.DROPINDEX").Args(s.indexName(name), "DD").Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isUnknownIndex(err) {
			return db.ErrCollectionNotFound
		}
		return &db.Error{Op: db.OpDrop, Err: err}
	}

	del := s.b().Del().Key(s.mappingKey(name)).Build()
	if err := s.do(ctx, del).Error(); err != nil {
		return &db.Error{Op: db.OpDrop, Err: err}
	}
	return nil
}

// CollectionExists probes the index via FT.INFO; "unknown index name" means absent.
func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(s.indexName(name)).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isUnknownIndex(err) {
			return false, nil
		}
		return false, &db.Error{Op: db.OpExists, Err: err}
	}
	return true, nil
}

// Count returns the number of indexed documents via FT.SEARCH with LIMIT 0 0.
func (s *Store) Count(ctx context.Context, name string) (int, error) {
	cmd := s.b().Arbitrary("FT.SEARCH").Args(s.indexName(name), "*", "LIMIT", "0", "0", "DIALECT", "2").Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isUnknownIndex(err) {
			return 0, db.ErrCollectionNotFound
		}
		return 0, &db.Error{Op: db.OpCount, Err: err}
	}
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpCount, Err: fmt.Errorf("parse count: %w", err)}
	}
	return int(total), nil
}

// mappingFor returns the cached mapping of a collection, loading it on miss.
// A collection without a stored mapping is treated as empty.
func (s *Store) mappingFor(ctx context.Context, name string) (mapping.Mapping, error) {
	s.mu.RLock()
	m, ok := s.mappings[name]
	s.mu.RUnlock()
	if ok {
		return m, nil
	}

	cmd := s.b().Get().Key(s.mappingKey(name)).Build()
	data, err := s.do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return mapping.Empty(), nil
		}
		return mapping.Mapping{}, &db.Error{Op: db.OpGetMapping, Err: err}
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return mapping.Mapping{}, &db.Error{Op: db.OpGetMapping, Err: fmt.Errorf("decode mapping: %w", err)}
	}

	s.mu.Lock()
	s.mappings[name] = m
	s.mu.Unlock()
	return m, nil
}

func (s *Store) forget(name string) {
	s.mu.Lock()
	delete(s.mappings, name)
	s.mu.Unlock()
}
