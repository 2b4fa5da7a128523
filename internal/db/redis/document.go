package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/rueidis"

	"github.com/kailas-cloud/docdex/internal/db"
	"github.com/kailas-cloud/docdex/internal/domain/batch"
)

// Index stores body as a JSON document, replacing any previous version.
func (s *Store) Index(ctx context.Context, collection, id string, body map[string]any) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	m, err := s.mappingFor(ctx, collection)
	if err != nil {
		return "", err
	}

	data, err := encodeDocument(newLayout(m), id, body)
	if err != nil {
		return "", &db.Error{Op: db.OpIndex, Err: err}
	}
	cmd := s.b().Arbitrary("JSON.SET").Keys(s.docKey(collection, id)).Args("$", string(data)).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return "", &db.Error{Op: db.OpIndex, Err: err}
	}
	return id, nil
}

// Get returns the stored document without reserved attributes.
func (s *Store) Get(ctx context.Context, collection, id string) (map[string]any, error) {
	cmd := s.b().Arbitrary("JSON.GET").Keys(s.docKey(collection, id)).Build()
	raw, err := s.do(ctx, cmd).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	if raw == "" {
		return nil, db.ErrKeyNotFound
	}
	return decodeDocument(raw)
}

// Merge applies partial with JSON.MERGE. A null value removes the attribute.
func (s *Store) Merge(ctx context.Context, collection, id string, partial map[string]any) error {
	key := s.docKey(collection, id)

	exists := s.b().Exists().Key(key).Build()
	n, err := s.do(ctx, exists).AsInt64()
	if err != nil {
		return &db.Error{Op: db.OpMerge, Err: err}
	}
	if n == 0 {
		return db.ErrKeyNotFound
	}

	m, err := s.mappingFor(ctx, collection)
	if err != nil {
		return err
	}
	patch := make(map[string]any, len(partial)+1)
	for k, v := range partial {
		patch[k] = v
	}
	if sh := newLayout(m).shadows(partial); sh != nil {
		patch[shadowAttr] = sh
	}
	data, err := json.Marshal(patch)
	if err != nil {
		return &db.Error{Op: db.OpMerge, Err: err}
	}

	cmd := s.b().Arbitrary("JSON.MERGE").Keys(key).Args("$", string(data)).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpMerge, Err: err}
	}
	return nil
}

// Delete removes a document.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	cmd := s.b().Del().Key(s.docKey(collection, id)).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return &db.Error{Op: db.OpDelete, Err: err}
	}
	if n == 0 {
		return db.ErrKeyNotFound
	}
	return nil
}

// Bulk stores items in a single DoMulti round-trip.
func (s *Store) Bulk(ctx context.Context, collection string, items []db.BulkItem) ([]batch.Result, error) {
	if len(items) == 0 {
		return nil, nil
	}
	m, err := s.mappingFor(ctx, collection)
	if err != nil {
		return nil, err
	}
	l := newLayout(m)

	results := make([]batch.Result, len(items))
	cmds := make(rueidis.Commands, 0, len(items))
	pos := make([]int, 0, len(items))
	for i, item := range items {
		id := item.ID
		if id == "" {
			id = uuid.NewString()
		}
		data, err := encodeDocument(l, id, item.Body)
		if err != nil {
			results[i] = batch.NewError(id, err)
			continue
		}
		results[i] = batch.NewOK(id)
		cmds = append(cmds, s.b().Arbitrary("JSON.SET").Keys(s.docKey(collection, id)).Args("$", string(data)).Build())
		pos = append(pos, i)
	}
	if len(cmds) == 0 {
		return results, nil
	}

	for j, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			i := pos[j]
			results[i] = batch.NewError(results[i].ID(), err)
		}
	}
	return results, nil
}

func encodeDocument(l layout, id string, body map[string]any) ([]byte, error) {
	doc := make(map[string]any, len(body)+2)
	for k, v := range body {
		doc[k] = v
	}
	doc[idAttr] = id
	if sh := l.shadows(body); sh != nil {
		doc[shadowAttr] = sh
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document %q: %w", id, err)
	}
	return data, nil
}

func decodeDocument(raw string) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, &db.Error{Op: db.OpGet, Err: fmt.Errorf("decode document: %w", err)}
	}
	delete(doc, idAttr)
	delete(doc, shadowAttr)
	return doc, nil
}
