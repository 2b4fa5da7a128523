package bleve

import (
	"context"
	"encoding/json"
	"fmt"

	blevesearch "github.com/blevesearch/bleve/v2"
	"github.com/google/uuid"

	"github.com/kailas-cloud/docdex/internal/db"
	"github.com/kailas-cloud/docdex/internal/domain/batch"
	"github.com/kailas-cloud/docdex/internal/domain/document/patch"
)

// Index writes body under id, replacing any previous version.
func (s *Store) Index(_ context.Context, coll, id string, body map[string]any) (string, error) {
	c, err := s.collection(coll)
	if err != nil {
		return "", err
	}
	if id == "" {
		id = uuid.NewString()
	}
	doc, err := c.prepare(id, body)
	if err != nil {
		return "", &db.Error{Op: db.OpIndex, Err: err}
	}
	if err := c.index.Index(id, doc); err != nil {
		return "", &db.Error{Op: db.OpIndex, Err: err}
	}
	return id, nil
}

// Get returns the stored source of a document.
func (s *Store) Get(ctx context.Context, coll, id string) (map[string]any, error) {
	c, err := s.collection(coll)
	if err != nil {
		return nil, err
	}
	return c.get(ctx, id)
}

// Merge reads the document, applies partial and writes it back under the collection lock.
func (s *Store) Merge(ctx context.Context, coll, id string, partial map[string]any) error {
	c, err := s.collection(coll)
	if err != nil {
		return err
	}
	p, err := patch.New(partial)
	if err != nil {
		return &db.Error{Op: db.OpMerge, Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	base, err := c.get(ctx, id)
	if err != nil {
		return err
	}
	doc, err := c.prepare(id, p.Apply(base))
	if err != nil {
		return &db.Error{Op: db.OpMerge, Err: err}
	}
	if err := c.index.Index(id, doc); err != nil {
		return &db.Error{Op: db.OpMerge, Err: err}
	}
	return nil
}

// Delete removes a document.
func (s *Store) Delete(ctx context.Context, coll, id string) error {
	c, err := s.collection(coll)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.get(ctx, id); err != nil {
		return err
	}
	if err := c.index.Delete(id); err != nil {
		return &db.Error{Op: db.OpDelete, Err: err}
	}
	return nil
}

// Bulk indexes items in one bleve batch.
func (s *Store) Bulk(_ context.Context, coll string, items []db.BulkItem) ([]batch.Result, error) {
	if len(items) == 0 {
		return nil, nil
	}
	c, err := s.collection(coll)
	if err != nil {
		return nil, err
	}

	b := c.index.NewBatch()
	results := make([]batch.Result, len(items))
	for i, item := range items {
		id := item.ID
		if id == "" {
			id = uuid.NewString()
		}
		doc, err := c.prepare(id, item.Body)
		if err == nil {
			err = b.Index(id, doc)
		}
		if err != nil {
			results[i] = batch.NewError(id, err)
			continue
		}
		results[i] = batch.NewOK(id)
	}
	if err := c.index.Batch(b); err != nil {
		return nil, &db.Error{Op: db.OpBulk, Err: err}
	}
	return results, nil
}

func (c *collection) prepare(id string, body map[string]any) (map[string]any, error) {
	src, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode document %q: %w", id, err)
	}
	return indexable(c.mapping, body, string(src)), nil
}

func (c *collection) get(ctx context.Context, id string) (map[string]any, error) {
	req := blevesearch.NewSearchRequestOptions(blevesearch.NewDocIDQuery([]string{id}), 1, 0, false)
	req.Fields = []string{sourceField}
	res, err := c.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	if len(res.Hits) == 0 {
		return nil, db.ErrKeyNotFound
	}
	return decodeSource(res.Hits[0].Fields[sourceField])
}

func decodeSource(v any) (map[string]any, error) {
	raw, ok := v.(string)
	if !ok {
		return nil, &db.Error{Op: db.OpGet, Err: fmt.Errorf("source field missing")}
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, &db.Error{Op: db.OpGet, Err: fmt.Errorf("decode source: %w", err)}
	}
	return doc, nil
}
