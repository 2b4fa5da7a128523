// Package expand attaches related documents from other collections to
// search hits by batched key lookup.
package expand

import (
	"context"
	"fmt"
	"maps"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/domain/expansion"
	"github.com/kailas-cloud/docdex/internal/domain/search/result"
	"github.com/kailas-cloud/docdex/internal/logger"
)

// Expander applies expansion specs to a result set.
type Expander struct {
	repo    Repository
	colls   CollectionResolver
	maxKeys int
	total   *prometheus.CounterVec
}

// New creates an Expander capped at expansion.MaxKeys keys per spec.
func New(repo Repository, colls CollectionResolver) *Expander {
	return &Expander{repo: repo, colls: colls, maxKeys: expansion.MaxKeys}
}

// WithMaxKeys overrides the per-spec key cap.
func (e *Expander) WithMaxKeys(n int) *Expander {
	if n > 0 {
		e.maxKeys = n
	}
	return e
}

// WithMetrics counts expansions on cv, labeled by result.
func (e *Expander) WithMetrics(cv *prometheus.CounterVec) *Expander {
	e.total = cv
	return e
}

// Expand applies specs in order. Each spec is independent: a failing spec
// is logged and skipped, leaving hits untouched by it.
func (e *Expander) Expand(ctx context.Context, tenant string, hits []result.Hit, specs []expansion.Spec) {
	if len(hits) == 0 {
		return
	}
	log := logger.FromContext(ctx)
	for _, spec := range specs {
		outcome, err := e.apply(ctx, tenant, hits, spec)
		if err != nil {
			log.Warn("expansion failed",
				zap.String("expansion", spec.Name()),
				zap.String("target", spec.Target()),
				zap.Error(err))
			outcome = "error"
		}
		e.observe(outcome)
	}
}

func (e *Expander) apply(ctx context.Context, tenant string, hits []result.Hit, spec expansion.Spec) (string, error) {
	keys := e.collectKeys(hits, spec)
	if len(keys) == 0 {
		attachAll(hits, spec, nil)
		return "ok", nil
	}

	target, err := e.colls.Resolve(tenant, spec.Target())
	if err != nil {
		return "", err
	}
	ok, err := e.colls.Exists(ctx, target.Name())
	if err != nil {
		return "", err
	}
	if !ok {
		return "skipped", nil
	}

	found, err := e.repo.Lookup(ctx, target.Name(), spec.ToField(), keys, spec.Fields())
	if err != nil {
		return "", fmt.Errorf("lookup: %w", err)
	}
	attachAll(hits, spec, buildTable(found, spec))
	return "ok", nil
}

// collectKeys gathers from-field values across hits, deduplicated on their
// string form in first-seen order and capped at maxKeys.
func (e *Expander) collectKeys(hits []result.Hit, spec expansion.Spec) []any {
	seen := make(map[string]struct{})
	keys := make([]any, 0)
	for i := range hits {
		for _, v := range fromValues(hits[i].Source(), spec) {
			k := cast.ToString(v)
			if k == "" {
				continue
			}
			if _, dup := seen[k]; dup {
				continue
			}
			if len(keys) >= e.maxKeys {
				return keys
			}
			seen[k] = struct{}{}
			keys = append(keys, v)
		}
	}
	return keys
}

// fromValues returns the key values of one source document. List values
// are expanded element-wise for many-specs.
func fromValues(src map[string]any, spec expansion.Spec) []any {
	v, ok := src[spec.FromField()]
	if !ok || v == nil {
		return nil
	}
	if list, isList := v.([]any); isList {
		if spec.Many() {
			return list
		}
		return nil
	}
	return []any{v}
}

// buildTable keys the found documents by to-field. Later duplicates win.
func buildTable(found []result.Hit, spec expansion.Spec) map[string]map[string]any {
	table := make(map[string]map[string]any, len(found))
	for i := range found {
		src := found[i].Source()
		k := cast.ToString(src[spec.ToField()])
		if k == "" {
			continue
		}
		doc := make(map[string]any, len(src)+1)
		for name, v := range src {
			if spec.Projects(name) {
				doc[name] = v
			}
		}
		if _, ok := doc[expansion.IDField]; !ok {
			doc[expansion.IDField] = found[i].ID()
		}
		table[k] = doc
	}
	return table
}

// attachAll attaches matches to every hit. A nil table means no keys were found.
func attachAll(hits []result.Hit, spec expansion.Spec, table map[string]map[string]any) {
	for i := range hits {
		values := fromValues(hits[i].Source(), spec)
		if spec.Many() {
			out := make([]any, 0, len(values))
			for _, v := range values {
				if doc, ok := table[cast.ToString(v)]; ok {
					out = append(out, maps.Clone(doc))
				}
			}
			hits[i].Attach(spec.Name(), out)
			continue
		}
		var match any
		if len(values) > 0 {
			if doc, ok := table[cast.ToString(values[0])]; ok {
				match = maps.Clone(doc)
			}
		}
		hits[i].Attach(spec.Name(), match)
	}
}

func (e *Expander) observe(outcome string) {
	if e.total != nil {
		e.total.WithLabelValues(outcome).Inc()
	}
}
