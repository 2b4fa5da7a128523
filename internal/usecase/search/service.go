// Package search orchestrates multi-collection searches: label resolution,
// condition compilation, one fan-out query and relationship expansion.
package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/domain"
	domcol "github.com/kailas-cloud/docdex/internal/domain/collection"
	"github.com/kailas-cloud/docdex/internal/domain/condition"
	"github.com/kailas-cloud/docdex/internal/domain/search/request"
	"github.com/kailas-cloud/docdex/internal/domain/search/result"
	"github.com/kailas-cloud/docdex/internal/logger"
)

// Service handles tenant searches.
type Service struct {
	repo     Repository
	colls    CollectionResolver
	expander Expander
	requests *prometheus.CounterVec
}

// New creates a search service. expander may be nil.
func New(repo Repository, colls CollectionResolver, expander Expander) *Service {
	return &Service{repo: repo, colls: colls, expander: expander}
}

// WithMetrics counts requests on cv, labeled by result.
func (s *Service) WithMetrics(cv *prometheus.CounterVec) *Service {
	s.requests = cv
	return s
}

// Search resolves the requested labels, drops collections that do not
// exist and runs one query across the rest. No existing collection yields
// an empty page, not an error.
func (s *Service) Search(ctx context.Context, tenant string, req *request.Request) (result.Page, error) {
	if err := domcol.ValidateTenant(tenant); err != nil {
		s.observe("error")
		return result.Page{}, err
	}

	cols, err := s.existing(ctx, tenant, req.Collections())
	if err != nil {
		s.observe("error")
		return result.Page{}, err
	}
	if len(cols) == 0 {
		s.observe("empty")
		return emptyPage(), nil
	}

	q := condition.CompileGroup(req.Condition(), req.Text())
	page, err := s.repo.Search(ctx, cols, q, req)
	if err != nil {
		if errors.Is(err, domain.ErrCollectionNotFound) {
			// dropped between the existence check and the query
			logger.FromContext(ctx).Warn("collection vanished during search", zap.Error(err))
			s.observe("empty")
			return emptyPage(), nil
		}
		s.observe("error")
		return result.Page{}, fmt.Errorf("search: %w", err)
	}
	if page.Hits == nil {
		page.Hits = []result.Hit{}
	}

	if s.expander != nil && len(req.Expand()) > 0 {
		s.expander.Expand(ctx, tenant, page.Hits, req.Expand())
	}
	if len(req.Fields()) > 0 && len(req.Expand()) > 0 {
		// from_fields were fetched for expansion only
		for i := range page.Hits {
			page.Hits[i].Keep(req.Fields())
		}
	}
	s.observe("ok")
	return page, nil
}

// existing resolves labels to collections that currently exist, in request
// order and without duplicates. Existence check failures count as absent.
func (s *Service) existing(ctx context.Context, tenant string, labels []string) ([]domcol.Collection, error) {
	seen := make(map[string]bool, len(labels))
	out := make([]domcol.Collection, 0, len(labels))
	for _, label := range labels {
		col, err := s.colls.Resolve(tenant, label)
		if err != nil {
			return nil, err
		}
		if seen[col.Name()] {
			continue
		}
		seen[col.Name()] = true

		ok, err := s.colls.Exists(ctx, col.Name())
		if err != nil {
			logger.FromContext(ctx).Warn("exists check failed, skipping collection",
				zap.String("collection", col.Name()), zap.Error(err))
			continue
		}
		if ok {
			out = append(out, col)
		}
	}
	return out, nil
}

func emptyPage() result.Page {
	return result.Page{Hits: []result.Hit{}, Collections: []string{}}
}

func (s *Service) observe(outcome string) {
	if s.requests != nil {
		s.requests.WithLabelValues(outcome).Inc()
	}
}
