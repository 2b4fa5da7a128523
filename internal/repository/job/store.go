// Package job keeps ingestion job state in process memory.
package job

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/kailas-cloud/docdex/internal/domain"
	domjob "github.com/kailas-cloud/docdex/internal/domain/job"
)

// DefaultTTL is how long finished jobs stay visible.
const DefaultTTL = time.Hour

type entry struct {
	mu  sync.Mutex
	job *domjob.Job
}

// Store is the job registry. Running jobs never expire; finished jobs
// are evicted ttl after they reach a terminal state. State is lost on restart.
type Store struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewStore creates a registry. Non-positive ttl falls back to DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		cache: cache.New(cache.NoExpiration, ttl),
		ttl:   ttl,
	}
}

// Create registers a queued job for tenant and returns its id.
func (s *Store) Create(tenant string) string {
	id := uuid.NewString()
	s.cache.Set(id, &entry{job: domjob.New(id, tenant)}, cache.NoExpiration)
	return id
}

// Update applies fn to the job under its lock. Once the job is terminal the
// entry is rescheduled to expire after the store TTL.
func (s *Store) Update(id string, fn func(j *domjob.Job)) error {
	v, ok := s.cache.Get(id)
	if !ok {
		return fmt.Errorf("job %s: %w", id, domain.ErrJobNotFound)
	}
	e := v.(*entry)

	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.job)
	if e.job.Status().IsTerminal() {
		s.cache.Set(id, e, s.ttl)
	}
	return nil
}

// Get returns a snapshot of a tenant's job. Jobs of other tenants are
// reported as not found.
func (s *Store) Get(tenant, id string) (domjob.Snapshot, error) {
	v, ok := s.cache.Get(id)
	if !ok {
		return domjob.Snapshot{}, fmt.Errorf("job %s: %w", id, domain.ErrJobNotFound)
	}
	e := v.(*entry)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.job.Tenant() != tenant {
		return domjob.Snapshot{}, fmt.Errorf("job %s: %w", id, domain.ErrJobNotFound)
	}
	return e.job.Snapshot(), nil
}

// Len returns the number of jobs held.
func (s *Store) Len() int {
	return s.cache.ItemCount()
}
