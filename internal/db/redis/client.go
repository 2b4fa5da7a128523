package redis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/rueidis"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/db"
	"github.com/kailas-cloud/docdex/internal/domain/mapping"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// DefaultKeyPrefix namespaces every key written by the store.
const DefaultKeyPrefix = "docdex:"

// Config holds connection parameters for a Redis store.
type Config struct {
	Addrs     []string
	Username  string
	Password  string
	DB        int
	KeyPrefix string
	Logger    *zap.Logger
}

// Store implements db.Store via rueidis on Redis 8+ (RedisJSON + RediSearch).
type Store struct {
	client rueidis.Client
	prefix string
	logger *zap.Logger

	mu       sync.RWMutex
	mappings map[string]mapping.Mapping
}

// NewStore creates a Redis store via rueidis.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH result parsing expects RESP2 array format
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return newStore(client, cfg.KeyPrefix, cfg.Logger), nil
}

func newStore(client rueidis.Client, prefix string, logger *zap.Logger) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		client:   client,
		prefix:   prefix,
		logger:   logger,
		mappings: make(map[string]mapping.Mapping),
	}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady retries Ping with exponential backoff until it succeeds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = 0

	err := backoff.Retry(func() error {
		return s.Ping(ctx)
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return fmt.Errorf("timeout waiting for database: %w", err)
	}
	return nil
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

// --- Key layout ---

func (s *Store) indexName(collection string) string {
	return s.prefix + collection + ":idx"
}

func (s *Store) docPrefix(collection string) string {
	return s.prefix + collection + ":doc:"
}

func (s *Store) docKey(collection, id string) string {
	return s.docPrefix(collection) + id
}

func (s *Store) mappingKey(collection string) string {
	return s.prefix + collection + ":mapping"
}

// isRedisErr checks if err is a Redis server error containing substr (case-insensitive).
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return containsIgnoreCase(re.Error(), substr)
}

func isUnknownIndex(err error) bool {
	return isRedisErr(err, "unknown index name") || isRedisErr(err, "no such index")
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
