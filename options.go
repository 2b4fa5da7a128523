package docdex

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

const (
	driverBleve = "bleve"
	driverRedis = "redis"
)

type clientConfig struct {
	driver    string
	path      string
	addrs     []string
	password  string
	keyPrefix string

	chunkSize  int
	sampleRows int
	jobTimeout time.Duration
	existsTTL  time.Duration

	logger *zap.Logger
}

// WithBleve stores indexes in path with the embedded engine. An empty path
// keeps everything in memory.
func WithBleve(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverBleve
		c.path = path
	})
}

// WithRedis connects to a Redis 8+ instance with JSON and search support.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverRedis
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithKeyPrefix namespaces Redis keys and indexes. Default: "docdex:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithChunkSize sets the number of documents per bulk write during ingestion.
func WithChunkSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.chunkSize = n
	})
}

// WithSampleRows sets how many rows schema inference reads per file.
func WithSampleRows(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.sampleRows = n
	})
}

// WithJobTimeout bounds a single ingestion job.
func WithJobTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.jobTimeout = d
	})
}

// WithLogger enables structured logging. Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}
