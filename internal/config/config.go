package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the docdex configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Search   SearchConfig   `yaml:"search"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// Database drivers.
const (
	DriverBleve = "bleve"
	DriverRedis = "redis"
)

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int   `yaml:"port"`
	ReadTimeoutSec  int   `yaml:"read_timeout_sec"`
	WriteTimeoutSec int   `yaml:"write_timeout_sec"`
	ShutdownSec     int   `yaml:"shutdown_timeout_sec"`
	MaxUploadMB     int64 `yaml:"max_upload_mb"`
}

// DatabaseConfig holds search backend settings.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // bleve, redis (default: bleve)

	// Path is the bleve index directory; empty keeps indexes in memory.
	Path string `yaml:"path"`

	Addrs     []string `yaml:"addrs"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	KeyPrefix string   `yaml:"key_prefix"`

	ReadinessTimeout int `yaml:"readiness_timeout_sec"`
	RequestTimeout   int `yaml:"request_timeout_sec"`
}

// SearchConfig holds query settings.
type SearchConfig struct {
	ExpandMaxKeys  int `yaml:"expand_max_keys"`
	ExistsCacheSec int `yaml:"exists_cache_sec"`
}

// IngestConfig holds ingestion settings.
type IngestConfig struct {
	ChunkSize     int    `yaml:"chunk_size"`
	SampleRows    int    `yaml:"sample_rows"`
	MaxFields     int    `yaml:"max_fields"`
	JobTTLMin     int    `yaml:"job_ttl_min"`
	JobTimeoutMin int    `yaml:"job_timeout_min"`
	UploadDir     string `yaml:"upload_dir"`
	// AllowLocalPaths lets API callers ingest files already on the server.
	AllowLocalPaths bool `yaml:"allow_local_paths"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxUploadMB <= 0 {
		c.HTTP.MaxUploadMB = 512
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverBleve
	}
	if c.Database.KeyPrefix == "" {
		c.Database.KeyPrefix = "docdex:"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.RequestTimeout <= 0 {
		c.Database.RequestTimeout = 30
	}
	if c.Search.ExpandMaxKeys <= 0 {
		c.Search.ExpandMaxKeys = 500
	}
	if c.Search.ExistsCacheSec <= 0 {
		c.Search.ExistsCacheSec = 5
	}
	if c.Ingest.ChunkSize <= 0 {
		c.Ingest.ChunkSize = 500
	}
	if c.Ingest.SampleRows <= 0 {
		c.Ingest.SampleRows = 200
	}
	if c.Ingest.MaxFields <= 0 {
		c.Ingest.MaxFields = 200
	}
	if c.Ingest.JobTTLMin <= 0 {
		c.Ingest.JobTTLMin = 60
	}
	if c.Ingest.JobTimeoutMin <= 0 {
		c.Ingest.JobTimeoutMin = 120
	}
	if c.Ingest.UploadDir == "" {
		c.Ingest.UploadDir = filepath.Join(os.TempDir(), "docdex-uploads")
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverBleve:
	case DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for the redis driver")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverBleve, DriverRedis, c.Database.Driver)
	}
	if c.Ingest.ChunkSize > 10000 {
		return fmt.Errorf("ingest.chunk_size must be at most 10000, got %d", c.Ingest.ChunkSize)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
