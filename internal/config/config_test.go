package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 0},
		Database: DatabaseConfig{Driver: DriverBleve},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_Driver(t *testing.T) {
	tests := []struct {
		name    string
		db      DatabaseConfig
		wantErr bool
	}{
		{"bleve in memory", DatabaseConfig{Driver: DriverBleve}, false},
		{"redis with addrs", DatabaseConfig{Driver: DriverRedis, Addrs: []string{"localhost:6379"}}, false},
		{"redis without addrs", DatabaseConfig{Driver: DriverRedis}, true},
		{"unknown driver", DatabaseConfig{Driver: "valkey"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{HTTP: HTTPConfig{Port: 8080}, Database: tt.db}
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ChunkSize(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Driver: DriverBleve},
		Ingest:   IngestConfig{ChunkSize: 20000},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for oversized chunk")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 30 {
		t.Errorf("expected WriteTimeoutSec=30, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Database.Driver != DriverBleve {
		t.Errorf("expected driver %q, got %q", DriverBleve, cfg.Database.Driver)
	}
	if cfg.Database.KeyPrefix != "docdex:" {
		t.Errorf("expected KeyPrefix='docdex:', got %q", cfg.Database.KeyPrefix)
	}
	if cfg.Search.ExpandMaxKeys != 500 {
		t.Errorf("expected ExpandMaxKeys=500, got %d", cfg.Search.ExpandMaxKeys)
	}
	if cfg.Ingest.ChunkSize != 500 || cfg.Ingest.SampleRows != 200 || cfg.Ingest.MaxFields != 200 {
		t.Errorf("unexpected ingest defaults: %+v", cfg.Ingest)
	}
	if cfg.Ingest.UploadDir == "" {
		t.Error("expected an upload dir")
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database: DatabaseConfig{Driver: DriverRedis, KeyPrefix: "custom:"},
		Ingest:   IngestConfig{ChunkSize: 100, UploadDir: "/data/uploads"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Database.Driver != DriverRedis || cfg.Database.KeyPrefix != "custom:" {
		t.Errorf("database overridden: %+v", cfg.Database)
	}
	if cfg.Ingest.ChunkSize != 100 || cfg.Ingest.UploadDir != "/data/uploads" {
		t.Errorf("ingest overridden: %+v", cfg.Ingest)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("DOCDEX_TEST_PORT", "9090")
	in := []byte("port: ${DOCDEX_TEST_PORT}\npath: ${DOCDEX_TEST_UNSET:-/var/lib/docdex}\nkey: ${DOCDEX_TEST_UNSET}\n")
	want := "port: 9090\npath: /var/lib/docdex\nkey: \n"
	if got := string(expandEnvVars(in)); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLoad_FromConfigDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := "http:\n  port: 8181\ndatabase:\n  driver: bleve\ningest:\n  chunk_size: 250\n"
	if err := os.WriteFile(filepath.Join(dir, "config", "unittest.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, err := Load("unittest")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Port != 8181 || cfg.Ingest.ChunkSize != 250 || cfg.Ingest.SampleRows != 200 {
		t.Errorf("cfg = %+v", cfg)
	}
}
