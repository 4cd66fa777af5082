package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-collector
feed:
  gateway_url: https://feed.example.com/api
  peer: pricebot
database:
  host: localhost
  port: 5432
  name: test_db
  user: testuser
  password: testpass
redis:
  addr: localhost:6379
ingest:
  coin_item_id: 793
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-collector" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-collector")
	}
	if cfg.Feed.GatewayURL != "https://feed.example.com/api" {
		t.Errorf("Feed.GatewayURL = %q", cfg.Feed.GatewayURL)
	}
	if cfg.Feed.Peer != "pricebot" {
		t.Errorf("Feed.Peer = %q, want %q", cfg.Feed.Peer, "pricebot")
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("Database.Host = %q, want %q", cfg.Database.Host, "localhost")
	}
	if cfg.Ingest.CoinItemID != 793 {
		t.Errorf("Ingest.CoinItemID = %d, want 793", cfg.Ingest.CoinItemID)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")
	t.Setenv("TEST_FEED_TOKEN", "tok-abc")

	yaml := `
instance:
  id: test-collector
feed:
  gateway_url: https://feed.example.com/api
  peer: pricebot
  token: ${TEST_FEED_TOKEN}
database:
  host: localhost
  name: test_db
  user: testuser
  password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Password != "secret123" {
		t.Errorf("Database.Password = %q, want %q", cfg.Database.Password, "secret123")
	}
	if cfg.Feed.Token != "tok-abc" {
		t.Errorf("Feed.Token = %q, want %q", cfg.Feed.Token, "tok-abc")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: test-collector
feed:
  gateway_url: https://feed.example.com/api
  peer: pricebot
database:
  host: localhost
  name: test_db
  user: testuser
  password: testpass
redis:
  addr: localhost:6379
ingest:
  coin_item_id: 793
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Feed.PageSize != DefaultFeedPageSize {
		t.Errorf("Feed.PageSize = %d, want default %d", cfg.Feed.PageSize, DefaultFeedPageSize)
	}
	if cfg.Feed.Timeout != DefaultFeedTimeout {
		t.Errorf("Feed.Timeout = %v, want default %v", cfg.Feed.Timeout, DefaultFeedTimeout)
	}
	if cfg.Database.Port != DefaultDBPort {
		t.Errorf("Database.Port = %d, want default %d", cfg.Database.Port, DefaultDBPort)
	}
	if cfg.Ingest.BufferSize != DefaultBufferSize {
		t.Errorf("Ingest.BufferSize = %d, want default %d", cfg.Ingest.BufferSize, DefaultBufferSize)
	}
	if cfg.Ingest.HistoryDepth != DefaultBufferSize {
		t.Errorf("Ingest.HistoryDepth = %d, want buffer size %d", cfg.Ingest.HistoryDepth, DefaultBufferSize)
	}
	if cfg.Ingest.PartialSaveThreshold != DefaultPartialSaveThreshold {
		t.Errorf("Ingest.PartialSaveThreshold = %d, want default %d", cfg.Ingest.PartialSaveThreshold, DefaultPartialSaveThreshold)
	}
	if cfg.Scheduler.Interval != DefaultSchedulerInterval {
		t.Errorf("Scheduler.Interval = %v, want default %v", cfg.Scheduler.Interval, DefaultSchedulerInterval)
	}
	if cfg.Metrics.Port != DefaultMetricsPort {
		t.Errorf("Metrics.Port = %d, want default %d", cfg.Metrics.Port, DefaultMetricsPort)
	}
}

func TestValidate(t *testing.T) {
	valid := CollectorConfig{
		Instance: InstanceConfig{ID: "test"},
		Feed: FeedConfig{
			GatewayURL: "https://feed.example.com/api",
			Peer:       "pricebot",
			PageSize:   100,
		},
		Database: DBConfig{
			Host: "localhost", Name: "db", User: "user", Password: "pass",
			MaxConns: 10, MinConns: 2,
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Ingest: IngestConfig{
			BufferSize:           10,
			HistoryDepth:         10,
			PartialSaveThreshold: 2500,
			CoinItemID:           793,
		},
		Metrics: MetricsConfig{Port: 9090},
	}

	tests := []struct {
		name    string
		mutate  func(*CollectorConfig)
		wantErr string
	}{
		{
			name:    "valid config",
			mutate:  func(c *CollectorConfig) {},
			wantErr: "",
		},
		{
			name:    "missing instance id",
			mutate:  func(c *CollectorConfig) { c.Instance.ID = "" },
			wantErr: "instance.id is required",
		},
		{
			name:    "missing gateway url",
			mutate:  func(c *CollectorConfig) { c.Feed.GatewayURL = "" },
			wantErr: "feed.gateway_url is required",
		},
		{
			name:    "missing peer",
			mutate:  func(c *CollectorConfig) { c.Feed.Peer = "" },
			wantErr: "feed.peer is required",
		},
		{
			name:    "missing database password",
			mutate:  func(c *CollectorConfig) { c.Database.Password = "" },
			wantErr: "database.password is required",
		},
		{
			name:    "min_conns exceeds max_conns",
			mutate:  func(c *CollectorConfig) { c.Database.MinConns = 20 },
			wantErr: "database.min_conns (20) cannot exceed max_conns (10)",
		},
		{
			name:    "missing redis addr",
			mutate:  func(c *CollectorConfig) { c.Redis.Addr = "" },
			wantErr: "redis.addr is required",
		},
		{
			name:    "missing coin item",
			mutate:  func(c *CollectorConfig) { c.Ingest.CoinItemID = 0 },
			wantErr: "ingest.coin_item_id is required",
		},
		{
			name:    "bad metrics port",
			mutate:  func(c *CollectorConfig) { c.Metrics.Port = 70000 },
			wantErr: "metrics.port must be between 1 and 65535, got 70000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
