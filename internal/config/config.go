package config

import "time"

// CollectorConfig is the root configuration for a collector instance.
type CollectorConfig struct {
	Instance  InstanceConfig  `yaml:"instance"`
	Feed      FeedConfig      `yaml:"feed"`
	Database  DBConfig        `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// InstanceConfig identifies this collector.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// FeedConfig holds chat-feed gateway settings.
type FeedConfig struct {
	GatewayURL string        `yaml:"gateway_url"`
	StreamURL  string        `yaml:"stream_url"` // optional; empty disables the realtime nudge
	Token      string        `yaml:"token"`
	Peer       string        `yaml:"peer"` // feed identity the price bot posts under
	PageSize   int           `yaml:"page_size"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// DBConfig holds the Postgres connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// RedisConfig holds the cache connection.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// IngestConfig holds classification and batching settings.
type IngestConfig struct {
	BufferSize           int      `yaml:"buffer_size"`            // rolling-buffer capacity per (item, currency, level)
	HistoryDepth         int      `yaml:"history_depth"`          // persisted prices fetched per level when seeding
	PartialSaveThreshold int      `yaml:"partial_save_threshold"` // observations per flush
	SetCategories        []string `yaml:"set_categories"`         // categories eligible for the Set override
	CoinItemID           int64    `yaml:"coin_item_id"`           // catalog item whose adena history defines the coin rate
}

// SchedulerConfig holds the periodic trigger settings.
type SchedulerConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// MetricsConfig holds the health/metrics HTTP server settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
