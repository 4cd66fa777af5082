package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultFeedPageSize   = 100
	DefaultFeedTimeout    = 30 * time.Second
	DefaultFeedMaxRetries = 3

	DefaultDBPort    = 5432
	DefaultDBSSLMode = "prefer"
	DefaultMaxConns  = 10
	DefaultMinConns  = 2

	DefaultBufferSize           = 10
	DefaultPartialSaveThreshold = 2500

	DefaultSchedulerInterval = 15 * time.Minute

	DefaultMetricsPort = 9090
	DefaultMetricsPath = "/metrics"
)

func (c *CollectorConfig) applyDefaults() {
	// Feed defaults
	if c.Feed.PageSize == 0 {
		c.Feed.PageSize = DefaultFeedPageSize
	}
	if c.Feed.Timeout == 0 {
		c.Feed.Timeout = DefaultFeedTimeout
	}
	if c.Feed.MaxRetries == 0 {
		c.Feed.MaxRetries = DefaultFeedMaxRetries
	}

	// Database defaults
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	// Ingest defaults
	if c.Ingest.BufferSize == 0 {
		c.Ingest.BufferSize = DefaultBufferSize
	}
	if c.Ingest.HistoryDepth == 0 {
		c.Ingest.HistoryDepth = c.Ingest.BufferSize
	}
	if c.Ingest.PartialSaveThreshold == 0 {
		c.Ingest.PartialSaveThreshold = DefaultPartialSaveThreshold
	}

	// Scheduler defaults
	if c.Scheduler.Interval == 0 {
		c.Scheduler.Interval = DefaultSchedulerInterval
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}
