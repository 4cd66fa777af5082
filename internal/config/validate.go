package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *CollectorConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Feed.GatewayURL == "" {
		return errors.New("feed.gateway_url is required")
	}
	if c.Feed.Peer == "" {
		return errors.New("feed.peer is required")
	}
	if c.Feed.PageSize < 1 {
		return errors.New("feed.page_size must be >= 1")
	}

	if err := c.Database.validate("database"); err != nil {
		return err
	}

	if c.Redis.Addr == "" {
		return errors.New("redis.addr is required")
	}

	if c.Ingest.BufferSize < 1 {
		return errors.New("ingest.buffer_size must be >= 1")
	}
	if c.Ingest.HistoryDepth < 1 {
		return errors.New("ingest.history_depth must be >= 1")
	}
	if c.Ingest.PartialSaveThreshold < 1 {
		return errors.New("ingest.partial_save_threshold must be >= 1")
	}
	if c.Ingest.CoinItemID == 0 {
		return errors.New("ingest.coin_item_id is required")
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
