package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vmelnik/bazaar-data/internal/model"
)

// ErrNoRate means no exchange-rate sample exists on or before the
// requested day.
var ErrNoRate = errors.New("store: no exchange rate available")

// PriceStore persists classified observations and serves the history
// queries that seed rolling buffers.
type PriceStore struct {
	db     *pgxpool.Pool
	logger *slog.Logger

	// coinItemID is the catalog item whose adena sales define the
	// coin→adena exchange rate.
	coinItemID int64
}

// NewPriceStore creates a price store.
func NewPriceStore(db *pgxpool.Pool, coinItemID int64, logger *slog.Logger) *PriceStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PriceStore{db: db, logger: logger, coinItemID: coinItemID}
}

// InsertBatch writes a batch of classified observations as one atomic batch.
func (s *PriceStore) InsertBatch(ctx context.Context, obs []model.PriceObservation) error {
	if len(obs) == 0 {
		return nil
	}

	start := time.Now()

	batch := &pgx.Batch{}
	for _, o := range obs {
		// Unclassifiable observations persist with a NULL level.
		var level any
		if o.Level != "" {
			level = o.Level
		}

		// Re-ingesting a message after a crash between flush and acknowledge
		// must not duplicate rows.
		batch.Queue(`
			INSERT INTO price_history (message_id, item_id, price, enchant_level, currency, source, timestamp)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (message_id) DO NOTHING
		`, o.MessageID, o.ItemID, o.Price, level, string(o.Currency), string(o.Source), o.Timestamp)
	}

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()

	for range obs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert price batch: %w", err)
		}
	}

	s.logger.Debug("inserted price batch",
		"count", len(obs),
		"duration", time.Since(start),
	)
	return nil
}

// RecentByLevel returns up to k most recent prices per modification level
// for the given item and currency, each slice ordered oldest to newest so
// it can seed a rolling buffer chronologically.
func (s *PriceStore) RecentByLevel(ctx context.Context, itemID int64, currency model.Currency, levels []int, k int) (map[int][]int64, error) {
	const q = `
		SELECT price
		FROM price_history
		WHERE item_id = $1 AND currency = $2 AND enchant_level = $3
		ORDER BY timestamp DESC
		LIMIT $4
	`

	out := make(map[int][]int64, len(levels))
	for _, level := range levels {
		rows, err := s.db.Query(ctx, q, itemID, string(currency), fmt.Sprint(level), k)
		if err != nil {
			return nil, fmt.Errorf("query recent prices for level %d: %w", level, err)
		}

		prices, err := pgx.CollectRows(rows, pgx.RowTo[int64])
		if err != nil {
			return nil, fmt.Errorf("collect recent prices for level %d: %w", level, err)
		}

		// Newest-first from the query; reverse into chronological order.
		for i, j := 0, len(prices)-1; i < j; i, j = i+1, j-1 {
			prices[i], prices[j] = prices[j], prices[i]
		}
		out[level] = prices
	}

	return out, nil
}

// CoinRateOn returns the coin→adena rate for the given day: the
// outlier-filtered mean adena price of the coin reference item, taken from
// that day or the most recent prior day with sales.
func (s *PriceStore) CoinRateOn(ctx context.Context, day time.Time) (int64, error) {
	// Prices outside 1.5*IQR of the day are excluded before averaging.
	const q = `
		WITH day_prices AS (
			SELECT price
			FROM price_history
			WHERE item_id = $1
			  AND currency = 'adena'
			  AND timestamp::date = (
				SELECT max(timestamp::date)
				FROM price_history
				WHERE item_id = $1 AND currency = 'adena' AND timestamp::date <= $2::date
			  )
		),
		bounds AS (
			SELECT
				percentile_cont(0.25) WITHIN GROUP (ORDER BY price) AS q1,
				percentile_cont(0.75) WITHIN GROUP (ORDER BY price) AS q3
			FROM day_prices
		)
		SELECT avg(price)::bigint
		FROM day_prices, bounds
		WHERE price BETWEEN q1 - 1.5 * (q3 - q1) AND q3 + 1.5 * (q3 - q1)
	`

	var rate *int64
	err := s.db.QueryRow(ctx, q, s.coinItemID, day).Scan(&rate)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && rate == nil) {
		return 0, ErrNoRate
	}
	if err != nil {
		return 0, fmt.Errorf("query coin rate: %w", err)
	}

	return *rate, nil
}

// RecomputeDailyStats refreshes the downstream daily aggregate view. Called
// best-effort after a successful run; the view's derivation is owned by the
// stats pipeline, not this collector.
func (s *PriceStore) RecomputeDailyStats(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, `REFRESH MATERIALIZED VIEW CONCURRENTLY daily_price_stats`); err != nil {
		return fmt.Errorf("refresh daily price stats: %w", err)
	}
	return nil
}
