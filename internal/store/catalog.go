package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vmelnik/bazaar-data/internal/model"
)

// CatalogStore resolves item names against the catalog tables.
type CatalogStore struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewCatalogStore creates a catalog store.
func NewCatalogStore(db *pgxpool.Pool, logger *slog.Logger) *CatalogStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogStore{db: db, logger: logger}
}

// ItemByName looks up a catalog item by exact name.
func (s *CatalogStore) ItemByName(ctx context.Context, name string) (model.Item, error) {
	const q = `
		SELECT i.id, i.name, COALESCE(c.name, ''), COALESCE(i.modifications, ''), COALESCE(i.tolerance, 0.1)
		FROM items i
		LEFT JOIN categories c ON c.id = i.category_id
		WHERE i.name = $1
	`

	var (
		item model.Item
		mods string
	)
	err := s.db.QueryRow(ctx, q, name).Scan(&item.ID, &item.Name, &item.Category, &mods, &item.Tolerance)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Item{}, fmt.Errorf("item %q: %w", name, model.ErrUnknownItem)
	}
	if err != nil {
		return model.Item{}, fmt.Errorf("query item by name: %w", err)
	}

	item.Levels, err = parseLevels(mods)
	if err != nil {
		return model.Item{}, fmt.Errorf("item %d: %w", item.ID, err)
	}

	return item, nil
}

// parseLevels parses the comma-separated modification-level column into a
// sorted slice. An empty column means the item is unmodifiable.
func parseLevels(csv string) ([]int, error) {
	csv = strings.TrimSpace(csv)
	if csv == "" {
		return nil, nil
	}

	parts := strings.Split(csv, ",")
	levels := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		level, err := strconv.Atoi(p)
		if err != nil || level < 0 {
			return nil, fmt.Errorf("bad modification level %q", p)
		}
		levels = append(levels, level)
	}

	sort.Ints(levels)
	return levels, nil
}
