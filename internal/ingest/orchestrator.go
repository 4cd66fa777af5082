package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vmelnik/bazaar-data/internal/classify"
	"github.com/vmelnik/bazaar-data/internal/feed"
	"github.com/vmelnik/bazaar-data/internal/metrics"
	"github.com/vmelnik/bazaar-data/internal/model"
	"github.com/vmelnik/bazaar-data/internal/parser"
)

// MessageSource pages unread feed messages and acknowledges progress.
type MessageSource interface {
	UnreadCount(ctx context.Context) (int, error)
	Messages(ctx context.Context, limit int, beforeID int64) ([]feed.Message, error)
	Acknowledge(ctx context.Context, maxID int64) error
}

// Catalog resolves item names. Lookups for uncatalogued names return an
// error wrapping model.ErrUnknownItem.
type Catalog interface {
	ItemByName(ctx context.Context, name string) (model.Item, error)
}

// History serves persisted price history for buffer seeding and the
// coin→adena exchange rate.
type History interface {
	RecentByLevel(ctx context.Context, itemID int64, currency model.Currency, levels []int, k int) (map[int][]int64, error)
	CoinRateOn(ctx context.Context, day time.Time) (int64, error)
}

// Persister writes classified observations as one atomic batch.
type Persister interface {
	InsertBatch(ctx context.Context, obs []model.PriceObservation) error
}

// Invalidator wipes the read-side cache after a successful run.
type Invalidator interface {
	InvalidateAll(ctx context.Context) error
}

// Recomputer signals the downstream stats pipeline to refresh. Best effort.
type Recomputer interface {
	RecomputeDailyStats(ctx context.Context) error
}

// State is the orchestrator's current run phase, exposed for health checks.
type State int32

const (
	StateIdle State = iota
	StateFetching
	StateParsing
	StateClassifying
	StatePersisting
	StateAcknowledging
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateParsing:
		return "parsing"
	case StateClassifying:
		return "classifying"
	case StatePersisting:
		return "persisting"
	case StateAcknowledging:
		return "acknowledging"
	default:
		return "unknown"
	}
}

// Config holds orchestrator settings.
type Config struct {
	PageSize             int // max messages per fetch page
	BufferSize           int // rolling-buffer capacity per (item, currency, level)
	HistoryDepth         int // persisted prices fetched per level when seeding
	PartialSaveThreshold int // observations per persist-and-acknowledge flush
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		PageSize:             100,
		BufferSize:           10,
		HistoryDepth:         10,
		PartialSaveThreshold: 2500,
	}
}

// Orchestrator drives one ingestion run end to end: page unread messages,
// parse, resolve, classify against rolling history, persist in flushes, and
// acknowledge progress.
type Orchestrator struct {
	cfg        Config
	source     MessageSource
	catalog    Catalog
	history    History
	persister  Persister
	cache      Invalidator // optional
	stats      Recomputer  // optional
	classifier *classify.Classifier
	logger     *slog.Logger
	metrics    *metrics.Pipeline

	state atomic.Int32
}

// New creates an Orchestrator. cache and stats may be nil; their post-run
// steps are then skipped. A nil metrics pipeline gets a discard registry.
func New(
	cfg Config,
	source MessageSource,
	catalog Catalog,
	history History,
	persister Persister,
	cache Invalidator,
	stats Recomputer,
	classifier *classify.Classifier,
	m *metrics.Pipeline,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}
	if classifier == nil {
		classifier = classify.New()
	}
	return &Orchestrator{
		cfg:        cfg,
		source:     source,
		catalog:    catalog,
		history:    history,
		persister:  persister,
		cache:      cache,
		stats:      stats,
		classifier: classifier,
		metrics:    m,
		logger:     logger,
	}
}

// State returns the current run phase.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(int32(s))
}

// Run executes one ingestion run. Per-message faults are logged and
// skipped; source faults abort the remainder of the run after the feed
// client's retries are exhausted, preserving already-flushed progress.
// Cancellation propagates immediately.
func (o *Orchestrator) Run(ctx context.Context) error {
	logger := o.logger.With("run_id", uuid.NewString())
	start := time.Now()
	defer func() {
		o.metrics.RunDuration.Observe(time.Since(start).Seconds())
		o.setState(StateIdle)
	}()

	err := o.run(ctx, logger)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		o.metrics.Runs.WithLabelValues("cancelled").Inc()
		return err
	default:
		o.metrics.Runs.WithLabelValues("failed").Inc()
		return err
	}
}

func (o *Orchestrator) run(ctx context.Context, logger *slog.Logger) error {
	o.setState(StateFetching)
	msgs, err := o.fetchUnread(ctx, logger)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		logger.Info("no unread messages")
		o.metrics.Runs.WithLabelValues("noop").Inc()
		return nil
	}

	o.setState(StateParsing)
	observations, items, err := o.parseAndResolve(ctx, logger, msgs)
	if err != nil {
		return err
	}

	frontier := newAckFrontier(msgs, observations)

	// Classification order is (item name, currency, timestamp), not arrival
	// order: rolling buffers for a key must fill chronologically even though
	// messages interleave across items.
	sort.Slice(observations, func(i, j int) bool {
		a, b := observations[i], observations[j]
		if a.ItemName != b.ItemName {
			return a.ItemName < b.ItemName
		}
		if a.Currency != b.Currency {
			return a.Currency < b.Currency
		}
		return a.Timestamp.Before(b.Timestamp)
	})

	o.setState(StateClassifying)
	buffers := newBufferSet(o.cfg.BufferSize)
	batch := make([]model.PriceObservation, 0, o.cfg.PartialSaveThreshold)

	for _, obs := range observations {
		if err := ctx.Err(); err != nil {
			return err
		}

		res := o.classifyObservation(ctx, logger, obs, items[obs.ItemName], buffers)
		obs.Level = res.Label
		o.metrics.Observations.WithLabelValues(resultKind(res)).Inc()

		batch = append(batch, obs)
		if len(batch) >= o.cfg.PartialSaveThreshold {
			if err := o.flush(ctx, logger, batch, frontier); err != nil {
				return err
			}
			batch = batch[:0]
			o.setState(StateClassifying)
		}
	}

	if err := o.flush(ctx, logger, batch, frontier); err != nil {
		return err
	}

	// Skipped messages count as seen too: with every observation persisted
	// the frontier reaches the newest fetched message, so the next run never
	// refetches it. A no-op when the last flush already acknowledged it.
	if safe, ok := frontier.advance(); ok {
		o.setState(StateAcknowledging)
		if err := o.source.Acknowledge(ctx, safe); err != nil {
			return fmt.Errorf("acknowledge run: %w", err)
		}
	}

	o.postRun(ctx, logger)

	logger.Info("ingestion run complete",
		"messages", len(msgs),
		"observations", len(observations),
	)
	o.metrics.Runs.WithLabelValues("completed").Inc()
	return nil
}

// fetchUnread pages backward from the newest message until the unread count
// is satisfied or the source runs dry, then restores chronological order.
func (o *Orchestrator) fetchUnread(ctx context.Context, logger *slog.Logger) ([]feed.Message, error) {
	unread, err := o.source.UnreadCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("unread count: %w", err)
	}
	if unread == 0 {
		return nil, nil
	}

	var (
		msgs     []feed.Message
		beforeID int64
	)
	for len(msgs) < unread {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		limit := o.cfg.PageSize
		if remaining := unread - len(msgs); remaining < limit {
			limit = remaining
		}

		page, err := o.source.Messages(ctx, limit, beforeID)
		if err != nil {
			return nil, fmt.Errorf("fetch message page: %w", err)
		}
		if len(page) == 0 {
			break
		}

		msgs = append(msgs, page...)
		for _, m := range page {
			if beforeID == 0 || m.ID < beforeID {
				beforeID = m.ID
			}
		}
	}

	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ID < msgs[j].ID })

	logger.Info("fetched unread messages", "unread", unread, "fetched", len(msgs))
	o.metrics.MessagesFetched.Add(float64(len(msgs)))
	return msgs, nil
}

// parseAndResolve turns messages into observation drafts, skipping and
// logging unparsable messages and unknown items. Item lookups are cached
// for the run.
func (o *Orchestrator) parseAndResolve(ctx context.Context, logger *slog.Logger, msgs []feed.Message) ([]model.PriceObservation, map[string]model.Item, error) {
	items := make(map[string]model.Item)
	misses := make(map[string]struct{})
	observations := make([]model.PriceObservation, 0, len(msgs))

	for _, msg := range msgs {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if msg.Text == "" {
			continue
		}

		draft, err := parser.Parse(msg.Text)
		if err != nil {
			logger.Warn("skipping unparsable message", "message_id", msg.ID, "error", err)
			o.metrics.MessagesSkipped.WithLabelValues("parse_error").Inc()
			continue
		}
		if draft.Currency == model.CurrencyUnknown {
			logger.Warn("message has no recognizable trade venue", "message_id", msg.ID)
		}

		if _, missed := misses[draft.ItemName]; missed {
			o.metrics.MessagesSkipped.WithLabelValues("unknown_item").Inc()
			continue
		}

		item, ok := items[draft.ItemName]
		if !ok {
			item, err = o.catalog.ItemByName(ctx, draft.ItemName)
			if err != nil {
				if errors.Is(err, model.ErrUnknownItem) {
					logger.Warn("skipping unknown item", "item", draft.ItemName, "message_id", msg.ID)
					o.metrics.MessagesSkipped.WithLabelValues("unknown_item").Inc()
					misses[draft.ItemName] = struct{}{}
					continue
				}
				return nil, nil, fmt.Errorf("resolve item %q: %w", draft.ItemName, err)
			}
			items[draft.ItemName] = item
		}

		observations = append(observations, model.PriceObservation{
			MessageID: msg.ID,
			ItemID:    item.ID,
			ItemName:  item.Name,
			Price:     draft.Price,
			Currency:  draft.Currency,
			Source:    draft.Source,
			Timestamp: msg.SentAt,
		})
	}

	return observations, items, nil
}

// classifyObservation assigns a classification result, maintaining the
// run's rolling buffers. Faults degrade to unclassifiable; they never abort
// the run.
func (o *Orchestrator) classifyObservation(ctx context.Context, logger *slog.Logger, obs model.PriceObservation, item model.Item, buffers *bufferSet) classify.Result {
	levels := item.Levels
	if len(levels) == 0 {
		return classify.Result{}
	}

	// Single-tier items are labeled directly; the banding heuristic has
	// nothing to decide.
	if len(levels) == 1 {
		return classify.Result{Label: strconv.Itoa(levels[0]), Level: levels[0], Exact: true}
	}

	if item.Tolerance <= 0 {
		logger.Warn("classification fault: item has no tolerance",
			"item", item.Name,
			"message_id", obs.MessageID,
		)
		return classify.Result{}
	}

	o.seedBuffers(ctx, logger, buffers, item, obs.Currency)
	windows := buffers.windows(item.ID, obs.Currency, levels)

	// A coin observation with thin coin history gets one shot at the adena
	// bands via the day's exchange rate.
	if obs.Currency == model.CurrencyCoin && hasEmptyWindow(windows, levels) {
		if res, ok := o.classifyViaRate(ctx, logger, obs, item, buffers); ok {
			return res
		}
	}

	res := o.classifier.Classify(obs, item, windows)
	if res.Exact {
		buffers.push(item.ID, obs.Currency, res.Level, obs.Price)
	}
	return res
}

// classifyViaRate converts a coin price to its adena equivalent using the
// same-day exchange rate and classifies against the adena bands. On a
// definite match the original coin price feeds the coin buffer, so later
// coin observations in the run classify without another conversion.
func (o *Orchestrator) classifyViaRate(ctx context.Context, logger *slog.Logger, obs model.PriceObservation, item model.Item, buffers *bufferSet) (classify.Result, bool) {
	rate, err := o.history.CoinRateOn(ctx, obs.Timestamp)
	if err != nil || rate <= 0 {
		logger.Debug("coin rate unavailable, falling back to coin bands",
			"item", item.Name,
			"day", obs.Timestamp.Format("2006-01-02"),
			"error", err,
		)
		return classify.Result{}, false
	}

	o.seedBuffers(ctx, logger, buffers, item, model.CurrencyAdena)
	adenaWindows := buffers.windows(item.ID, model.CurrencyAdena, item.Levels)

	converted := obs
	converted.Price = obs.Price * rate
	converted.Currency = model.CurrencyAdena

	res := o.classifier.Classify(converted, item, adenaWindows)
	if res.Label == "" {
		return classify.Result{}, false
	}

	o.metrics.CoinConversions.Inc()
	if res.Exact {
		buffers.push(item.ID, model.CurrencyCoin, res.Level, obs.Price)
	}
	return res, true
}

// seedBuffers loads persisted history for an (item, currency) key once per
// run. A seeding fault leaves the key with empty buffers rather than
// aborting: affected observations degrade to unclassifiable.
func (o *Orchestrator) seedBuffers(ctx context.Context, logger *slog.Logger, buffers *bufferSet, item model.Item, currency model.Currency) {
	if buffers.isSeeded(item.ID, currency) {
		return
	}

	histories, err := o.history.RecentByLevel(ctx, item.ID, currency, item.Levels, o.cfg.HistoryDepth)
	if err != nil {
		logger.Warn("seeding rolling buffers failed",
			"item", item.Name,
			"currency", currency,
			"error", err,
		)
		histories = nil
	}
	buffers.seed(item.ID, currency, histories)
}

// flush persists the batch, then acknowledges up to the safe frontier.
// Acknowledgement strictly follows a successful persist and never passes an
// unpersisted message id, making each flush a crash-resilient checkpoint.
func (o *Orchestrator) flush(ctx context.Context, logger *slog.Logger, batch []model.PriceObservation, frontier *ackFrontier) error {
	if len(batch) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	o.setState(StatePersisting)
	if err := o.persister.InsertBatch(ctx, batch); err != nil {
		return fmt.Errorf("persist batch: %w", err)
	}
	o.metrics.Flushes.Inc()
	o.metrics.FlushedRows.Add(float64(len(batch)))

	for _, obs := range batch {
		frontier.markPersisted(obs.MessageID)
	}

	if safe, ok := frontier.advance(); ok {
		o.setState(StateAcknowledging)
		if err := o.source.Acknowledge(ctx, safe); err != nil {
			return fmt.Errorf("acknowledge batch: %w", err)
		}
		logger.Debug("flushed batch", "count", len(batch), "acknowledged", safe)
		return nil
	}

	logger.Debug("flushed batch", "count", len(batch))
	return nil
}

// postRun fires the cache invalidation and the downstream recompute signal.
// Both are best effort: failures are logged, never fatal to the run.
func (o *Orchestrator) postRun(ctx context.Context, logger *slog.Logger) {
	if o.cache != nil {
		if err := o.cache.InvalidateAll(ctx); err != nil {
			logger.Warn("cache invalidation failed", "error", err)
		} else {
			o.metrics.CacheInvalidated.Inc()
		}
	}

	if o.stats != nil {
		if err := o.stats.RecomputeDailyStats(ctx); err != nil {
			logger.Warn("daily stats recompute failed", "error", err)
		}
	}
}

// hasEmptyWindow reports whether any declared level lacks samples.
func hasEmptyWindow(windows map[int][]int64, levels []int) bool {
	for _, level := range levels {
		if len(windows[level]) == 0 {
			return true
		}
	}
	return false
}

// resultKind maps a classification result onto a metrics label.
func resultKind(res classify.Result) string {
	switch {
	case res.Exact:
		return "exact"
	case res.Label == "":
		return "unclassifiable"
	case strings.HasPrefix(res.Label, "<") || strings.HasPrefix(res.Label, ">"):
		return "boundary"
	case strings.Contains(res.Label, "-"):
		return "range"
	default:
		return "override"
	}
}
