// Package metrics exposes Prometheus counters for the ingestion pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline holds the collector's Prometheus instruments.
type Pipeline struct {
	MessagesFetched  prometheus.Counter
	MessagesSkipped  *prometheus.CounterVec // reason: parse_error | unknown_item
	Observations     *prometheus.CounterVec // result: exact | range | boundary | override | unclassifiable
	Flushes          prometheus.Counter
	FlushedRows      prometheus.Counter
	Runs             *prometheus.CounterVec // outcome: completed | failed | cancelled | noop
	RunDuration      prometheus.Histogram
	CoinConversions  prometheus.Counter
	CacheInvalidated prometheus.Counter
}

// New registers the pipeline metrics on the given registerer. Pass
// prometheus.DefaultRegisterer in production; tests use a fresh registry.
func New(reg prometheus.Registerer) *Pipeline {
	factory := promauto.With(reg)

	return &Pipeline{
		MessagesFetched: factory.NewCounter(prometheus.CounterOpts{
			Name: "collector_messages_fetched_total",
			Help: "Unread feed messages fetched.",
		}),
		MessagesSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "collector_messages_skipped_total",
			Help: "Messages skipped during parsing or item resolution.",
		}, []string{"reason"}),
		Observations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "collector_observations_total",
			Help: "Classified price observations by result kind.",
		}, []string{"result"}),
		Flushes: factory.NewCounter(prometheus.CounterOpts{
			Name: "collector_flushes_total",
			Help: "Persist-and-acknowledge flushes.",
		}),
		FlushedRows: factory.NewCounter(prometheus.CounterOpts{
			Name: "collector_flushed_rows_total",
			Help: "Observations persisted across all flushes.",
		}),
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "collector_runs_total",
			Help: "Ingestion runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "collector_run_duration_seconds",
			Help:    "Wall time of one ingestion run.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		CoinConversions: factory.NewCounter(prometheus.CounterOpts{
			Name: "collector_coin_conversions_total",
			Help: "Observations classified via the coin-to-adena rate.",
		}),
		CacheInvalidated: factory.NewCounter(prometheus.CounterOpts{
			Name: "collector_cache_invalidations_total",
			Help: "Successful post-run cache invalidations.",
		}),
	}
}
