package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the settlement worker

var (
	// Watcher lifecycle metrics
	WatchersActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cricket_watchers_active",
			Help: "Number of active watchers per hierarchy level",
		},
		[]string{"level"},
	)

	ListingFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cricket_listing_fetches_total",
			Help: "Total listing feed fetches per level and outcome",
		},
		[]string{"level", "status"},
	)

	// Timeline feed metrics
	TimelineFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cricket_timeline_fetches_total",
			Help: "Total timeline feed fetches by outcome",
		},
		[]string{"status"},
	)

	TimelineCacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cricket_timeline_cache_hits_total",
			Help: "Timeline snapshots served from the redis cache",
		},
	)

	// Session lifecycle metrics
	SessionsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cricket_sessions_created_total",
			Help: "Session documents created, by initial status",
		},
		[]string{"status"},
	)

	SessionsSettledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cricket_sessions_settled_total",
			Help: "Sessions that reached a terminal status",
		},
		[]string{"status"},
	)

	SessionPollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cricket_session_poll_duration_seconds",
			Help:    "Duration of one session resolution attempt",
			Buckets: prometheus.DefBuckets,
		},
	)

	PollersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cricket_session_pollers_active",
			Help: "Number of enrolled session pollers",
		},
	)

	// Notifier metrics
	WebhookDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cricket_webhook_deliveries_total",
			Help: "Webhook deliveries to subscribers by outcome",
		},
		[]string{"status"},
	)
)
