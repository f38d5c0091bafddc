package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Service metrics for monitoring scrape cycles and enrichment health
var (
	// Cycle metrics
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "twickenham_events_cycles_total",
			Help: "Total number of scrape cycles run",
		},
		[]string{"trigger", "status"},
	)

	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "twickenham_events_cycle_duration_seconds",
			Help:    "Full cycle duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 500ms to ~4min
		},
	)

	// Scraper metrics
	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "twickenham_events_fetch_duration_seconds",
			Help:    "Event page fetch duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1min
		},
	)

	FetchRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "twickenham_events_fetch_retries_total",
			Help: "Total number of fetch retry attempts",
		},
	)

	UpcomingEvents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "twickenham_events_upcoming",
			Help: "Number of upcoming events after the last cycle",
		},
	)

	// Enrichment metrics
	EnrichmentRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "twickenham_events_enrichment_requests_total",
			Help: "Total enrichment lookups by source and outcome",
		},
		[]string{"source", "status"}, // source: cache/provider/fallback
	)

	BreakerOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "twickenham_events_enrichment_breaker_open",
			Help: "Whether the enrichment circuit breaker is open (1=open, 0=closed)",
		},
	)

	// MQTT metrics
	PublishErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "twickenham_events_mqtt_publish_errors_total",
			Help: "Total number of failed MQTT publishes",
		},
	)

	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "twickenham_events_commands_total",
			Help: "Total MQTT commands received by name and outcome",
		},
		[]string{"command", "outcome"},
	)
)
