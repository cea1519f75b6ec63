package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gosafety_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gosafety_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	analyticsCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gosafety_analytics_cache_lookups_total",
		Help: "Analytics result cache lookups by dimension and result (hit or miss)",
	}, []string{"dimension", "result"})

	analyticsComputeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gosafety_analytics_compute_duration_seconds",
		Help:    "Time spent loading records and aggregating them on a cache miss",
		Buckets: prometheus.DefBuckets,
	}, []string{"dimension"})

	analyticsCacheInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gosafety_analytics_cache_invalidations_total",
		Help: "Number of times the analytics result cache was cleared",
	})

	outboxPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gosafety_outbox_events_total",
		Help: "Outbox events handled by the relay, by result",
	}, []string{"result"})

	outboxBacklog = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gosafety_outbox_pending_events",
		Help: "Outbox events not yet delivered, by event type",
	}, []string{"event_type"})

	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gosafety_login_attempts_total",
		Help: "Login attempts by result",
	}, []string{"result"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func ObserveCacheLookup(dimension string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	analyticsCacheLookups.WithLabelValues(dimension, result).Inc()
}

func ObserveCompute(dimension string, duration time.Duration) {
	analyticsComputeDuration.WithLabelValues(dimension).Observe(duration.Seconds())
}

func ObserveCacheInvalidation() {
	analyticsCacheInvalidations.Inc()
}

// ObserveOutbox counts a relay attempt; result is "sent" or "failed".
func ObserveOutbox(result string) {
	outboxPublished.WithLabelValues(result).Inc()
}

// SetOutboxBacklog replaces the backlog gauge; event types missing from
// counts drop out.
func SetOutboxBacklog(counts map[string]int) {
	outboxBacklog.Reset()
	for eventType, n := range counts {
		outboxBacklog.WithLabelValues(eventType).Set(float64(n))
	}
}

// ObserveLogin counts a login attempt; result is one of success, invalid, locked.
func ObserveLogin(result string) {
	loginAttempts.WithLabelValues(result).Inc()
}
