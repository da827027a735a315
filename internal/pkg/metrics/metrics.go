package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Вызовы МЭШ
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnify_mes_requests_total",
			Help: "Total number of MES API requests by method and status code",
		},
		[]string{"method", "status"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "learnify_mes_request_duration_seconds",
			Help:    "Duration of MES API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "learnify_mes_breaker_state",
			Help: "Circuit breaker state: 0 closed, 1 half-open, 2 open",
		},
		[]string{"name"},
	)

	// Кэш представлений
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnify_cache_lookups_total",
			Help: "Cache lookups by view and result (hit, miss, error)",
		},
		[]string{"view", "result"},
	)

	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnify_cache_invalidated_keys_total",
			Help: "Number of cache keys removed after upstream events",
		},
		[]string{"event_type"},
	)

	InvalidationsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "learnify_invalidations_dropped_total",
			Help: "Invalidation tasks dropped because the queue was full",
		},
	)

	// Планировщик
	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnify_job_runs_total",
			Help: "Scheduler job runs by job kind and result",
		},
		[]string{"job", "result"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "learnify_job_duration_seconds",
			Help:    "Duration of scheduler job runs",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"job"},
	)

	// Уведомления
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnify_notifications_sent_total",
			Help: "Outbound notifications by kind and result",
		},
		[]string{"kind", "result"},
	)

	EventsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnify_events_stored_total",
			Help: "New upstream events persisted by the diff engine",
		},
		[]string{"event_type"},
	)

	Payments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnify_payments_total",
			Help: "Star payments by kind and status",
		},
		[]string{"kind", "status"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnify_http_requests_total",
			Help: "Inbound HTTP requests by route and status",
		},
		[]string{"route", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "learnify_db_query_duration_seconds",
			Help:    "Duration of postgres queries by operation and result",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"op", "result"},
	)
)

// Result метка успеха для счётчиков
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
