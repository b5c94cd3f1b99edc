package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventpulse_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventpulse_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"worker"},
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eventpulse_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker execution",
		},
		[]string{"worker"},
	)

	// Pipeline metrics
	EventsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventpulse_events_ingested_total",
			Help: "Total calendar events ingested",
		},
		[]string{"source", "status"}, // status: ingested|rejected
	)

	BatchItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventpulse_batch_items_total",
			Help: "Items handled by the batch pipelines",
		},
		[]string{"pipeline", "outcome"}, // outcome: processed|skipped|failed
	)

	WindowsCaptured = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventpulse_windows_captured_total",
			Help: "Candle windows captured per pair",
		},
		[]string{"pair"},
	)

	ReactionsComputed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventpulse_reactions_computed_total",
			Help: "Reactions computed by pattern",
		},
		[]string{"pattern"},
	)

	StatsRefreshed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventpulse_stats_refreshed_total",
			Help: "Statistics group recomputations",
		},
		[]string{"status"}, // status: success|error
	)

	// Provider metrics
	ProviderCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventpulse_provider_calls_total",
			Help: "Total candle provider API calls",
		},
		[]string{"resolution", "status"}, // status: success|error|rate_limited
	)

	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventpulse_provider_latency_seconds",
			Help:    "Candle provider latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"resolution"},
	)

	// Database metrics
	DBQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventpulse_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"database", "operation", "status"}, // database: postgres|clickhouse|redis
	)

	// System metrics
	KafkaMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventpulse_kafka_messages_total",
			Help: "Total Kafka messages consumed",
		},
		[]string{"topic", "status"},
	)

	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventpulse_api_requests_total",
			Help: "Total HTTP API requests",
		},
		[]string{"method", "path", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventpulse_api_request_duration_seconds",
			Help:    "HTTP API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Init registers all metrics with Prometheus
func Init() {
	prometheus.MustRegister(WorkerExecutions)
	prometheus.MustRegister(WorkerDuration)
	prometheus.MustRegister(WorkerLastRun)

	prometheus.MustRegister(EventsIngested)
	prometheus.MustRegister(BatchItems)
	prometheus.MustRegister(WindowsCaptured)
	prometheus.MustRegister(ReactionsComputed)
	prometheus.MustRegister(StatsRefreshed)

	prometheus.MustRegister(ProviderCalls)
	prometheus.MustRegister(ProviderLatency)

	prometheus.MustRegister(DBQueries)
	prometheus.MustRegister(KafkaMessages)
	prometheus.MustRegister(APIRequests)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the HTTP handler for the metrics endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}
