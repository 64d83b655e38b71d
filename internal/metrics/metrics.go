package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Chat turns
var (
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lio_chat_turns_total",
			Help: "Chat turns by terminal state and failing stage",
		},
		[]string{"state", "stage"},
	)

	TurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lio_chat_turn_duration_seconds",
			Help:    "Chat turn latency",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lio_active_sessions",
			Help: "Sessions currently held in memory",
		},
	)
)

// Generation
var (
	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lio_generation_duration_seconds",
			Help:    "Provider completion latency",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "status"},
	)

	GenerationTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lio_generation_tokens_total",
			Help: "Tokens reported by providers",
		},
		[]string{"provider", "direction"},
	)
)

// Index
var (
	IndexOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lio_index_operations_total",
			Help: "Vector index operations by outcome",
		},
		[]string{"op", "status"},
	)

	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lio_index_search_duration_seconds",
			Help:    "Vector similarity search latency",
			Buckets: prometheus.DefBuckets,
		},
	)

	IngestedRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lio_ingested_records_total",
			Help: "Records submitted for ingestion by outcome",
		},
		[]string{"status"},
	)
)

// Jobs
var (
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lio_jobs_total",
			Help: "Background jobs by task name and final status",
		},
		[]string{"task", "status"},
	)
)

func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
