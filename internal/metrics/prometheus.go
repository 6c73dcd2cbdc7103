package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ChatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docuchat_chat_requests_total",
			Help: "Total chat requests by terminal status",
		},
		[]string{"status"},
	)

	StreamDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docuchat_stream_duration_seconds",
			Help:    "End-to-end chat stream duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	RetrievedDocuments = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docuchat_retrieved_documents",
			Help:    "Number of documents retrieved per question",
			Buckets: []float64{0, 1, 2, 3, 4, 5},
		},
	)

	ConfidenceScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docuchat_confidence_score",
			Help:    "Per-source confidence scores",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)

	EnrichmentOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docuchat_enrichment_outcomes_total",
			Help: "Summary enrichment outcomes by status",
		},
		[]string{"status"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docuchat_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docuchat_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	FeedbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docuchat_feedback_total",
			Help: "User feedback votes by direction",
		},
		[]string{"value"},
	)
)

func Init() {
	prometheus.MustRegister(ChatRequestsTotal)
	prometheus.MustRegister(StreamDuration)
	prometheus.MustRegister(RetrievedDocuments)
	prometheus.MustRegister(ConfidenceScore)
	prometheus.MustRegister(EnrichmentOutcomes)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(FeedbackTotal)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
