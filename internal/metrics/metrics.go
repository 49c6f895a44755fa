package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AnalysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "plansync_analysis_duration_seconds",
			Help:    "Full analysis pipeline duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	AnalysisTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plansync_analysis_total",
			Help: "Total number of analysis runs",
		},
		[]string{"status"},
	)

	SynchronizationScore = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "plansync_synchronization_score",
			Help: "Latest overall synchronization score",
		},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plansync_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)

	VectorResultsCount = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "plansync_vector_results_count",
			Help:    "Number of vector results per objective query",
			Buckets: []float64{0, 1, 2, 5, 10, 20},
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plansync_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plansync_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	DocumentsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plansync_documents_ingested_total",
			Help: "Total plan documents ingested",
		},
		[]string{"document_type"},
	)

	FindingsDetected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plansync_findings_detected_total",
			Help: "Total findings detected",
		},
		[]string{"severity"},
	)

	ProposalsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plansync_proposals_generated_total",
			Help: "Total proposals generated",
		},
		[]string{"priority"},
	)

	ProposalsFinalized = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plansync_proposals_finalized_total",
			Help: "Total proposals accepted or rejected",
		},
		[]string{"status"},
	)
)

func Init() {
	prometheus.MustRegister(AnalysisDuration)
	prometheus.MustRegister(AnalysisTotal)
	prometheus.MustRegister(SynchronizationScore)
	prometheus.MustRegister(LLMTokensUsed)
	prometheus.MustRegister(VectorResultsCount)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(DocumentsIngested)
	prometheus.MustRegister(FindingsDetected)
	prometheus.MustRegister(ProposalsGenerated)
	prometheus.MustRegister(ProposalsFinalized)
}

func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
