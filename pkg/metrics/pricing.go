package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Latency of a single rule evaluation + price computation
	EvaluateLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pricing_evaluate_latency_seconds",
		Help:    "Latency of rule evaluation and price computation per batch",
		Buckets: prometheus.DefBuckets,
	})

	// Recompute cycles by terminal outcome (completed, failed, coalesced)
	RecomputeCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_recompute_cycles_total",
			Help: "Count of recompute cycles by outcome",
		},
		[]string{"outcome"},
	)

	// Per-batch results within recompute cycles
	RecomputeBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_recompute_batches_total",
			Help: "Count of batch recomputations by result (succeeded, failed, skipped)",
		},
		[]string{"result"},
	)

	// Out-of-range discount percentages clamped by the price computer
	DiscountClampedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pricing_discount_clamped_total",
		Help: "Count of discount percentages clamped into [0,100]",
	})

	// Recommender fallbacks to the rule-based path
	ScorerFallbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pricing_scorer_fallbacks_total",
		Help: "Count of ML scorer failures that fell back to rule-based pricing",
	})
)

func Init() {
	prometheus.MustRegister(
		EvaluateLatency,
		RecomputeCyclesTotal,
		RecomputeBatchesTotal,
		DiscountClampedTotal,
		ScorerFallbacksTotal,
	)
}
