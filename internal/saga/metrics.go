package saga

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// runsTotal counts runs by outcome and failed stage
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agentai_saga_runs_total",
		Help: "Composite agent creations by outcome and failed stage",
	}, []string{"outcome", "stage"})

	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agentai_saga_run_duration_seconds",
		Help:    "Composite agent creation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
	}, []string{"outcome"})

	// compensationsTotal counts cleanup deletes by resource kind and result
	compensationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agentai_saga_compensations_total",
		Help: "Compensating deletes by resource kind and result",
	}, []string{"kind", "result"})
)
