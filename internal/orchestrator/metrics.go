package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studypilot_pipeline_runs_total",
		Help: "Number of pipeline runs started.",
	})

	runsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studypilot_pipeline_run_failures_total",
		Help: "Number of pipeline runs that ended in an error.",
	})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "studypilot_pipeline_run_duration_seconds",
		Help:    "End-to-end duration of successful pipeline runs.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "studypilot_pipeline_stage_duration_seconds",
		Help:    "Duration of individual pipeline stages.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"stage"})
)
