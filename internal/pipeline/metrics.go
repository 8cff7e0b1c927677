// Package pipeline runs the background feedback-processing loop.
//
// This file exposes the Prometheus instrumentation for the loop. Collectors
// are labelled with careful attention to cardinality:
//
//   - account: the account name, bounded by the configured account list,
//     which is small by construction (one row per seller account)
//   - stage:   pipeline stage (ingest/route/draft/dispatch)
//   - outcome: the per-item result within a stage (created, refreshed,
//     auto_eligible, drafted, sent, failed, conflict, …)
//
// Status-code style labels are avoided; the per-item outcome already encodes
// what dashboards need (throughput per stage, failure and conflict rates).
// All collectors are safe for concurrent use.
package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// cycleRuns counts account cycles by final result (ok/error).
	cycleRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_cycles_total",
			Help: "Total number of per-account pipeline cycles.",
		},
		[]string{"account", "result"},
	)

	// cycleDur records full per-account cycle duration in seconds. Buckets
	// stretch well past the HTTP defaults because a cycle spans paginated
	// marketplace reads plus generation calls with backoff.
	cycleDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_cycle_duration_seconds",
			Help:    "Duration of per-account pipeline cycles in seconds.",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"account"},
	)

	// itemOutcomes counts item-level results per stage. One increment per
	// item per stage, so rates compare directly across stages.
	itemOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_items_total",
			Help: "Total number of per-item stage outcomes.",
		},
		[]string{"account", "stage", "outcome"},
	)

	// draftDur records the draft step per item, including generation retries
	// and backoff sleeps.
	draftDur = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_draft_duration_seconds",
			Help:    "Duration of the draft step per item in seconds.",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// dispatchDur records the dispatch step per item, including submit
	// retries and backoff sleeps.
	dispatchDur = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_dispatch_duration_seconds",
			Help:    "Duration of the dispatch step per item in seconds.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)
)

func init() {
	prometheus.MustRegister(cycleRuns, cycleDur, itemOutcomes, draftDur, dispatchDur)
}

// recordOutcome adds n item outcomes for a stage, skipping zero counts to
// keep unused label combinations out of the exposition.
func recordOutcome(account, stage, outcome string, n int) {
	if n <= 0 {
		return
	}
	itemOutcomes.WithLabelValues(account, stage, outcome).Add(float64(n))
}

// observeCycle records one finished account cycle.
func observeCycle(account, result string, d time.Duration) {
	cycleRuns.WithLabelValues(account, result).Inc()
	cycleDur.WithLabelValues(account).Observe(d.Seconds())
}
