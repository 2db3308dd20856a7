// Package metrics provides Prometheus instrumentation for backtest runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RunsTotal counts backtest runs by outcome.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rankbacktest_runs_total",
		Help: "Total number of backtest runs",
	}, []string{"status"})

	// FillsTotal counts executed ledger trades by side.
	FillsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rankbacktest_fills_total",
		Help: "Total number of executed simulated trades",
	}, []string{"side"})

	// SkippedTradesTotal counts targets that produced no fill.
	SkippedTradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rankbacktest_skipped_trades_total",
		Help: "Rebalance targets that did not trade",
	}, []string{"reason"})

	BucketDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rankbacktest_bucket_duration_seconds",
		Help:    "Wall time to replay one bucket",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	}, []string{"kind"})
)

const (
	Side_Buy  = "buy"
	Side_Sell = "sell"

	// the ledger logged a sub-lot volume or cash shortfall
	SkipReason_NoFill = "no_fill"
	// already at target
	SkipReason_AtTarget = "at_target"
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
