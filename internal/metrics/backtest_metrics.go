package metrics

import "github.com/prometheus/client_golang/prometheus"

// Backtest counter vectors
var (
	BacktestRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backtest_runs_total",
		Help:      "Total number of backtest runs by mode and status",
	}, []string{"mode", "status"})
	ModelFitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "model_fits_total",
		Help:      "Goal model fits by outcome",
	}, []string{"status"})
)

// Backtest histograms
var (
	BacktestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "backtest_duration_seconds",
		Help:      "Duration of backtest runs in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})
	ModelFitDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "model_fit_duration_seconds",
		Help:      "Duration of goal model fits in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})
)

// RecordBacktestRun records a backtest run event.
// mode should be one of: "static", "walk_forward"
// status should be one of: "success", "failure", "cancelled"
func RecordBacktestRun(mode, status string) {
	BacktestRunsTotal.WithLabelValues(mode, status).Inc()
}

// RecordBacktestDuration records backtest duration.
func RecordBacktestDuration(durationSeconds float64) {
	BacktestDuration.Observe(durationSeconds)
}

// RecordModelFit records a goal model fit and its duration.
// status should be one of: "converged", "rejected"
func RecordModelFit(status string, durationSeconds float64) {
	ModelFitsTotal.WithLabelValues(status).Inc()
	ModelFitDuration.Observe(durationSeconds)
}
