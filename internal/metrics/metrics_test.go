package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistry(t *testing.T) {
	// Initialize the registry
	InitRegistry()
	registry := GetRegistry()

	assert.NotNil(t, registry)
	assert.IsType(t, &prometheus.Registry{}, registry)
	assert.Same(t, registry, InitRegistry())
}

func TestRecordBetPlaced(t *testing.T) {
	InitRegistry()
	before := testutil.ToFloat64(BetsPlacedTotal.WithLabelValues("AH"))

	RecordBetPlaced("AH")
	RecordBetPlaced("AH")

	assert.Equal(t, before+2, testutil.ToFloat64(BetsPlacedTotal.WithLabelValues("AH")))
}

func TestRecordBetSettled(t *testing.T) {
	InitRegistry()
	before := testutil.ToFloat64(BetsSettledTotal.WithLabelValues("1X2", "WIN"))

	RecordBetSettled("1X2", "WIN")

	assert.Equal(t, before+1, testutil.ToFloat64(BetsSettledTotal.WithLabelValues("1X2", "WIN")))
}

func TestRecordMatchSkipped(t *testing.T) {
	InitRegistry()
	before := testutil.ToFloat64(MatchesSkippedTotal.WithLabelValues("no_model"))

	RecordMatchSkipped("no_model")

	assert.Equal(t, before+1, testutil.ToFloat64(MatchesSkippedTotal.WithLabelValues("no_model")))
}

func TestGauges(t *testing.T) {
	InitRegistry()

	tests := []struct {
		name     string
		bankroll float64
		drawdown float64
	}{
		{name: "starting bankroll", bankroll: 100, drawdown: 0},
		{name: "in drawdown", bankroll: 82.5, drawdown: 0.175},
		{name: "ruined", bankroll: 0, drawdown: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			UpdateBankroll(tt.bankroll)
			UpdateDrawdown(tt.drawdown)
			assert.Equal(t, tt.bankroll, testutil.ToFloat64(CurrentBankroll))
			assert.Equal(t, tt.drawdown, testutil.ToFloat64(CurrentDrawdown))
		})
	}
}

func TestBacktestMetrics(t *testing.T) {
	InitRegistry()
	before := testutil.ToFloat64(BacktestRunsTotal.WithLabelValues("walk_forward", "success"))

	assert.NotPanics(t, func() {
		RecordBacktestRun("walk_forward", "success")
		RecordBacktestDuration(1.5)
		RecordModelFit("converged", 0.2)
		RecordModelFit("rejected", 0.4)
	})

	assert.Equal(t, before+1, testutil.ToFloat64(BacktestRunsTotal.WithLabelValues("walk_forward", "success")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(ModelFitsTotal.WithLabelValues("rejected")), 1.0)
}

func TestMetricsHandler(t *testing.T) {
	InitRegistry()
	RecordBetPlaced("OU")

	handler := Handler()
	require.NotNil(t, handler)
	assert.Implements(t, (*http.Handler)(nil), handler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "goalcast_bets_placed_total")
}

func BenchmarkRecordBetPlaced(b *testing.B) {
	InitRegistry()

	for i := 0; i < b.N; i++ {
		RecordBetPlaced("1X2")
	}
}
