package backtest

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/goalcast/internal/models"
)

func runHeader(mode Mode) models.BacktestRun {
	return models.BacktestRun{ID: uuid.New(), Mode: string(mode)}
}

func TestCalculateConsistency(t *testing.T) {
	windows := []WindowStats{
		{Bets: 3, PnL: 2},
		{Bets: 0},
		{Bets: 4, PnL: -1},
		{Bets: 1, PnL: 0.5},
	}
	assert.InDelta(t, 2.0/3.0, CalculateConsistency(windows), 1e-12)
	assert.Zero(t, CalculateConsistency(nil))
	assert.Zero(t, ConvergenceRate(nil))
}

func TestWindowROI(t *testing.T) {
	assert.InDelta(t, 0.25, WindowStats{PnL: 2, Turnover: 8}.ROI(), 1e-12)
	assert.Zero(t, WindowStats{}.ROI())
}

func TestGenerateRecommendation(t *testing.T) {
	assert.Equal(t, "NO_BETS", GenerateRecommendation(0.9, 1, Summary{}))
	assert.Equal(t, "ACCEPT", GenerateRecommendation(0.8, 0.7, Summary{Bets: 10, ROI: 0.05}))
	assert.Equal(t, "REJECT", GenerateRecommendation(0.8, 0.7, Summary{Bets: 10, ROI: -0.01}))
	assert.Equal(t, "REJECT", GenerateRecommendation(0.3, 0.7, Summary{Bets: 10, ROI: 0.01}))
	assert.Equal(t, "NEEDS_REVIEW", GenerateRecommendation(0.6, 0.9, Summary{Bets: 10, ROI: 0.01}))
}

func TestAssessRedistributesMissingEvidence(t *testing.T) {
	result := &Result{
		Run:     runHeader(ModeStatic),
		Summary: Summary{Bets: 20, ROI: 0.05, HitRate: 0.5, Sharpe: 0.1, ProfitFactor: 1.3, MaxDrawdown: 0.1},
		Windows: []WindowStats{{Converged: true, Bets: 20, PnL: 5}},
	}
	a := Assess(result, nil, DefaultWeights())
	assert.InDelta(t, CalculateCompositeScore(result.Summary), a.CompositeScore, 1e-12)
	assert.Equal(t, 1.0, a.ConvergenceRate)
	assert.Nil(t, a.MonteCarlo)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(a.ToJSON()), &decoded))
	assert.Contains(t, decoded, "composite_score")
	assert.NotContains(t, decoded, "monte_carlo")
}

func TestAssessWalkForwardUsesConsistency(t *testing.T) {
	result := &Result{
		Run:     runHeader(ModeWalkForward),
		Summary: Summary{Bets: 20, ROI: 0.05},
		Windows: []WindowStats{{Bets: 5, PnL: -1}, {Bets: 5, PnL: -2}},
	}
	mc := &MonteCarloResult{MeanReturn: -0.5}
	a := Assess(result, mc, AggregationWeights{Replay: 0, MonteCarlo: 0.5, WalkForward: 0.5})
	assert.Zero(t, a.Consistency)
	assert.Zero(t, a.CompositeScore)
	assert.Equal(t, "REJECT", a.Recommendation)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, 0.5, normalize(0, -1, 1))
	assert.Equal(t, 1.0, normalize(5, -1, 1))
	assert.Equal(t, 0.0, normalize(-5, -1, 1))
	assert.Equal(t, 0.0, normalize(3, 1, 1))
}
