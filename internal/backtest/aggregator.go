package backtest

import (
	"encoding/json"
	"math"
)

// Assessment combines a run's summary, walk-forward consistency and an
// optional Monte Carlo distribution into a single verdict
type Assessment struct {
	RunID           string             `json:"run_id"`
	Summary         Summary            `json:"summary"`
	MonteCarlo      *MonteCarloResult  `json:"monte_carlo,omitempty"`
	Consistency     float64            `json:"consistency"`
	ConvergenceRate float64            `json:"convergence_rate"`
	CompositeScore  float64            `json:"composite_score"`
	Weights         AggregationWeights `json:"weights"`
	Recommendation  string             `json:"recommendation"`
}

// AggregationWeights define weighting per evidence source
type AggregationWeights struct {
	Replay      float64 `json:"replay"`
	MonteCarlo  float64 `json:"monte_carlo"`
	WalkForward float64 `json:"walk_forward"`
}

// DefaultWeights favours the realised replay
func DefaultWeights() AggregationWeights {
	return AggregationWeights{Replay: 0.6, MonteCarlo: 0.2, WalkForward: 0.2}
}

// Assess scores a result. Missing evidence has its weight redistributed to the replay.
func Assess(result *Result, mc *MonteCarloResult, weights AggregationWeights) Assessment {
	a := Assessment{
		Summary:         result.Summary,
		MonteCarlo:      mc,
		Consistency:     CalculateConsistency(result.Windows),
		ConvergenceRate: ConvergenceRate(result.Windows),
		Weights:         weights,
		RunID:           result.Run.ID.String(),
	}

	replay := CalculateCompositeScore(result.Summary)
	score := replay * weights.Replay
	if mc != nil {
		score += normalize(mc.MeanReturn, -0.5, 1.0) * weights.MonteCarlo
	} else {
		score += replay * weights.MonteCarlo
	}
	if result.Run.Mode == string(ModeWalkForward) && len(result.Windows) > 1 {
		score += a.Consistency * weights.WalkForward
	} else {
		score += replay * weights.WalkForward
	}
	total := weights.Replay + weights.MonteCarlo + weights.WalkForward
	if total > 0 {
		score /= total
	}
	a.CompositeScore = score
	a.Recommendation = GenerateRecommendation(score, a.Consistency, result.Summary)
	return a
}

// CalculateCompositeScore calculates a [0,1] score from summary statistics
func CalculateCompositeScore(s Summary) float64 {
	sharpeScore := normalize(s.Sharpe, -0.5, 0.5)
	roiScore := normalize(s.ROI, -0.2, 0.2)
	profitFactorScore := normalize(s.ProfitFactor, 0, 3)
	drawdownPenalty := 1.0 - normalize(s.MaxDrawdown, 0, 0.5)
	hitRateScore := normalize(s.HitRate, 0, 1)

	weighted := 0.0
	weighted += sharpeScore * 0.30
	weighted += roiScore * 0.20
	weighted += profitFactorScore * 0.20
	weighted += drawdownPenalty * 0.15
	weighted += hitRateScore * 0.15
	return weighted
}

// GenerateRecommendation determines if a configuration is worth running forward
func GenerateRecommendation(score float64, consistency float64, s Summary) string {
	if s.Bets == 0 {
		return "NO_BETS"
	}
	if score > 0.7 && s.ROI > 0 && consistency > 0.6 {
		return "ACCEPT"
	}
	if score < 0.4 || s.ROI < 0 {
		return "REJECT"
	}
	return "NEEDS_REVIEW"
}

// ToJSON exports the assessment
func (a Assessment) ToJSON() string {
	data, _ := json.Marshal(a)
	return string(data)
}

func normalize(value, min, max float64) float64 {
	if max-min == 0 {
		return 0
	}
	v := (value - min) / (max - min)
	return math.Max(0, math.Min(1, v))
}
