package staking

import (
	"math"

	"github.com/yourusername/goalcast/internal/models"
)

// fallbackMarketProb is the baseline used when a market has no usable implied probability
const fallbackMarketProb = 0.5

// MarketBaseline returns the candidate's implied probability, or 0.5 when it has none
func MarketBaseline(c models.BetCandidate) float64 {
	if math.IsNaN(c.MarketProb) || c.MarketProb <= 0 {
		return fallbackMarketProb
	}
	return c.MarketProb
}

// Evaluate applies the market's odds filters and edge threshold and fills the
// edge and throttled Kelly fraction. The bool is false when the candidate is rejected.
func Evaluate(c models.BetCandidate, rules Rules, drawdown float64) (models.BetCandidate, bool) {
	rule, err := rules.For(c.Market)
	if err != nil || rule.Disabled {
		return c, false
	}
	if math.IsNaN(c.ModelProb) || !rule.AcceptsOdds(c.Odds) {
		return c, false
	}
	c.Edge = c.ModelProb - MarketBaseline(c)
	if !BetDecision(c.Edge, rule.EdgeThreshold) {
		return c, false
	}
	multiplier := rules.Throttle.Multiplier(rule.KellyMultiplier, drawdown)
	c.KellyFraction = KellyFraction(c.ModelProb, c.Odds, multiplier)
	if c.KellyFraction <= 0 {
		return c, false
	}
	return c, true
}

// EvaluateAll returns the accepted subset of candidates
func EvaluateAll(candidates []models.BetCandidate, rules Rules, drawdown float64) []models.BetCandidate {
	accepted := make([]models.BetCandidate, 0, len(candidates))
	for _, c := range candidates {
		if evaluated, ok := Evaluate(c, rules, drawdown); ok {
			accepted = append(accepted, evaluated)
		}
	}
	return accepted
}

// SelectBest picks the single candidate with the largest model-minus-market gap.
// Ties keep the earliest candidate.
func SelectBest(candidates []models.BetCandidate) (models.BetCandidate, bool) {
	if len(candidates) == 0 {
		return models.BetCandidate{}, false
	}
	best := candidates[0]
	bestGap := best.ModelProb - MarketBaseline(best)
	for _, c := range candidates[1:] {
		if gap := c.ModelProb - MarketBaseline(c); gap > bestGap {
			best, bestGap = c, gap
		}
	}
	return best, true
}
