// Package staking sizes bets and decides which candidate, if any, to back.
package staking

import "math"

// KellyFraction returns the fractional Kelly stake (b·p − q)/b scaled by multiplier, floored at zero
func KellyFraction(p, odds, multiplier float64) float64 {
	if math.IsNaN(p) || odds <= 1 || math.IsNaN(odds) || multiplier <= 0 {
		return 0
	}
	p = math.Max(0, math.Min(1, p))
	b := odds - 1.0
	kelly := (b*p - (1 - p)) / b
	if kelly <= 0 {
		return 0
	}
	return kelly * multiplier
}

// BetDecision accepts a bet when edge reaches the threshold
func BetDecision(edge, threshold float64) bool {
	if math.IsNaN(edge) {
		return false
	}
	return edge >= threshold
}

// ExpectedValue returns the expected profit of staking one unit at odds with win probability p
func ExpectedValue(p, odds float64) float64 {
	return p*(odds-1) - (1 - p)
}
