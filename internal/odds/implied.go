// Package odds converts bookmaker decimal prices into probabilities.
package odds

import (
	"math"

	"github.com/yourusername/goalcast/internal/models"
	"gonum.org/v1/gonum/floats"
)

// ImpliedProbabilities returns the reciprocal of each decimal price.
// Non-positive prices produce non-finite values; callers must guard.
func ImpliedProbabilities(prices []float64) []float64 {
	implied := make([]float64, len(prices))
	for i, p := range prices {
		implied[i] = 1.0 / p
	}
	return implied
}

// RemoveOverround scales implied probabilities so they sum to one.
// A zero sum leaves the input unchanged.
func RemoveOverround(implied []float64) []float64 {
	out := append([]float64(nil), implied...)
	total := floats.Sum(out)
	if total == 0 {
		return out
	}
	floats.Scale(1.0/total, out)
	return out
}

// Overround returns the bookmaker margin: the amount the implied probabilities exceed one
func Overround(prices []float64) float64 {
	return floats.Sum(ImpliedProbabilities(prices)) - 1.0
}

// MarketProbabilities1X2 returns margin-free home/draw/away probabilities.
// ok is false when any of the three prices is missing or invalid.
func MarketProbabilities1X2(o models.MatchOdds) (home, draw, away float64, ok bool) {
	h, okH := models.ValidOdds(o.Home)
	d, okD := models.ValidOdds(o.Draw)
	a, okA := models.ValidOdds(o.Away)
	if !okH || !okD || !okA {
		return 0, 0, 0, false
	}
	p := RemoveOverround(ImpliedProbabilities([]float64{h, d, a}))
	return p[0], p[1], p[2], true
}

// MarketProbabilitiesTwoWay returns margin-free probabilities for a two-outcome market
func MarketProbabilitiesTwoWay(first, second *float64) (float64, float64, bool) {
	a, okA := models.ValidOdds(first)
	b, okB := models.ValidOdds(second)
	if !okA || !okB {
		return math.NaN(), math.NaN(), false
	}
	p := RemoveOverround(ImpliedProbabilities([]float64{a, b}))
	return p[0], p[1], true
}
