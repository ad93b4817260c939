// Package markets reduces a correct-score probability grid into betting market distributions.
package markets

import (
	"fmt"
	"math"

	"github.com/yourusername/goalcast/internal/models"
	"gonum.org/v1/gonum/floats"
)

// ScoreMatrix holds joint probabilities indexed [homeGoals][awayGoals]
type ScoreMatrix [][]float64

// NewScoreMatrix allocates a zeroed (maxGoals+1) square grid
func NewScoreMatrix(maxGoals int) ScoreMatrix {
	m := make(ScoreMatrix, maxGoals+1)
	for i := range m {
		m[i] = make([]float64, maxGoals+1)
	}
	return m
}

// MaxGoals returns the largest goal count represented on either axis
func (m ScoreMatrix) MaxGoals() int {
	return len(m) - 1
}

// Cell returns P(home scores x, away scores y), zero outside the grid
func (m ScoreMatrix) Cell(x, y int) float64 {
	if x < 0 || y < 0 || x >= len(m) || y >= len(m[x]) {
		return 0
	}
	return m[x][y]
}

// Sum returns the total probability mass
func (m ScoreMatrix) Sum() float64 {
	total := 0.0
	for _, row := range m {
		total += floats.Sum(row)
	}
	return total
}

// Normalize rescales the grid in place so it sums to one.
// It fails on negative or non-finite cells and on a zero total.
func (m ScoreMatrix) Normalize() error {
	for x, row := range m {
		for y, p := range row {
			if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
				return fmt.Errorf("%w: cell %d-%d = %g", models.ErrInfeasibleParams, x, y, p)
			}
		}
	}
	total := m.Sum()
	if total <= 0 {
		return fmt.Errorf("%w: zero probability mass", models.ErrInfeasibleParams)
	}
	for _, row := range m {
		floats.Scale(1.0/total, row)
	}
	return nil
}

// GoalDiffDistribution holds the probability of each home-minus-away goal
// difference, ordered from Min upwards
type GoalDiffDistribution struct {
	Min   int
	Probs []float64
}

// Prob returns the probability of goal difference d, zero outside the grid
func (g GoalDiffDistribution) Prob(d int) float64 {
	i := d - g.Min
	if i < 0 || i >= len(g.Probs) {
		return 0
	}
	return g.Probs[i]
}

// Max returns the largest goal difference the distribution covers
func (g GoalDiffDistribution) Max() int {
	return g.Min + len(g.Probs) - 1
}

// GoalDifference collapses the grid onto the home-minus-away goal difference
func (m ScoreMatrix) GoalDifference() GoalDiffDistribution {
	if len(m) == 0 {
		return GoalDiffDistribution{}
	}
	cols := 0
	for _, row := range m {
		cols = max(cols, len(row))
	}
	dist := GoalDiffDistribution{Min: -(cols - 1), Probs: make([]float64, len(m)+cols-1)}
	for x, row := range m {
		for y, p := range row {
			dist.Probs[x-y+cols-1] += p
		}
	}
	return dist
}

// ExpectedGoals returns the mean home and away goals under the grid
func (m ScoreMatrix) ExpectedGoals() (home, away float64) {
	for x, row := range m {
		for y, p := range row {
			home += float64(x) * p
			away += float64(y) * p
		}
	}
	return home, away
}

// MostLikelyScore returns the modal scoreline and its probability
func (m ScoreMatrix) MostLikelyScore() (x, y int, p float64) {
	p = -1
	for i, row := range m {
		for j, v := range row {
			if v > p {
				x, y, p = i, j, v
			}
		}
	}
	return x, y, p
}

// BothTeamsToScore returns the probability that both sides score at least once
func (m ScoreMatrix) BothTeamsToScore() float64 {
	both := 0.0
	for x := 1; x < len(m); x++ {
		for y := 1; y < len(m[x]); y++ {
			both += m[x][y]
		}
	}
	return both
}
