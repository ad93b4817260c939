package goalmodel

import (
	"fmt"

	"github.com/yourusername/goalcast/internal/markets"
	"github.com/yourusername/goalcast/internal/models"
	"gonum.org/v1/gonum/stat/distuv"
)

// Model is a fitted, read-only goal model
type Model struct {
	params      Params
	maxGoals    int
	diagnostics Diagnostics
}

// FromParams rebuilds a model from stored coefficients
func FromParams(p Params, maxGoals int) *Model {
	if maxGoals < 1 {
		maxGoals = DefaultFitOptions().MaxGoals
	}
	return &Model{params: p, maxGoals: maxGoals, diagnostics: Diagnostics{Status: "restored", Converged: true}}
}

// Params returns the fitted coefficients
func (m *Model) Params() Params {
	return m.params
}

// Diagnostics returns how the fit terminated
func (m *Model) Diagnostics() Diagnostics {
	return m.diagnostics
}

// MaxGoals returns the truncation of the score grid
func (m *Model) MaxGoals() int {
	return m.maxGoals
}

// ScoreMatrix builds the corrected, renormalised score grid for a rating difference.
// Parameters that push any corrected cell negative return ErrInfeasibleParams.
func (m *Model) ScoreMatrix(eloDiff float64) (markets.ScoreMatrix, error) {
	lambda, mu := m.params.Intensities(eloDiff)
	home := distuv.Poisson{Lambda: lambda}
	away := distuv.Poisson{Lambda: mu}

	grid := markets.NewScoreMatrix(m.maxGoals)
	awayProbs := make([]float64, m.maxGoals+1)
	for y := range awayProbs {
		awayProbs[y] = away.Prob(float64(y))
	}
	for x := 0; x <= m.maxGoals; x++ {
		px := home.Prob(float64(x))
		for y := 0; y <= m.maxGoals; y++ {
			grid[x][y] = px * awayProbs[y] * Tau(x, y, lambda, mu, m.params.Rho)
		}
	}
	if err := grid.Normalize(); err != nil {
		return nil, fmt.Errorf("rating difference %.1f (λ=%.3f μ=%.3f ρ=%.3f): %w",
			eloDiff, lambda, mu, m.params.Rho, err)
	}
	return grid, nil
}

// ScoreMatrixFor builds the grid for a match's covariates
func (m *Model) ScoreMatrixFor(match models.Match) (markets.ScoreMatrix, error) {
	return m.ScoreMatrix(match.EloDiff())
}

// Predict1X2 returns one partition per match. Infeasible rows hold a zero
// prediction and the first failure is returned alongside the full slice.
func (m *Model) Predict1X2(matches []models.Match) ([]markets.OneXTwoPrediction, error) {
	out := make([]markets.OneXTwoPrediction, len(matches))
	var firstErr error
	for i, match := range matches {
		grid, err := m.ScoreMatrixFor(match)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("row %d: %w", i, err)
			}
			continue
		}
		out[i] = markets.OneXTwo(grid)
	}
	return out, firstErr
}

// ProbOverUnder returns the total-goals split around line
func (m *Model) ProbOverUnder(match models.Match, line float64) (markets.OverUnderPrediction, error) {
	grid, err := m.ScoreMatrixFor(match)
	if err != nil {
		return markets.OverUnderPrediction{}, err
	}
	return markets.OverUnder(grid, line), nil
}

// AHProbabilities returns the settlement distribution for backing side at line
func (m *Model) AHProbabilities(match models.Match, line float64, side models.Selection) (markets.AHOutcome, error) {
	grid, err := m.ScoreMatrixFor(match)
	if err != nil {
		return markets.AHOutcome{}, err
	}
	return markets.AsianHandicap(grid, line, side), nil
}

// Forecast derives every market for a match; the handicap uses the match's quoted line
func (m *Model) Forecast(match models.Match, ouLine float64) (markets.MatchForecast, error) {
	grid, err := m.ScoreMatrixFor(match)
	if err != nil {
		return markets.MatchForecast{}, err
	}
	lambda, mu := m.params.Intensities(match.EloDiff())
	return markets.NewMatchForecast(grid, lambda, mu, ouLine, match.Odds.AHLine), nil
}
