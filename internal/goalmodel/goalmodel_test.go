package goalmodel

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/goalcast/internal/markets"
	"github.com/yourusername/goalcast/internal/models"
)

func repeatedFixture(n, homeGoals, awayGoals int, eloHome, eloAway float64) []models.Match {
	start := time.Date(2023, 8, 1, 15, 0, 0, 0, time.UTC)
	out := make([]models.Match, n)
	for i := range out {
		out[i] = models.Match{
			Date:      start.AddDate(0, 0, 7*i),
			HomeTeam:  "Strong",
			AwayTeam:  "Weak",
			HomeGoals: homeGoals,
			AwayGoals: awayGoals,
			EloHome:   eloHome,
			EloAway:   eloAway,
		}
	}
	return out
}

// knuthPoisson draws a Poisson variate for simulated fixtures
func knuthPoisson(rng *rand.Rand, lambda float64) int {
	limit := math.Exp(-lambda)
	k, p := 0, 1.0
	for {
		p *= rng.Float64()
		if p <= limit {
			return k
		}
		k++
	}
}

func simulatedSeason(t *testing.T, n int, truth Params) []models.Match {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	teams := []string{"Ajax", "Feyenoord", "PSV", "Twente", "Utrecht", "AZ"}
	start := time.Date(2022, 8, 6, 0, 0, 0, 0, time.UTC)
	out := make([]models.Match, 0, n)
	for i := 0; i < n; i++ {
		home := teams[rng.Intn(len(teams))]
		away := teams[(rng.Intn(len(teams)-1)+1+indexOf(teams, home))%len(teams)]
		eloHome := 1400 + rng.Float64()*300
		eloAway := 1400 + rng.Float64()*300
		lambda, mu := truth.Intensities(eloHome - eloAway)
		out = append(out, models.Match{
			Date:      start.AddDate(0, 0, i),
			HomeTeam:  home,
			AwayTeam:  away,
			HomeGoals: knuthPoisson(rng, lambda),
			AwayGoals: knuthPoisson(rng, mu),
			EloHome:   eloHome,
			EloAway:   eloAway,
		})
	}
	return out
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func TestTau(t *testing.T) {
	assert.InDelta(t, 0.82, Tau(0, 0, 1.5, 1.2, 0.1), 1e-12)
	assert.InDelta(t, 1.15, Tau(0, 1, 1.5, 1.2, 0.1), 1e-12)
	assert.InDelta(t, 1.12, Tau(1, 0, 1.5, 1.2, 0.1), 1e-12)
	assert.InDelta(t, 0.9, Tau(1, 1, 1.5, 1.2, 0.1), 1e-12)
	assert.Equal(t, 1.0, Tau(2, 3, 1.5, 1.2, 0.1))

	assert.True(t, Feasible(1.5, 1.2, -0.1))
	assert.False(t, Feasible(1.5, 1.2, 1.2))
}

func TestIntensitiesClamped(t *testing.T) {
	p := Params{A0: 100, B0: -100}
	lambda, mu := p.Intensities(0)
	assert.Equal(t, math.Exp(maxLogIntensity), lambda)
	assert.Equal(t, math.Exp(-maxLogIntensity), mu)
}

func TestParamsVectorRoundTrip(t *testing.T) {
	p := Params{A0: 0.1, A1: 0.2, B0: 0.3, B1: 0.4, HomeAdv: 0.5, Rho: -0.06}
	assert.Equal(t, p, ParamsFromVector(p.Vector()))
}

func TestScoreMatrixNormalised(t *testing.T) {
	m := FromParams(Params{A0: 0.1, A1: 0.6, B0: 0.05, B1: 0.4, HomeAdv: 0.25, Rho: -0.08}, 10)
	for _, d := range []float64{-600, -150, 0, 150, 600} {
		grid, err := m.ScoreMatrix(d)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, grid.Sum(), 1e-6)
		p := markets.OneXTwo(grid)
		assert.InDelta(t, 1.0, p.Home+p.Draw+p.Away, 1e-6)
	}
}

func TestScoreMatrixInfeasible(t *testing.T) {
	m := FromParams(Params{A0: 0.5, B0: 0.5, Rho: 1.5}, 10)
	_, err := m.ScoreMatrix(0)
	assert.ErrorIs(t, err, models.ErrInfeasibleParams)

	preds, err := m.Predict1X2(repeatedFixture(3, 1, 1, 1500, 1500))
	assert.ErrorIs(t, err, models.ErrInfeasibleParams)
	assert.Len(t, preds, 3)
}

func TestNegLogLikelihoodChecksUnobservedCells(t *testing.T) {
	data := newSamples(repeatedFixture(5, 2, 0, 1800, 1200))
	ok := Params{A0: 0.5, B0: -2, Rho: -0.05}
	assert.False(t, math.IsInf(negLogLikelihood(ok, data), 1))

	// τ(2,0) is 1 for any ρ, but τ(0,1) = 1+λρ goes negative
	bad := ok
	bad.Rho = -1.1
	lambda, mu := bad.Intensities(600)
	require.False(t, Feasible(lambda, mu, bad.Rho))
	assert.True(t, math.IsInf(negLogLikelihood(bad, data), 1))
}

func TestFitInsufficientData(t *testing.T) {
	_, err := Fit(context.Background(), repeatedFixture(1, 1, 0, 1500, 1500), DefaultFitOptions())
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}

func TestFitRejectsBadOptions(t *testing.T) {
	opts := DefaultFitOptions()
	opts.MaxGoals = 0
	_, err := Fit(context.Background(), repeatedFixture(5, 1, 0, 1500, 1500), opts)
	assert.Error(t, err)
}

func TestFitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Fit(ctx, repeatedFixture(20, 1, 0, 1500, 1500), DefaultFitOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

// An all 2-0 record pins λ at 2 and μ near zero, so a repeat fixture can be
// no likelier than 1-e^-2 for the home side.
func TestFitDeterministicHomeWins(t *testing.T) {
	model, err := Fit(context.Background(), repeatedFixture(40, 2, 0, 1800, 1200), DefaultFitOptions())
	require.NoError(t, err)
	assert.True(t, model.Diagnostics().Converged)

	repeat := repeatedFixture(1, 0, 0, 1800, 1200)
	preds, err := model.Predict1X2(repeat)
	require.NoError(t, err)
	assert.Greater(t, preds[0].Home, 0.85)
	assert.Greater(t, preds[0].Home, 10*preds[0].Away)

	lambda, mu := model.Params().Intensities(600)
	assert.InDelta(t, 2.0, lambda, 0.05)
	assert.Less(t, mu, 0.01)
	assert.True(t, Feasible(lambda, mu, model.Params().Rho))
	assert.Greater(t, model.Params().Rho, -1/lambda)
}

func TestFitDeterministicThreeNil(t *testing.T) {
	model, err := Fit(context.Background(), repeatedFixture(40, 3, 0, 1800, 1200), DefaultFitOptions())
	require.NoError(t, err)

	preds, err := model.Predict1X2(repeatedFixture(1, 0, 0, 1800, 1200))
	require.NoError(t, err)
	assert.Greater(t, preds[0].Home, 0.9)

	lambda, mu := model.Params().Intensities(600)
	assert.True(t, Feasible(lambda, mu, model.Params().Rho))
}

func TestFitRecoversSimulatedIntensities(t *testing.T) {
	truth := Params{A0: 0.2, A1: 0.8, B0: 0.05, B1: 0.6, HomeAdv: 0.15, Rho: 0}
	matches := simulatedSeason(t, 1500, truth)

	model, err := Fit(context.Background(), matches, DefaultFitOptions())
	require.NoError(t, err)
	diag := model.Diagnostics()
	assert.Equal(t, len(matches), diag.Samples)
	assert.LessOrEqual(t, diag.GradientNorm, DefaultFitOptions().GradientTolerance)
	assert.Greater(t, diag.Evaluations, 0)

	for _, d := range []float64{-200, 0, 200} {
		wantL, wantM := truth.Intensities(d)
		gotL, gotM := model.Params().Intensities(d)
		assert.InDelta(t, wantL, gotL, 0.15*wantL, "λ at %v", d)
		assert.InDelta(t, wantM, gotM, 0.15*wantM, "μ at %v", d)
	}
	assert.InDelta(t, 0, model.Params().Rho, 0.15)
	assert.Greater(t, model.Params().A1, 0.0)
}

func TestFitStarvedIterationsNotConverged(t *testing.T) {
	opts := DefaultFitOptions()
	opts.MaxIterations = 3
	opts.Restarts = 0
	matches := simulatedSeason(t, 300, Params{A0: 0.2, A1: 0.8, B0: 0.05, B1: 0.6, HomeAdv: 0.15})

	_, err := Fit(context.Background(), matches, opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNotConverged)
	var fitErr *FitError
	require.True(t, errors.As(err, &fitErr))
	assert.False(t, fitErr.Diagnostics.Converged)
}

func TestForecast(t *testing.T) {
	m := FromParams(Params{A0: 0.2, A1: 0.8, B0: 0.05, B1: 0.6, HomeAdv: 0.15, Rho: -0.05}, 10)
	match := repeatedFixture(1, 0, 0, 1600, 1500)[0]
	match.Odds.AHLine = models.Float(-0.25)

	f, err := m.Forecast(match, 2.5)
	require.NoError(t, err)
	require.NotNil(t, f.AsianHandicap)
	assert.InDelta(t, 1.0, f.OverUnder.Over+f.OverUnder.Under, 1e-9)

	ah, err := m.AHProbabilities(match, -0.25, models.SelectionHome)
	require.NoError(t, err)
	assert.Equal(t, f.AsianHandicap.Home, ah)

	ou, err := m.ProbOverUnder(match, 2.5)
	require.NoError(t, err)
	assert.Equal(t, f.OverUnder, ou)
}
