package backtest

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/goalcast/internal/logger"
	"github.com/yourusername/goalcast/internal/markets"
	"github.com/yourusername/goalcast/internal/models"
	"github.com/yourusername/goalcast/internal/staking"
)

var baseDate = time.Date(2022, 8, 6, 15, 0, 0, 0, time.UTC)

type stubForecaster struct {
	forecast markets.MatchForecast
	err      error
}

func (s stubForecaster) Forecast(models.Match) (markets.MatchForecast, error) {
	return s.forecast, s.err
}

// stubFitter returns fc, failing on the calls listed in failOn (0-based)
type stubFitter struct {
	fc     Forecaster
	failOn map[int]error
	calls  int
}

func (s *stubFitter) Fit(_ context.Context, _, _ []models.Match) (Forecaster, error) {
	defer func() { s.calls++ }()
	if err, ok := s.failOn[s.calls]; ok {
		return nil, err
	}
	return s.fc, nil
}

// spyFitter records what each fit saw and checks each prediction against it
type spyFitter struct {
	forecast   markets.MatchForecast
	fits       []spyFit
	violations []string
	predicted  int
}

type spyFit struct {
	train, calib []models.Match
	through      time.Time
}

type spyForecaster struct {
	spy     *spyFitter
	through time.Time
}

func (s *spyFitter) Fit(_ context.Context, train, calib []models.Match) (Forecaster, error) {
	fit := spyFit{train: train, calib: calib}
	for _, m := range append(append([]models.Match{}, train...), calib...) {
		if m.Date.After(fit.through) {
			fit.through = m.Date
		}
	}
	s.fits = append(s.fits, fit)
	return spyForecaster{spy: s, through: fit.through}, nil
}

func (f spyForecaster) Forecast(m models.Match) (markets.MatchForecast, error) {
	f.spy.predicted++
	if !f.through.Before(m.Date) {
		f.spy.violations = append(f.spy.violations,
			fmt.Sprintf("%s predicted with data through %s", m.Date, f.through))
	}
	return f.spy.forecast, nil
}

func homeFavourite(pHome float64) markets.MatchForecast {
	rest := (1 - pHome) / 2
	return markets.MatchForecast{
		OneXTwo:   markets.OneXTwoPrediction{Home: pHome, Draw: rest, Away: rest},
		OverUnder: markets.OverUnderPrediction{Line: 2.5, Over: 0.5, Under: 0.5},
	}
}

func fixture(i int, hg, ag int, o models.MatchOdds) models.Match {
	return models.Match{
		Date:      baseDate.AddDate(0, 0, i),
		League:    "E0",
		HomeTeam:  fmt.Sprintf("Home%d", i%5),
		AwayTeam:  fmt.Sprintf("Away%d", i%7),
		HomeGoals: hg,
		AwayGoals: ag,
		EloHome:   1500,
		EloAway:   1500,
		Odds:      o,
	}
}

func fullOneXTwo(h, d, a float64) models.MatchOdds {
	return models.MatchOdds{Home: models.Float(h), Draw: models.Float(d), Away: models.Float(a)}
}

func testConfig(mode Mode) Config {
	cfg := DefaultConfig()
	cfg.Mode = mode
	cfg.WindowSize = 0
	cfg.MinTrainingSize = 4
	cfg.RefitEvery = 3
	cfg.CalibrationFraction = 0
	return cfg
}

func newTestEngine(t *testing.T, cfg Config, rules staking.Rules, fitter Fitter) *Engine {
	t.Helper()
	engine, err := NewEngine(cfg, rules, fitter, logger.Discard())
	require.NoError(t, err)
	return engine
}

// roundRobin repeats a six-match cycle between three equally rated teams.
// The cycle has three home wins, two draws and one away win, and the 1X2
// prices are the exact inverse of those frequencies.
func roundRobin(cycles int) []models.Match {
	cycle := []struct {
		home, away string
		hg, ag     int
	}{
		{"A", "B", 2, 1},
		{"B", "C", 1, 0},
		{"C", "A", 1, 1},
		{"A", "C", 0, 2},
		{"B", "A", 3, 1},
		{"C", "B", 0, 0},
	}
	var out []models.Match
	for c := 0; c < cycles; c++ {
		for _, f := range cycle {
			out = append(out, models.Match{
				Date:      baseDate.AddDate(0, 0, len(out)),
				League:    "RR",
				HomeTeam:  f.home,
				AwayTeam:  f.away,
				HomeGoals: f.hg,
				AwayGoals: f.ag,
				EloHome:   1500,
				EloAway:   1500,
				Odds:      fullOneXTwo(2.0, 3.0, 6.0),
			})
		}
	}
	return out
}

func TestZeroEdgeRoundRobinPlacesNoBets(t *testing.T) {
	static := DefaultConfig()
	static.Mode = ModeStatic
	static.SplitFraction = 0.6
	static.CalibrationFraction = 0.5
	static.MinCalibrationSamples = 1
	static.Fit.GradientTolerance = 0.1

	walk := static
	walk.Mode = ModeWalkForward
	walk.WindowSize = 0
	walk.MinTrainingSize = 24
	walk.RefitEvery = 12

	for _, cfg := range []Config{static, walk} {
		t.Run(string(cfg.Mode), func(t *testing.T) {
			engine := newTestEngine(t, cfg, staking.DefaultRules(), nil)
			result, err := engine.Run(context.Background(), roundRobin(10))
			require.NoError(t, err)

			assert.Zero(t, result.Summary.Bets)
			assert.Empty(t, result.Ledger)
			assert.InDelta(t, 100.0, result.Summary.FinalBankroll, 1e-12)
			assert.Equal(t, result.Run.Matches, result.Skips[SkipNoCandidate])
			for _, w := range result.Windows {
				assert.True(t, w.Converged, "window %d: %s", w.Index, w.Error)
			}
		})
	}
}

func TestWalkForwardNoLookAhead(t *testing.T) {
	var matches []models.Match
	for i := 0; i < 40; i++ {
		matches = append(matches, fixture(i, i%3, (i+1)%2, fullOneXTwo(2.0, 3.6, 4.0)))
	}

	cfg := testConfig(ModeWalkForward)
	cfg.MinTrainingSize = 10
	cfg.RefitEvery = 5
	cfg.WindowSize = 20
	cfg.CalibrationFraction = 0.25

	spy := &spyFitter{forecast: homeFavourite(0.6)}
	result, err := newTestEngine(t, cfg, staking.DefaultRules(), spy).Run(context.Background(), matches)
	require.NoError(t, err)

	assert.Empty(t, spy.violations)
	assert.Equal(t, 30, spy.predicted)
	require.Len(t, spy.fits, 6)
	for _, fit := range spy.fits {
		assert.LessOrEqual(t, len(fit.train)+len(fit.calib), 20)
		require.NotEmpty(t, fit.calib)
		assert.True(t, fit.train[len(fit.train)-1].Date.Before(fit.calib[0].Date), "calibration slice follows training")
	}
	// First fit at index 10 sees matches 0..9 with the last quarter held out
	assert.Len(t, spy.fits[0].train, 8)
	assert.Len(t, spy.fits[0].calib, 2)
	// Later fits are capped by the window
	assert.Len(t, spy.fits[5].train, 15)
	assert.Len(t, spy.fits[5].calib, 5)
	assert.NotEmpty(t, result.Ledger)
}

func TestRunIsInvariantToInputOrder(t *testing.T) {
	var matches []models.Match
	for i := 0; i < 30; i++ {
		matches = append(matches, fixture(i, (i*7)%4, (i*3)%3, fullOneXTwo(2.0, 3.6, 4.0)))
	}
	cfg := testConfig(ModeWalkForward)

	first, err := newTestEngine(t, cfg, staking.DefaultRules(), &spyFitter{forecast: homeFavourite(0.6)}).
		Run(context.Background(), matches)
	require.NoError(t, err)

	shuffled := append([]models.Match{}, matches...)
	rand.New(rand.NewSource(3)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	second, err := newTestEngine(t, cfg, staking.DefaultRules(), &spyFitter{forecast: homeFavourite(0.6)}).
		Run(context.Background(), shuffled)
	require.NoError(t, err)

	require.NotEmpty(t, first.Ledger)
	assert.Equal(t, first.Ledger, second.Ledger)
	assert.Equal(t, first.Summary, second.Summary)
}

func TestDrawdownThrottleHalvesStake(t *testing.T) {
	var matches []models.Match
	for i := 0; i < 10; i++ {
		// Home priced alone so the market baseline falls back to 0.5
		matches = append(matches, fixture(i, 0, 1, models.MatchOdds{Home: models.Float(2.0)}))
	}
	cfg := testConfig(ModeStatic)
	cfg.SplitFraction = 0.2

	rules := staking.DefaultRules()
	rules.MaxStakeFraction = 1
	rules.Throttle = staking.DrawdownThrottle{Threshold: 0.1, Reduction: 0.5}

	fitter := &stubFitter{fc: stubForecaster{forecast: homeFavourite(0.8)}}
	result, err := newTestEngine(t, cfg, rules, fitter).Run(context.Background(), matches)
	require.NoError(t, err)
	require.Len(t, result.Ledger, 8)

	full := staking.KellyFraction(0.8, 2.0, 0.25)
	assert.InDelta(t, 100*full, result.Ledger[0].Stake, 1e-9)
	assert.InDelta(t, result.Ledger[0].Equity*full/2, result.Ledger[1].Stake, 1e-9)
	assert.InDelta(t, result.Ledger[1].Equity*full/2, result.Ledger[2].Stake, 1e-9)
	for _, e := range result.Ledger {
		assert.Equal(t, models.ResultLoss, e.Result)
		assert.InDelta(t, 0.8, e.ModelProb, 1e-12)
	}
	assert.Greater(t, result.Summary.MaxDrawdown, 0.1)
}

func TestStaticFitFailureAborts(t *testing.T) {
	var matches []models.Match
	for i := 0; i < 10; i++ {
		matches = append(matches, fixture(i, 1, 0, fullOneXTwo(2.0, 3.6, 4.0)))
	}
	fitter := &stubFitter{failOn: map[int]error{0: models.ErrNotConverged}}
	_, err := newTestEngine(t, testConfig(ModeStatic), staking.DefaultRules(), fitter).
		Run(context.Background(), matches)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNotConverged)
}

func TestWalkForwardSkipsUntilNextGoodFit(t *testing.T) {
	var matches []models.Match
	for i := 0; i < 13; i++ {
		matches = append(matches, fixture(i, 1, 0, fullOneXTwo(2.0, 3.6, 4.0)))
	}
	fitter := &stubFitter{
		fc:     stubForecaster{forecast: homeFavourite(0.6)},
		failOn: map[int]error{0: models.ErrNotConverged},
	}
	result, err := newTestEngine(t, testConfig(ModeWalkForward), staking.DefaultRules(), fitter).
		Run(context.Background(), matches)
	require.NoError(t, err)

	require.Len(t, result.Windows, 3)
	assert.False(t, result.Windows[0].Converged)
	assert.NotEmpty(t, result.Windows[0].Error)
	assert.True(t, result.Windows[1].Converged)
	assert.Equal(t, 3, result.Skips[SkipNoModel])
	assert.Equal(t, 9, result.Run.Matches)
	assert.Len(t, result.Ledger, 6)
	assert.InDelta(t, 2.0/3.0, ConvergenceRate(result.Windows), 1e-12)
}

func TestSkipReasons(t *testing.T) {
	matches := []models.Match{
		fixture(0, 1, 0, fullOneXTwo(2.0, 3.6, 4.0)),
		fixture(1, 1, 0, fullOneXTwo(2.0, 3.6, 4.0)),
		fixture(2, 1, 0, models.MatchOdds{}),
		fixture(3, 1, 0, fullOneXTwo(1.5, 4.0, 7.0)),
	}
	cfg := testConfig(ModeStatic)
	cfg.SplitFraction = 0.5

	fitter := &stubFitter{fc: stubForecaster{forecast: homeFavourite(0.6)}}
	result, err := newTestEngine(t, cfg, staking.DefaultRules(), fitter).Run(context.Background(), matches)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skips[SkipMissingOdds])
	assert.Equal(t, 1, result.Skips[SkipNoCandidate])

	fitter = &stubFitter{fc: stubForecaster{err: fmt.Errorf("grid: %w", models.ErrInfeasibleParams)}}
	result, err = newTestEngine(t, cfg, staking.DefaultRules(), fitter).Run(context.Background(), matches)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Skips[SkipInfeasible])

	fitter = &stubFitter{fc: stubForecaster{err: models.ErrDegenerateProbabilities}}
	result, err = newTestEngine(t, cfg, staking.DefaultRules(), fitter).Run(context.Background(), matches)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Skips[SkipNaN])

	fitter = &stubFitter{fc: stubForecaster{err: errors.New("boom")}}
	_, err = newTestEngine(t, cfg, staking.DefaultRules(), fitter).Run(context.Background(), matches)
	assert.Error(t, err, "unexpected forecast errors abort")
}

func TestRunRejectsMalformedMatches(t *testing.T) {
	matches := []models.Match{
		fixture(0, 1, 0, models.MatchOdds{}),
		fixture(1, -1, 0, models.MatchOdds{}),
	}
	engine := newTestEngine(t, testConfig(ModeStatic), staking.DefaultRules(), &stubFitter{})
	_, err := engine.Run(context.Background(), matches)
	assert.ErrorIs(t, err, models.ErrMalformedRow)

	_, err = engine.Run(context.Background(), nil)
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}

func TestRunInsufficientHistory(t *testing.T) {
	matches := []models.Match{fixture(0, 1, 0, models.MatchOdds{}), fixture(1, 0, 0, models.MatchOdds{})}
	engine := newTestEngine(t, testConfig(ModeWalkForward), staking.DefaultRules(), &stubFitter{})
	_, err := engine.Run(context.Background(), matches)
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}

func TestRunCancelled(t *testing.T) {
	var matches []models.Match
	for i := 0; i < 10; i++ {
		matches = append(matches, fixture(i, 1, 0, fullOneXTwo(2.0, 3.6, 4.0)))
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fitter := &stubFitter{fc: stubForecaster{forecast: homeFavourite(0.6)}}
	_, err := newTestEngine(t, testConfig(ModeWalkForward), staking.DefaultRules(), fitter).Run(ctx, matches)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunConfigHashCoversStakingRules(t *testing.T) {
	cfg := testConfig(ModeStatic)
	matches := roundRobin(3)
	fc := stubForecaster{forecast: homeFavourite(0.6)}

	loose := staking.DefaultRules()
	strict := staking.DefaultRules()
	strict.OneXTwo.EdgeThreshold = 0.5

	a, err := newTestEngine(t, cfg, loose, &stubFitter{fc: fc}).Run(context.Background(), matches)
	require.NoError(t, err)
	b, err := newTestEngine(t, cfg, strict, &stubFitter{fc: fc}).Run(context.Background(), matches)
	require.NoError(t, err)

	assert.NotEqual(t, a.Run.ConfigHash, b.Run.ConfigHash)
	assert.Equal(t, HashConfig(cfg, loose), a.Run.ConfigHash)
}

func TestNewEngineValidates(t *testing.T) {
	cfg := testConfig(ModeStatic)
	cfg.SplitFraction = 1
	_, err := NewEngine(cfg, staking.DefaultRules(), nil, nil)
	assert.Error(t, err)

	rules := staking.DefaultRules()
	rules.MaxStakeFraction = 0
	_, err = NewEngine(testConfig(ModeStatic), rules, nil, nil)
	assert.Error(t, err)

	cfg = testConfig("rolling")
	_, err = NewEngine(cfg, staking.DefaultRules(), nil, nil)
	assert.Error(t, err)
}

func TestSplitCalibration(t *testing.T) {
	slice := make([]models.Match, 10)
	train, calib := SplitCalibration(slice, 0.3)
	assert.Len(t, train, 7)
	assert.Len(t, calib, 3)

	train, calib = SplitCalibration(slice, 0.95)
	assert.Len(t, train, 2, "goal model keeps two matches")
	assert.Len(t, calib, 8)

	train, calib = SplitCalibration(slice, 0)
	assert.Len(t, train, 10)
	assert.Empty(t, calib)
	assert.Equal(t, 10, cap(train))
}
