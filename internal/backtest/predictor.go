package backtest

import (
	"context"
	"fmt"
	"strconv"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/goalcast/internal/calibration"
	"github.com/yourusername/goalcast/internal/goalmodel"
	"github.com/yourusername/goalcast/internal/markets"
	"github.com/yourusername/goalcast/internal/models"
)

// Fitter produces a forecaster from a training slice and a disjoint calibration slice.
// Implementations must only read the matches they are given.
type Fitter interface {
	Fit(ctx context.Context, train, calib []models.Match) (Forecaster, error)
}

// Forecaster prices every market for one match
type Forecaster interface {
	Forecast(match models.Match) (markets.MatchForecast, error)
}

// diagnosed is implemented by forecasters that can report how their fit went
type diagnosed interface {
	Diagnostics() goalmodel.Diagnostics
}

// DixonColesFitter fits the goal model on the training slice and the
// 1X2 calibrator on the model's predictions for the calibration slice
type DixonColesFitter struct {
	Options               goalmodel.FitOptions
	MinCalibrationSamples int
	OverUnderLine         float64
	Logger                *logrus.Logger
}

// Fit implements Fitter
func (f DixonColesFitter) Fit(ctx context.Context, train, calib []models.Match) (Forecaster, error) {
	model, err := goalmodel.Fit(ctx, train, f.Options)
	if err != nil {
		return nil, err
	}

	cal := calibration.NewCalibrator(f.MinCalibrationSamples, f.Logger)
	if len(calib) > 0 {
		outcomes, raw := calibrationRows(model, calib)
		if len(raw) > 0 {
			if err := cal.Fit(outcomes, raw); err != nil {
				return nil, fmt.Errorf("calibrating on %d matches: %w", len(raw), err)
			}
		}
	}
	return NewPredictor(model, cal, f.OverUnderLine), nil
}

// calibrationRows predicts the holdout, dropping rows the model cannot price
func calibrationRows(model *goalmodel.Model, calib []models.Match) ([]models.Selection, [][3]float64) {
	preds, firstErr := model.Predict1X2(calib)
	outcomes := make([]models.Selection, 0, len(calib))
	raw := make([][3]float64, 0, len(calib))
	for i, p := range preds {
		a := p.Array()
		if firstErr != nil && a == [3]float64{} {
			continue
		}
		outcomes = append(outcomes, calib[i].Outcome())
		raw = append(raw, a)
	}
	return outcomes, raw
}

type cachedGrid struct {
	grid       markets.ScoreMatrix
	lambda, mu float64
}

// Predictor is an immutable fitted model plus calibrator. Score grids are
// memoised per rating difference since they depend on nothing else.
type Predictor struct {
	model         *goalmodel.Model
	calibrator    *calibration.Calibrator
	overUnderLine float64
	grids         *cache.Cache
}

// NewPredictor wraps a fitted model; a nil calibrator leaves 1X2 uncalibrated
func NewPredictor(model *goalmodel.Model, cal *calibration.Calibrator, overUnderLine float64) *Predictor {
	if overUnderLine <= 0 {
		overUnderLine = 2.5
	}
	return &Predictor{
		model:         model,
		calibrator:    cal,
		overUnderLine: overUnderLine,
		grids:         cache.New(cache.NoExpiration, 0),
	}
}

// Model returns the underlying goal model
func (p *Predictor) Model() *goalmodel.Model {
	return p.model
}

// Diagnostics reports the goal model fit
func (p *Predictor) Diagnostics() goalmodel.Diagnostics {
	return p.model.Diagnostics()
}

// Calibrated reports whether a fitted calibrator is applied to 1X2
func (p *Predictor) Calibrated() bool {
	return p.calibrator != nil && p.calibrator.Fitted()
}

func (p *Predictor) scoreGrid(eloDiff float64) (cachedGrid, error) {
	key := strconv.FormatFloat(eloDiff, 'g', -1, 64)
	if v, ok := p.grids.Get(key); ok {
		return v.(cachedGrid), nil
	}
	grid, err := p.model.ScoreMatrix(eloDiff)
	if err != nil {
		return cachedGrid{}, err
	}
	lambda, mu := p.model.Params().Intensities(eloDiff)
	entry := cachedGrid{grid: grid, lambda: lambda, mu: mu}
	p.grids.SetDefault(key, entry)
	return entry, nil
}

// Forecast implements Forecaster. The match's own over/under line is used
// when quoted, otherwise the predictor default.
func (p *Predictor) Forecast(match models.Match) (markets.MatchForecast, error) {
	g, err := p.scoreGrid(match.EloDiff())
	if err != nil {
		return markets.MatchForecast{}, err
	}
	line := match.Odds.OverUnderLine
	if line <= 0 {
		line = p.overUnderLine
	}
	f := markets.NewMatchForecast(g.grid, g.lambda, g.mu, line, match.Odds.AHLine)
	if p.Calibrated() {
		cal := p.calibrator.Transform(f.Raw1X2.Array())
		if calibration.Degenerate(cal) {
			return f, fmt.Errorf("%w: calibrated 1X2 for %s v %s", models.ErrDegenerateProbabilities, match.HomeTeam, match.AwayTeam)
		}
		f.OneXTwo = markets.FromArray(cal)
	}
	return f, nil
}
