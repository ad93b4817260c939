package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/goalcast/internal/backtest"
	"github.com/yourusername/goalcast/internal/config"
	"github.com/yourusername/goalcast/internal/goalmodel"
	"github.com/yourusername/goalcast/internal/logger"
	"github.com/yourusername/goalcast/internal/markets"
	"github.com/yourusername/goalcast/internal/models"
)

// Fixture is an unplayed match to price
type Fixture struct {
	Date     time.Time
	League   string
	HomeTeam string
	AwayTeam string
	EloHome  float64
	EloAway  float64
	// AHLine is from the home side; nil skips the handicap market
	AHLine        *float64
	OverUnderLine float64
}

// Prediction is a priced fixture plus the fit it came from
type Prediction struct {
	HomeTeam    string                 `json:"home_team" yaml:"home_team"`
	AwayTeam    string                 `json:"away_team" yaml:"away_team"`
	Forecast    markets.MatchForecast  `json:"forecast" yaml:"forecast"`
	Params      *goalmodel.Params      `json:"params,omitempty" yaml:"params,omitempty"`
	Diagnostics *goalmodel.Diagnostics `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	TrainedOn   int                    `json:"trained_on" yaml:"trained_on"`
	Calibrated  bool                   `json:"calibrated" yaml:"calibrated"`
}

// PredictionService fits the goal model on the latest history and prices fixtures
type PredictionService struct {
	cfg    backtest.Config
	fitter backtest.Fitter
	logger *logrus.Logger
}

// NewPredictionService builds a service from application config
func NewPredictionService(cfg *config.Config, log *logrus.Logger) (*PredictionService, error) {
	if log == nil {
		log = logger.Discard()
	}
	btCfg, _, err := backtest.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &PredictionService{
		cfg: btCfg,
		fitter: backtest.DixonColesFitter{
			Options:               btCfg.Fit,
			MinCalibrationSamples: btCfg.MinCalibrationSamples,
			OverUnderLine:         btCfg.OverUnderLine,
			Logger:                log,
		},
		logger: log,
	}, nil
}

// WithFitter replaces the default Dixon-Coles fitter
func (s *PredictionService) WithFitter(f backtest.Fitter) *PredictionService {
	s.fitter = f
	return s
}

// Train fits on the most recent window of history. Matches dated after
// asOf are ignored; a zero asOf uses everything.
func (s *PredictionService) Train(ctx context.Context, history []models.Match, asOf time.Time) (backtest.Forecaster, int, error) {
	sorted := make([]models.Match, 0, len(history))
	for _, m := range history {
		if asOf.IsZero() || m.Date.Before(asOf) {
			sorted = append(sorted, m)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	if s.cfg.WindowSize > 0 && len(sorted) > s.cfg.WindowSize {
		sorted = sorted[len(sorted)-s.cfg.WindowSize:]
	}
	if len(sorted) < s.cfg.MinTrainingSize {
		return nil, 0, fmt.Errorf("%w: %d matches before fixture, need %d",
			models.ErrInsufficientData, len(sorted), s.cfg.MinTrainingSize)
	}

	train, calib := backtest.SplitCalibration(sorted, s.cfg.CalibrationFraction)
	fc, err := s.fitter.Fit(ctx, train, calib)
	if err != nil {
		return nil, 0, fmt.Errorf("fitting on %d matches: %w", len(train), err)
	}
	s.logger.WithFields(logrus.Fields{
		"train": len(train),
		"calib": len(calib),
	}).Info("Fitted prediction model")
	return fc, len(sorted), nil
}

// Predict prices fixture using history dated before it
func (s *PredictionService) Predict(ctx context.Context, history []models.Match, fixture Fixture) (*Prediction, error) {
	if fixture.HomeTeam == "" || fixture.AwayTeam == "" {
		return nil, fmt.Errorf("home and away teams are required")
	}
	fc, trained, err := s.Train(ctx, history, fixture.Date)
	if err != nil {
		return nil, err
	}

	match := models.Match{
		Date:     fixture.Date,
		League:   fixture.League,
		HomeTeam: fixture.HomeTeam,
		AwayTeam: fixture.AwayTeam,
		EloHome:  fixture.EloHome,
		EloAway:  fixture.EloAway,
		Odds: models.MatchOdds{
			AHLine:        fixture.AHLine,
			OverUnderLine: fixture.OverUnderLine,
		},
	}
	forecast, err := fc.Forecast(match)
	if err != nil {
		return nil, fmt.Errorf("pricing %s v %s: %w", fixture.HomeTeam, fixture.AwayTeam, err)
	}

	p := &Prediction{
		HomeTeam:  fixture.HomeTeam,
		AwayTeam:  fixture.AwayTeam,
		Forecast:  forecast,
		TrainedOn: trained,
	}
	if pred, ok := fc.(*backtest.Predictor); ok {
		params := pred.Model().Params()
		diag := pred.Diagnostics()
		p.Params = &params
		p.Diagnostics = &diag
		p.Calibrated = pred.Calibrated()
	}
	return p, nil
}
