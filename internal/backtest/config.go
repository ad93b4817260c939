package backtest

import (
	"fmt"

	"github.com/yourusername/goalcast/internal/config"
	"github.com/yourusername/goalcast/internal/goalmodel"
	"github.com/yourusername/goalcast/internal/staking"
)

// Mode selects how the orchestrator schedules model fits
type Mode string

const (
	// ModeStatic fits once on the leading SplitFraction of matches
	ModeStatic Mode = "static"
	// ModeWalkForward refits on a rolling window of past matches
	ModeWalkForward Mode = "walk_forward"
)

// Config holds the engine parameters; it carries no viper or file state
type Config struct {
	Mode            Mode
	InitialBankroll float64
	SplitFraction   float64
	// CalibrationFraction is the tail share of each training slice reserved for the calibrator
	CalibrationFraction   float64
	WindowSize            int
	RefitEvery            int
	MinTrainingSize       int
	OverUnderLine         float64
	Fit                   goalmodel.FitOptions
	MinCalibrationSamples int
	MonteCarloIterations  int
	MonteCarloSeed        int64
}

// DefaultConfig returns a walk-forward configuration over two seasons of history
func DefaultConfig() Config {
	return Config{
		Mode:                  ModeWalkForward,
		InitialBankroll:       100,
		SplitFraction:         0.7,
		CalibrationFraction:   0.2,
		WindowSize:            760,
		RefitEvery:            38,
		MinTrainingSize:       200,
		OverUnderLine:         2.5,
		Fit:                   goalmodel.DefaultFitOptions(),
		MinCalibrationSamples: 30,
		MonteCarloSeed:        42,
	}
}

// FromConfig converts app config to engine config and staking rules
func FromConfig(cfg *config.Config) (Config, staking.Rules, error) {
	if cfg == nil {
		return Config{}, staking.Rules{}, fmt.Errorf("config is required")
	}

	bt := Config{
		Mode:                  Mode(cfg.Backtest.Mode),
		InitialBankroll:       cfg.Backtest.InitialBankroll,
		SplitFraction:         cfg.Backtest.SplitFraction,
		CalibrationFraction:   cfg.Calibration.Fraction,
		WindowSize:            cfg.Backtest.WindowSize,
		RefitEvery:            cfg.Backtest.RefitEvery,
		MinTrainingSize:       cfg.Backtest.MinTrainingSize,
		OverUnderLine:         cfg.Data.DefaultOverUnder,
		MinCalibrationSamples: cfg.Calibration.MinSamples,
		MonteCarloIterations:  cfg.Backtest.MonteCarloIterations,
		MonteCarloSeed:        cfg.Backtest.MonteCarloSeed,
		Fit: goalmodel.FitOptions{
			MaxGoals:          cfg.Model.MaxGoals,
			MaxIterations:     cfg.Model.MaxIterations,
			MaxEvaluations:    cfg.Model.MaxEvaluations,
			Restarts:          cfg.Model.Restarts,
			SimplexSize:       cfg.Model.SimplexSize,
			GradientTolerance: cfg.Model.GradientTolerance,
		},
	}

	rules := staking.Rules{
		OneXTwo:          marketRule(cfg.Staking.OneXTwo),
		OverUnder:        marketRule(cfg.Staking.OverUnder),
		AsianHandicap:    marketRule(cfg.Staking.AsianHandicap),
		MaxStakeFraction: cfg.Staking.MaxStakeFraction,
		MinStake:         cfg.Staking.MinStake,
		Throttle: staking.DrawdownThrottle{
			Threshold: cfg.Staking.DrawdownThreshold,
			Reduction: cfg.Staking.DrawdownReduction,
		},
	}

	if err := bt.Validate(); err != nil {
		return Config{}, staking.Rules{}, err
	}
	if err := rules.Validate(); err != nil {
		return Config{}, staking.Rules{}, fmt.Errorf("invalid staking rules: %w", err)
	}
	return bt, rules, nil
}

func marketRule(c config.MarketRuleConfig) staking.MarketRule {
	return staking.MarketRule{
		EdgeThreshold:   c.EdgeThreshold,
		MinOdds:         c.MinOdds,
		MaxOdds:         c.MaxOdds,
		KellyMultiplier: c.KellyMultiplier,
		Disabled:        !c.Enabled,
	}
}

// Validate validates backtest config parameters
func (c Config) Validate() error {
	if c.Mode != ModeStatic && c.Mode != ModeWalkForward {
		return fmt.Errorf("unknown backtest mode %q", c.Mode)
	}
	if c.InitialBankroll <= 0 {
		return fmt.Errorf("initial bankroll must be positive")
	}
	if c.CalibrationFraction < 0 || c.CalibrationFraction >= 1 {
		return fmt.Errorf("calibration fraction must be in [0,1)")
	}
	if c.OverUnderLine <= 0 {
		return fmt.Errorf("over/under line must be positive")
	}
	switch c.Mode {
	case ModeStatic:
		if c.SplitFraction <= 0 || c.SplitFraction >= 1 {
			return fmt.Errorf("split fraction must be in (0,1)")
		}
	case ModeWalkForward:
		if c.RefitEvery < 1 {
			return fmt.Errorf("refit interval must be at least 1")
		}
		if c.MinTrainingSize < 2 {
			return fmt.Errorf("minimum training size must be at least 2")
		}
		if c.WindowSize < 0 {
			return fmt.Errorf("window size cannot be negative")
		}
		if c.WindowSize > 0 && c.WindowSize < c.MinTrainingSize {
			return fmt.Errorf("window size %d below minimum training size %d", c.WindowSize, c.MinTrainingSize)
		}
	}
	if c.MonteCarloIterations < 0 {
		return fmt.Errorf("monte carlo iterations cannot be negative")
	}
	return c.Fit.Validate()
}
