// Package service wires data loading, the backtest engine, reporting and
// persistence into the workflows the command line tools run.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/goalcast/internal/backtest"
	"github.com/yourusername/goalcast/internal/config"
	"github.com/yourusername/goalcast/internal/datasource"
	"github.com/yourusername/goalcast/internal/logger"
	"github.com/yourusername/goalcast/internal/models"
	"github.com/yourusername/goalcast/internal/repository"
)

// RunOptions selects the artefacts a backtest run produces
type RunOptions struct {
	// Mode overrides backtest.mode when set
	Mode        string
	LedgerPath  string
	SummaryPath string
	HTMLPath    string
	// EquityPath receives the bankroll curve, JSON for .json paths and CSV otherwise
	EquityPath string
	MonteCarlo bool
	Persist    bool
}

// RunReport is the outcome of one service run
type RunReport struct {
	Result     *backtest.Result
	Assessment backtest.Assessment
	MonteCarlo *backtest.MonteCarloResult
	Validation ValidationReport
	Duration   time.Duration
}

// BacktestService runs configured backtests end to end
type BacktestService struct {
	cfg       *config.Config
	sources   *datasource.Factory
	validator *DataValidator
	runs      repository.RunRepository
	fitter    backtest.Fitter
	logger    *logrus.Logger
}

// NewBacktestService creates a service. runs may be nil when persistence is unused.
func NewBacktestService(cfg *config.Config, runs repository.RunRepository, log *logrus.Logger) *BacktestService {
	if log == nil {
		log = logger.Discard()
	}
	return &BacktestService{
		cfg:       cfg,
		sources:   datasource.NewFactory(log),
		validator: NewDataValidator(log),
		runs:      runs,
		logger:    log,
	}
}

// WithFitter replaces the default Dixon-Coles fitter
func (s *BacktestService) WithFitter(f backtest.Fitter) *BacktestService {
	s.fitter = f
	return s
}

// LoadMatches reads and validates the configured history
func (s *BacktestService) LoadMatches(ctx context.Context) ([]models.Match, ValidationReport, error) {
	src, err := s.sources.NewSource(s.cfg.Data)
	if err != nil {
		return nil, ValidationReport{}, fmt.Errorf("data source: %w", err)
	}
	matches, err := src.Load(ctx)
	if err != nil {
		return nil, ValidationReport{}, fmt.Errorf("loading %s: %w", src.Name(), err)
	}
	cleaned, report := s.validator.Clean(matches)
	s.logger.WithFields(logrus.Fields{
		"source":  src.Name(),
		"loaded":  len(matches),
		"usable":  len(cleaned),
		"cleared": report.OddsCleared,
	}).Info("Loaded match history")
	return cleaned, report, nil
}

// Run loads the history, replays it and writes the requested artefacts
func (s *BacktestService) Run(ctx context.Context, opts RunOptions) (*RunReport, error) {
	start := time.Now()
	if opts.Persist && s.runs == nil {
		return nil, fmt.Errorf("persistence requested but no database is configured")
	}

	btCfg, rules, err := backtest.FromConfig(s.cfg)
	if err != nil {
		return nil, err
	}
	if opts.Mode != "" {
		btCfg.Mode = backtest.Mode(opts.Mode)
	}
	engine, err := backtest.NewEngine(btCfg, rules, s.fitter, s.logger)
	if err != nil {
		return nil, err
	}

	matches, validation, err := s.LoadMatches(ctx)
	if err != nil {
		return nil, err
	}

	result, err := engine.Run(ctx, matches)
	if err != nil {
		return nil, fmt.Errorf("backtest failed: %w", err)
	}

	report := &RunReport{Result: result, Validation: validation}
	if opts.MonteCarlo {
		mc, err := backtest.RunMonteCarlo(ctx, result.Ledger, backtest.MonteCarloConfig{
			Iterations:      btCfg.MonteCarloIterations,
			Seed:            btCfg.MonteCarloSeed,
			InitialBankroll: btCfg.InitialBankroll,
		})
		if err != nil {
			return nil, fmt.Errorf("monte carlo: %w", err)
		}
		report.MonteCarlo = &mc
	}
	report.Assessment = backtest.Assess(result, report.MonteCarlo, backtest.DefaultWeights())

	if err := s.writeArtefacts(report, opts); err != nil {
		return nil, err
	}
	if opts.Persist {
		if err := s.persist(ctx, result); err != nil {
			return nil, err
		}
	}

	report.Duration = time.Since(start)
	return report, nil
}

func (s *BacktestService) writeArtefacts(report *RunReport, opts RunOptions) error {
	result := report.Result
	if opts.LedgerPath != "" {
		if err := backtest.WriteLedgerFile(opts.LedgerPath, result.Ledger); err != nil {
			return fmt.Errorf("writing ledger: %w", err)
		}
		s.logger.WithField("path", opts.LedgerPath).Info("Wrote ledger")
	}
	if opts.SummaryPath != "" {
		if err := backtest.WriteSummaryJSON(result, report.Assessment, opts.SummaryPath); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
		s.logger.WithField("path", opts.SummaryPath).Info("Wrote summary")
	}
	if opts.HTMLPath != "" {
		if err := backtest.GenerateHTMLReport(result, report.Assessment, opts.HTMLPath); err != nil {
			return fmt.Errorf("writing html report: %w", err)
		}
	}
	if opts.EquityPath != "" {
		if err := backtest.WriteEquityFile(opts.EquityPath, result.EquityCurve); err != nil {
			return fmt.Errorf("writing equity curve: %w", err)
		}
		s.logger.WithField("path", opts.EquityPath).Info("Wrote equity curve")
	}
	return nil
}

func (s *BacktestService) persist(ctx context.Context, result *backtest.Result) error {
	run := result.Run
	if err := s.runs.SaveRun(ctx, &run); err != nil {
		return err
	}
	if err := s.runs.SaveLedger(ctx, run.ID, result.Ledger); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"run_id": run.ID.String(),
		"bets":   len(result.Ledger),
	}).Info("Persisted backtest run")
	return nil
}
