// Package backtest replays historical matches through the goal model, the
// staking rules and settlement, producing a ledger and summary statistics.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/goalcast/internal/goalmodel"
	"github.com/yourusername/goalcast/internal/logger"
	"github.com/yourusername/goalcast/internal/metrics"
	"github.com/yourusername/goalcast/internal/models"
	"github.com/yourusername/goalcast/internal/settlement"
	"github.com/yourusername/goalcast/internal/staking"
)

// Skip reasons counted in Result.Skips
const (
	SkipMissingOdds   = "missing_odds"
	SkipInfeasible    = "infeasible_prediction"
	SkipNaN           = "nan_probabilities"
	SkipNoCandidate   = "no_candidate"
	SkipStakeTooSmall = "stake_below_minimum"
	SkipNoModel       = "no_model"
)

// Engine orchestrates backtesting runs
type Engine struct {
	config Config
	rules  staking.Rules
	fitter Fitter
	logger *logrus.Logger
}

// Result is everything a run produces
type Result struct {
	Run         models.BacktestRun   `json:"run"`
	Ledger      []models.LedgerEntry `json:"-"`
	EquityCurve EquityCurve          `json:"-"`
	Summary     Summary              `json:"summary"`
	Windows     []WindowStats        `json:"windows"`
	Skips       map[string]int       `json:"skips"`
}

// NewEngine creates a new backtesting engine. A nil fitter selects the Dixon-Coles fitter.
func NewEngine(cfg Config, rules staking.Rules, fitter Fitter, log *logrus.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backtest config: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid staking rules: %w", err)
	}
	if log == nil {
		log = logrus.New()
	}
	if fitter == nil {
		fitter = DixonColesFitter{
			Options:               cfg.Fit,
			MinCalibrationSamples: cfg.MinCalibrationSamples,
			OverUnderLine:         cfg.OverUnderLine,
			Logger:                log,
		}
	}
	return &Engine{
		config: cfg,
		rules:  rules,
		fitter: fitter,
		logger: log,
	}, nil
}

// Config returns the backtest configuration
func (e *Engine) Config() Config {
	return e.config
}

// Rules returns the staking rules
func (e *Engine) Rules() staking.Rules {
	return e.rules
}

// run holds the mutable state of one Engine.Run call
type run struct {
	cfg       Config
	rules     staking.Rules
	fitter    Fitter
	log       *logger.BacktestLogger
	state     *State
	windows   []WindowStats
	skips     map[string]int
	evaluated int
	throttled bool
}

// Run sorts matches by date and replays them in the configured mode.
// Data errors and static fit failures abort; unpriceable matches are skipped and counted.
func (e *Engine) Run(ctx context.Context, matches []models.Match) (*Result, error) {
	started := time.Now().UTC()
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no matches to backtest", models.ErrInsufficientData)
	}

	sorted := make([]models.Match, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	for i, m := range sorted {
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("match %d: %w", i, err)
		}
	}

	runID := uuid.New()
	mode := string(e.config.Mode)
	r := &run{
		cfg:    e.config,
		rules:  e.rules,
		fitter: e.fitter,
		log:    logger.NewBacktestLogger(e.logger).WithRun(runID.String(), mode),
		state:  NewState(e.config.InitialBankroll, sorted[0].Date),
		skips:  make(map[string]int),
	}
	metrics.UpdateBankroll(e.config.InitialBankroll)
	metrics.UpdateDrawdown(0)

	var err error
	switch e.config.Mode {
	case ModeStatic:
		err = r.static(ctx, sorted)
	default:
		err = r.walkForward(ctx, sorted)
	}
	if err != nil {
		status := "failure"
		if ctx.Err() != nil {
			status = "cancelled"
		}
		metrics.RecordBacktestRun(mode, status)
		return nil, err
	}

	summary := Summarize(r.state.Ledger, r.state.EquityCurve, e.config.InitialBankroll)
	finished := time.Now().UTC()
	result := &Result{
		Run: models.BacktestRun{
			ID:              runID,
			Mode:            mode,
			StartedAt:       started,
			FinishedAt:      finished,
			Matches:         r.evaluated,
			Bets:            summary.Bets,
			Turnover:        summary.Turnover,
			TotalPnL:        summary.TotalPnL,
			ROI:             summary.ROI,
			HitRate:         summary.HitRate,
			Sharpe:          summary.Sharpe,
			MaxDrawdown:     summary.MaxDrawdown,
			InitialBankroll: e.config.InitialBankroll,
			FinalBankroll:   summary.FinalBankroll,
			ConfigHash:      HashConfig(e.config, e.rules),
		},
		Ledger:      r.state.Ledger,
		EquityCurve: r.state.EquityCurve,
		Summary:     summary,
		Windows:     r.windows,
		Skips:       r.skips,
	}

	metrics.RecordBacktestRun(mode, "success")
	metrics.RecordBacktestDuration(finished.Sub(started).Seconds())
	r.log.LogRunSummary(r.evaluated, summary.Bets, summary.Turnover, summary.TotalPnL,
		summary.ROI, summary.MaxDrawdown, summary.FinalBankroll)
	return result, nil
}

func (r *run) static(ctx context.Context, sorted []models.Match) error {
	split := fractionIndex(len(sorted), r.cfg.SplitFraction)
	if split < 2 || split >= len(sorted) {
		return fmt.Errorf("%w: split of %d matches leaves %d for training",
			models.ErrInsufficientData, len(sorted), split)
	}

	fc, w, err := r.fit(ctx, split, sorted[:split:split])
	r.windows = append(r.windows, w)
	if err != nil {
		return fmt.Errorf("static fit: %w", err)
	}

	for i := split; i < len(sorted); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.evaluated++
		r.windows[0].Matches++
		if err := r.evaluate(sorted[i], fc, &r.windows[0]); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) walkForward(ctx context.Context, sorted []models.Match) error {
	if len(sorted) <= r.cfg.MinTrainingSize {
		return fmt.Errorf("%w: %d matches, walk-forward needs more than %d",
			models.ErrInsufficientData, len(sorted), r.cfg.MinTrainingSize)
	}

	var fc Forecaster
	lastFit, cur := -1, -1
	for i := r.cfg.MinTrainingSize; i < len(sorted); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastFit < 0 || i-lastFit >= r.cfg.RefitEvery {
			lo := 0
			if r.cfg.WindowSize > 0 && i > r.cfg.WindowSize {
				lo = i - r.cfg.WindowSize
			}
			var w WindowStats
			var err error
			// Only indices before i are visible to the fit
			fc, w, err = r.fit(ctx, i, sorted[lo:i:i])
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				fc = nil
			}
			r.windows = append(r.windows, w)
			cur = len(r.windows) - 1
			lastFit = i
		}

		r.evaluated++
		r.windows[cur].Matches++
		if fc == nil {
			r.skip(sorted[i], SkipNoModel)
			continue
		}
		if err := r.evaluate(sorted[i], fc, &r.windows[cur]); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) fit(ctx context.Context, fitAt int, slice []models.Match) (Forecaster, WindowStats, error) {
	train, calib := SplitCalibration(slice, r.cfg.CalibrationFraction)
	w := WindowStats{
		Index:      len(r.windows),
		FitAt:      fitAt,
		TrainStart: slice[0].Date,
		TrainEnd:   slice[len(slice)-1].Date,
		TrainSize:  len(train),
		CalibSize:  len(calib),
	}

	start := time.Now()
	fc, err := r.fitter.Fit(ctx, train, calib)
	elapsed := time.Since(start)
	if err != nil {
		w.Status = "failed"
		var fitErr *goalmodel.FitError
		if errors.As(err, &fitErr) {
			w.Status = fitErr.Diagnostics.Status
			w.GradientNorm = finiteOr(fitErr.Diagnostics.GradientNorm, -1)
		}
		w.Error = err.Error()
		metrics.RecordModelFit("rejected", elapsed.Seconds())
		r.log.LogFitRejected(w.Index, len(train), err)
		return nil, w, err
	}

	w.Converged = true
	w.Status = "ok"
	nll := math.NaN()
	if d, ok := fc.(diagnosed); ok {
		diag := d.Diagnostics()
		w.Status = diag.Status
		w.GradientNorm = finiteOr(diag.GradientNorm, -1)
		nll = diag.NegLogLikelihood
	}
	metrics.RecordModelFit("converged", elapsed.Seconds())
	r.log.LogFit(w.Index, len(train), len(calib), w.Status, w.GradientNorm, nll,
		float64(elapsed.Microseconds())/1000)
	return fc, w, nil
}

// evaluate prices one match, places at most one bet and settles it.
// Only data errors are returned; every no-bet outcome is a counted skip.
func (r *run) evaluate(match models.Match, fc Forecaster, w *WindowStats) error {
	f, err := fc.Forecast(match)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInfeasibleParams):
			r.skip(match, SkipInfeasible)
			return nil
		case errors.Is(err, models.ErrDegenerateProbabilities):
			r.skip(match, SkipNaN)
			return nil
		default:
			return fmt.Errorf("forecasting %s on %s: %w", label(match), match.Date.Format("2006-01-02"), err)
		}
	}

	candidates := BuildCandidates(match, f)
	if len(candidates) == 0 {
		r.skip(match, SkipMissingOdds)
		return nil
	}

	drawdown := r.state.Drawdown()
	r.updateThrottle(drawdown)
	best, ok := staking.SelectBest(staking.EvaluateAll(candidates, r.rules, drawdown))
	if !ok {
		r.skip(match, SkipNoCandidate)
		return nil
	}
	stake := r.rules.Stake(r.state.CurrentBankroll, best.KellyFraction)
	if stake <= 0 {
		r.skip(match, SkipStakeTooSmall)
		return nil
	}

	outcome, err := settlement.Settle(settlement.Bet{
		Market:    best.Market,
		Selection: best.Selection,
		Line:      best.Line,
		Odds:      best.Odds,
		Stake:     stake,
	}, settlement.ScoreOf(match))
	if err != nil {
		return fmt.Errorf("settling %s %s for %s: %w", best.Market, best.Selection, label(match), err)
	}

	entry := r.state.Apply(match, best, stake, outcome)
	w.Bets++
	w.Turnover += stake
	w.PnL += outcome.PnL

	metrics.RecordBetPlaced(string(best.Market))
	metrics.RecordBetSettled(string(best.Market), string(outcome.Result))
	metrics.UpdateBankroll(entry.Equity)
	metrics.UpdateDrawdown(r.state.Drawdown())
	r.log.LogBetPlaced(label(match), string(best.Market), string(best.Selection),
		best.Odds, best.Edge, stake, outcome.PnL, entry.Equity)
	return nil
}

func (r *run) skip(match models.Match, reason string) {
	r.skips[reason]++
	metrics.RecordMatchSkipped(reason)
	r.log.LogSkip(label(match), reason)
}

func (r *run) updateThrottle(drawdown float64) {
	active := r.rules.Throttle.Active(drawdown)
	if active != r.throttled {
		r.throttled = active
		r.log.LogThrottle(active, drawdown, r.rules.Throttle.Threshold)
	}
}

// SplitCalibration reserves the tail of a training slice for the calibrator,
// always leaving at least two matches for the goal model
func SplitCalibration(slice []models.Match, fraction float64) (train, calib []models.Match) {
	n := fractionIndex(len(slice), fraction)
	if n > len(slice)-2 {
		n = len(slice) - 2
	}
	if n < 0 {
		n = 0
	}
	k := len(slice) - n
	return slice[:k:k], slice[k:]
}

// fractionIndex is floor(fraction*n), tolerant of representation error
func fractionIndex(n int, fraction float64) int {
	return int(math.Floor(fraction*float64(n) + 1e-9))
}

// finiteOr keeps JSON encodable stats; non-finite values become fallback
func finiteOr(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

func label(m models.Match) string {
	return m.HomeTeam + " v " + m.AwayTeam
}
