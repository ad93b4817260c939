package logger

import (
	"github.com/sirupsen/logrus"
)

// BacktestLogger provides dedicated logging for backtest runs.
type BacktestLogger struct {
	*logrus.Entry
}

// NewBacktestLogger creates a new backtest logger.
func NewBacktestLogger(baseLogger *logrus.Logger) *BacktestLogger {
	if baseLogger == nil {
		baseLogger = Discard()
	}
	return &BacktestLogger{
		Entry: baseLogger.WithField("component", "backtest"),
	}
}

// WithRun tags every subsequent entry with the run identifier.
func (bl *BacktestLogger) WithRun(runID, mode string) *BacktestLogger {
	return &BacktestLogger{Entry: bl.WithFields(logrus.Fields{"run_id": runID, "mode": mode})}
}

// LogFit logs a successful model fit.
func (bl *BacktestLogger) LogFit(window, trainSize, calibSize int, status string, gradientNorm, nll, durationMs float64) {
	bl.WithFields(logrus.Fields{
		"window":        window,
		"train_size":    trainSize,
		"calib_size":    calibSize,
		"status":        status,
		"gradient_norm": gradientNorm,
		"nll":           nll,
		"duration_ms":   durationMs,
	}).Info("Goal model fitted")
}

// LogFitRejected logs a fit that did not produce a usable model.
func (bl *BacktestLogger) LogFitRejected(window, trainSize int, err error) {
	bl.WithFields(logrus.Fields{
		"window":     window,
		"train_size": trainSize,
	}).WithError(err).Warn("Goal model fit rejected")
}

// LogBetPlaced logs a placed and settled bet.
func (bl *BacktestLogger) LogBetPlaced(match, market, selection string, odds, edge, stake, pnl, equity float64) {
	bl.WithFields(logrus.Fields{
		"match":     match,
		"market":    market,
		"selection": selection,
		"odds":      odds,
		"edge":      edge,
		"stake":     stake,
		"pnl":       pnl,
		"equity":    equity,
	}).Debug("Bet settled")
}

// LogSkip logs a match that produced no bet.
func (bl *BacktestLogger) LogSkip(match, reason string) {
	bl.WithFields(logrus.Fields{
		"match":  match,
		"reason": reason,
	}).Debug("Match skipped")
}

// LogThrottle logs a change in drawdown throttle state.
func (bl *BacktestLogger) LogThrottle(active bool, drawdown, threshold float64) {
	entry := bl.WithFields(logrus.Fields{
		"active":    active,
		"drawdown":  drawdown,
		"threshold": threshold,
	})
	if active {
		entry.Warn("Drawdown throttle engaged")
		return
	}
	entry.Info("Drawdown throttle released")
}

// LogRunSummary logs the final summary of a run.
func (bl *BacktestLogger) LogRunSummary(matches, bets int, turnover, pnl, roi, maxDrawdown, finalBankroll float64) {
	bl.WithFields(logrus.Fields{
		"matches":        matches,
		"bets":           bets,
		"turnover":       turnover,
		"pnl":            pnl,
		"roi":            roi,
		"max_drawdown":   maxDrawdown,
		"final_bankroll": finalBankroll,
	}).Info("Backtest completed")
}
