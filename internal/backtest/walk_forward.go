package backtest

import "time"

// WindowStats describes one model fit and the matches it priced
type WindowStats struct {
	Index int `json:"index"`
	// FitAt is the index of the first match priced by this fit
	FitAt        int       `json:"fit_at"`
	TrainStart   time.Time `json:"train_start"`
	TrainEnd     time.Time `json:"train_end"`
	TrainSize    int       `json:"train_size"`
	CalibSize    int       `json:"calib_size"`
	Converged    bool      `json:"converged"`
	Status       string    `json:"status"`
	GradientNorm float64   `json:"gradient_norm"` // -1 when unavailable
	Error        string    `json:"error,omitempty"`
	Matches      int       `json:"matches"`
	Bets         int       `json:"bets"`
	Turnover     float64   `json:"turnover"`
	PnL          float64   `json:"pnl"`
}

// ROI is the window's profit over turnover
func (w WindowStats) ROI() float64 {
	return ratio(w.PnL, w.Turnover)
}

// CalculateConsistency calculates the share of betting windows that made a profit
func CalculateConsistency(windows []WindowStats) float64 {
	betting := 0
	profitable := 0
	for _, w := range windows {
		if w.Bets == 0 {
			continue
		}
		betting++
		if w.PnL > 0 {
			profitable++
		}
	}
	if betting == 0 {
		return 0
	}
	return float64(profitable) / float64(betting)
}

// ConvergenceRate is the share of fits that produced a usable model
func ConvergenceRate(windows []WindowStats) float64 {
	if len(windows) == 0 {
		return 0
	}
	ok := 0
	for _, w := range windows {
		if w.Converged {
			ok++
		}
	}
	return float64(ok) / float64(len(windows))
}
