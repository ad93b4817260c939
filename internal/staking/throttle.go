package staking

// DefaultReduction halves the Kelly multiplier while the throttle is active
const DefaultReduction = 0.5

// DrawdownThrottle scales down staking while the bankroll sits too far below its peak
type DrawdownThrottle struct {
	// Threshold is a fraction of peak equity, e.g. 0.15 for 15%; zero disables the throttle
	Threshold float64
	Reduction float64
}

// Active reports whether drawdown is beyond the threshold
func (t DrawdownThrottle) Active(drawdown float64) bool {
	return t.Threshold > 0 && drawdown > t.Threshold
}

// Multiplier returns the effective Kelly multiplier for the current drawdown
func (t DrawdownThrottle) Multiplier(base, drawdown float64) float64 {
	if !t.Active(drawdown) {
		return base
	}
	reduction := t.Reduction
	if reduction <= 0 || reduction > 1 {
		reduction = DefaultReduction
	}
	return base * reduction
}
