package backtest

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/goalcast/internal/models"
)

// MonteCarloConfig configures monte carlo simulation
type MonteCarloConfig struct {
	Iterations      int
	Seed            int64
	InitialBankroll float64
}

// MonteCarloResult represents the distribution of final bankrolls
type MonteCarloResult struct {
	Iterations          int                `json:"iterations"`
	MeanReturn          float64            `json:"mean_return"`
	StdReturn           float64            `json:"std_return"`
	VaR95               float64            `json:"var_95"`
	VaR99               float64            `json:"var_99"`
	ProbabilityOfProfit float64            `json:"probability_of_profit"`
	ProbabilityOfRuin   float64            `json:"probability_of_ruin"`
	ConfidenceIntervals map[string]float64 `json:"confidence_intervals"`
	Distribution        []float64          `json:"-"`
}

// RunMonteCarlo replays the ledger's stakes with each bet's result redrawn
// from its model probability. Pushes are not simulated. A path that reaches
// zero bankroll stops there.
func RunMonteCarlo(ctx context.Context, ledger []models.LedgerEntry, cfg MonteCarloConfig) (MonteCarloResult, error) {
	if cfg.Iterations <= 0 {
		cfg.Iterations = 1000
	}
	if cfg.InitialBankroll <= 0 {
		return MonteCarloResult{}, fmt.Errorf("initial bankroll must be positive")
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	distribution := make([]float64, cfg.Iterations)

	for i := 0; i < cfg.Iterations; i++ {
		if i%100 == 0 {
			if err := ctx.Err(); err != nil {
				return MonteCarloResult{}, err
			}
		}
		bankroll := cfg.InitialBankroll
		for _, e := range ledger {
			prob := e.ModelProb
			if math.IsNaN(prob) || prob <= 0 {
				prob = 0.5
			}
			if rng.Float64() < prob {
				bankroll += e.Stake * (e.Odds - 1)
			} else {
				bankroll -= e.Stake
			}
			if bankroll <= 0 {
				bankroll = 0
				break
			}
		}
		distribution[i] = bankroll
	}

	sort.Float64s(distribution)
	mean, std := stat.MeanStdDev(distribution, nil)
	if len(distribution) < 2 {
		std = 0
	}
	initial := cfg.InitialBankroll
	var95 := stat.Quantile(0.05, stat.Empirical, distribution, nil)
	var99 := stat.Quantile(0.01, stat.Empirical, distribution, nil)

	return MonteCarloResult{
		Iterations:          cfg.Iterations,
		MeanReturn:          (mean - initial) / initial,
		StdReturn:           std / initial,
		VaR95:               (var95 - initial) / initial,
		VaR99:               (var99 - initial) / initial,
		ProbabilityOfProfit: fractionWhere(distribution, func(v float64) bool { return v > initial }),
		ProbabilityOfRuin:   fractionWhere(distribution, func(v float64) bool { return v <= 0 }),
		ConfidenceIntervals: CalculateConfidenceIntervals(distribution, []float64{0.9, 0.95, 0.99}),
		Distribution:        distribution,
	}, nil
}

// CalculateConfidenceIntervals returns the width of each central interval
// of a sorted distribution, keyed by level
func CalculateConfidenceIntervals(sorted []float64, levels []float64) map[string]float64 {
	results := make(map[string]float64)
	if len(sorted) == 0 {
		return results
	}
	for _, level := range levels {
		p := (1.0 - level) / 2.0
		low := stat.Quantile(p, stat.Empirical, sorted, nil)
		high := stat.Quantile(1.0-p, stat.Empirical, sorted, nil)
		results[formatPercent(level)] = high - low
	}
	return results
}

func fractionWhere(values []float64, pred func(float64) bool) float64 {
	if len(values) == 0 {
		return 0
	}
	count := 0
	for _, v := range values {
		if pred(v) {
			count++
		}
	}
	return float64(count) / float64(len(values))
}

func formatPercent(level float64) string {
	return fmt.Sprintf("%.0f%%", level*100)
}
