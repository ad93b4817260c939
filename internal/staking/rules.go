package staking

import (
	"fmt"
	"math"

	"github.com/yourusername/goalcast/internal/models"
)

// MarketRule holds the filters and sizing applied to one market
type MarketRule struct {
	EdgeThreshold   float64
	MinOdds         float64
	MaxOdds         float64
	KellyMultiplier float64
	// Disabled markets never produce a bet
	Disabled bool
}

// AcceptsOdds applies the min/max odds filters; zero bounds are ignored
func (r MarketRule) AcceptsOdds(odds float64) bool {
	if odds <= 1 || math.IsNaN(odds) {
		return false
	}
	if r.MinOdds > 0 && odds < r.MinOdds {
		return false
	}
	if r.MaxOdds > 0 && odds > r.MaxOdds {
		return false
	}
	return true
}

// Rules is the full staking configuration
type Rules struct {
	OneXTwo          MarketRule
	OverUnder        MarketRule
	AsianHandicap    MarketRule
	MaxStakeFraction float64
	MinStake         float64
	Throttle         DrawdownThrottle
}

// DefaultRules mirrors the shipped configuration: 1X2 needs a wider edge than handicaps
func DefaultRules() Rules {
	return Rules{
		OneXTwo:          MarketRule{EdgeThreshold: 0.05, MinOdds: 1.8, MaxOdds: 6.0, KellyMultiplier: 0.25},
		OverUnder:        MarketRule{EdgeThreshold: 0.04, MinOdds: 1.6, MaxOdds: 3.0, KellyMultiplier: 0.25},
		AsianHandicap:    MarketRule{EdgeThreshold: 0.03, MinOdds: 1.6, MaxOdds: 3.0, KellyMultiplier: 0.3},
		MaxStakeFraction: 0.05,
		MinStake:         0.01,
		Throttle:         DrawdownThrottle{Threshold: 0.15, Reduction: DefaultReduction},
	}
}

// For returns the rule for a market
func (r Rules) For(market models.Market) (MarketRule, error) {
	switch market {
	case models.MarketOneXTwo:
		return r.OneXTwo, nil
	case models.MarketOverUnder:
		return r.OverUnder, nil
	case models.MarketAsianHandicap:
		return r.AsianHandicap, nil
	default:
		return MarketRule{}, fmt.Errorf("%w: %q", models.ErrUnknownMarket, market)
	}
}

// Validate checks that every rule is usable
func (r Rules) Validate() error {
	for _, m := range models.Markets {
		rule, _ := r.For(m)
		if rule.KellyMultiplier < 0 || rule.KellyMultiplier > 1 {
			return fmt.Errorf("%s kelly multiplier %g outside [0,1]", m, rule.KellyMultiplier)
		}
		if rule.MaxOdds > 0 && rule.MinOdds > rule.MaxOdds {
			return fmt.Errorf("%s min odds %g above max odds %g", m, rule.MinOdds, rule.MaxOdds)
		}
	}
	if r.MaxStakeFraction <= 0 || r.MaxStakeFraction > 1 {
		return fmt.Errorf("max stake fraction %g outside (0,1]", r.MaxStakeFraction)
	}
	if r.Throttle.Threshold < 0 || r.Throttle.Threshold >= 1 {
		return fmt.Errorf("drawdown threshold %g outside [0,1)", r.Throttle.Threshold)
	}
	if r.Throttle.Reduction < 0 || r.Throttle.Reduction > 1 {
		return fmt.Errorf("drawdown reduction %g outside [0,1]", r.Throttle.Reduction)
	}
	return nil
}

// Stake converts a bankroll fraction into currency, capped at MaxStakeFraction
// and zeroed below MinStake
func (r Rules) Stake(bankroll, fraction float64) float64 {
	if bankroll <= 0 || fraction <= 0 {
		return 0
	}
	if r.MaxStakeFraction > 0 {
		fraction = math.Min(fraction, r.MaxStakeFraction)
	}
	stake := bankroll * fraction
	if stake < r.MinStake {
		return 0
	}
	return stake
}
