// Package settlement grades placed bets against final scores.
package settlement

import (
	"fmt"
	"math"

	"github.com/yourusername/goalcast/internal/models"
)

// Score is a final scoreline
type Score struct {
	Home int
	Away int
}

// ScoreOf returns the final score of a match
func ScoreOf(m models.Match) Score {
	return Score{Home: m.HomeGoals, Away: m.AwayGoals}
}

// Bet is the settlement view of a placed wager
type Bet struct {
	Market    models.Market
	Selection models.Selection
	Line      *float64
	Odds      float64
	Stake     float64
}

// Outcome is the profit and classification of a settled bet
type Outcome struct {
	PnL    float64
	Result models.Result
}

// Settler grades bets for one market
type Settler interface {
	Settle(bet Bet, score Score) (Outcome, error)
}

// ForMarket returns the settler for a market
func ForMarket(market models.Market) (Settler, error) {
	switch market {
	case models.MarketOneXTwo:
		return OneXTwoSettler{}, nil
	case models.MarketOverUnder:
		return OverUnderSettler{DefaultLine: 2.5}, nil
	case models.MarketAsianHandicap:
		return AsianHandicapSettler{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownMarket, market)
	}
}

// Settle dispatches a bet to its market's settler
func Settle(bet Bet, score Score) (Outcome, error) {
	s, err := ForMarket(bet.Market)
	if err != nil {
		return Outcome{}, err
	}
	return s.Settle(bet, score)
}

func validateStake(stake, odds float64) error {
	if stake < 0 || math.IsNaN(stake) {
		return fmt.Errorf("invalid stake %g", stake)
	}
	if odds <= 1 || math.IsNaN(odds) {
		return fmt.Errorf("%w: %g", models.ErrInvalidOdds, odds)
	}
	return nil
}

// clampPnL keeps profit inside [-stake, stake*(odds-1)]
func clampPnL(pnl, stake, odds float64) float64 {
	return math.Max(-stake, math.Min(stake*(odds-1), pnl))
}

// payout returns the profit of a single-line result: +1 win, 0 push, -1 loss
func payout(result int, stake, odds float64) float64 {
	switch {
	case result > 0:
		return stake * (odds - 1)
	case result < 0:
		return -stake
	default:
		return 0
	}
}
