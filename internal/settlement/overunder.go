package settlement

import (
	"fmt"

	"github.com/yourusername/goalcast/internal/models"
)

// SettleOverUnder compares total goals to line with strict inequality on both sides; a tie is a push
func SettleOverUnder(sel models.Selection, homeGoals, awayGoals int, stake, odds, line float64) (float64, models.Result, error) {
	if err := validateStake(stake, odds); err != nil {
		return 0, "", err
	}
	total := float64(homeGoals + awayGoals)
	var result int
	switch sel {
	case models.SelectionOver:
		result = compare(total, line)
	case models.SelectionUnder:
		result = compare(line, total)
	default:
		return 0, "", fmt.Errorf("selection %q is not an over/under outcome", sel)
	}
	pnl := clampPnL(payout(result, stake, odds), stake, odds)
	return pnl, models.ResultFromPnL(pnl), nil
}

func compare(a, b float64) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}

// OverUnderSettler settles total-goals bets; DefaultLine applies when a bet carries no line
type OverUnderSettler struct {
	DefaultLine float64
}

func (s OverUnderSettler) Settle(bet Bet, score Score) (Outcome, error) {
	line := s.DefaultLine
	if bet.Line != nil {
		line = *bet.Line
	}
	pnl, result, err := SettleOverUnder(bet.Selection, score.Home, score.Away, bet.Stake, bet.Odds, line)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{PnL: pnl, Result: result}, nil
}
