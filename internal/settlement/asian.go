package settlement

import (
	"fmt"

	"github.com/yourusername/goalcast/internal/markets"
	"github.com/yourusername/goalcast/internal/models"
)

// SettleAsianHandicap settles a handicap bet where line applies to the backed side.
// Quarter lines settle as two half stakes at the bracketing lines and sum their P&L.
func SettleAsianHandicap(sel models.Selection, line float64, homeGoals, awayGoals int, stake, odds float64) (float64, models.Result, error) {
	if err := validateStake(stake, odds); err != nil {
		return 0, "", err
	}
	var diff int
	switch sel {
	case models.SelectionHome:
		diff = homeGoals - awayGoals
	case models.SelectionAway:
		diff = awayGoals - homeGoals
	default:
		return 0, "", fmt.Errorf("selection %q is not a handicap side", sel)
	}

	var pnl float64
	lo, hi, quarter := markets.SplitQuarterLine(line)
	if quarter {
		half := stake / 2
		pnl = subSettle(diff, lo, half, odds) + subSettle(diff, hi, half, odds)
	} else {
		pnl = subSettle(diff, line, stake, odds)
	}
	pnl = clampPnL(pnl, stake, odds)
	return pnl, models.ResultFromPnL(pnl), nil
}

func subSettle(diff int, line, stake, odds float64) float64 {
	return payout(int(markets.SideResult(diff, line)), stake, odds)
}

// AsianHandicapSettler settles handicap bets; the bet's Line is from the backed side's perspective
type AsianHandicapSettler struct{}

func (AsianHandicapSettler) Settle(bet Bet, score Score) (Outcome, error) {
	if bet.Line == nil {
		return Outcome{}, fmt.Errorf("asian handicap bet on %s has no line", bet.Selection)
	}
	pnl, result, err := SettleAsianHandicap(bet.Selection, *bet.Line, score.Home, score.Away, bet.Stake, bet.Odds)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{PnL: pnl, Result: result}, nil
}
