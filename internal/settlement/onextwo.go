package settlement

import (
	"fmt"

	"github.com/yourusername/goalcast/internal/models"
)

// Settle1X2 pays stake*(odds-1) when pick matches the realised outcome and loses the stake otherwise
func Settle1X2(pick, outcome models.Selection, stake, odds float64) (float64, models.Result, error) {
	switch pick {
	case models.SelectionHome, models.SelectionDraw, models.SelectionAway:
	default:
		return 0, "", fmt.Errorf("selection %q is not a 1X2 outcome", pick)
	}
	if err := validateStake(stake, odds); err != nil {
		return 0, "", err
	}
	if pick == outcome {
		return stake * (odds - 1), models.ResultWin, nil
	}
	return -stake, models.ResultLoss, nil
}

// OneXTwoSettler settles match-result bets
type OneXTwoSettler struct{}

func (OneXTwoSettler) Settle(bet Bet, score Score) (Outcome, error) {
	m := models.Match{HomeGoals: score.Home, AwayGoals: score.Away}
	pnl, result, err := Settle1X2(bet.Selection, m.Outcome(), bet.Stake, bet.Odds)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{PnL: pnl, Result: result}, nil
}
