package models

import "fmt"

// Market identifies a betting market
type Market string

const (
	MarketOneXTwo       Market = "1X2"
	MarketOverUnder     Market = "OU"
	MarketAsianHandicap Market = "AH"
)

// Markets lists every supported market
var Markets = []Market{MarketOneXTwo, MarketOverUnder, MarketAsianHandicap}

// ParseMarket converts a string into a Market
func ParseMarket(s string) (Market, error) {
	switch Market(s) {
	case MarketOneXTwo, MarketOverUnder, MarketAsianHandicap:
		return Market(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMarket, s)
	}
}

// Selection is the side or outcome a bet backs
type Selection string

const (
	SelectionHome  Selection = "Home"
	SelectionDraw  Selection = "Draw"
	SelectionAway  Selection = "Away"
	SelectionOver  Selection = "Over"
	SelectionUnder Selection = "Under"
)

// Result is the settled classification of a bet
type Result string

const (
	ResultWin  Result = "WIN"
	ResultLoss Result = "LOSS"
	ResultPush Result = "PUSH"
)

// ResultFromPnL classifies a settled bet by the sign of its profit
func ResultFromPnL(pnl float64) Result {
	switch {
	case pnl > 0:
		return ResultWin
	case pnl < 0:
		return ResultLoss
	default:
		return ResultPush
	}
}
