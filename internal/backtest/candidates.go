package backtest

import (
	"math"

	"github.com/yourusername/goalcast/internal/markets"
	"github.com/yourusername/goalcast/internal/models"
	"github.com/yourusername/goalcast/internal/odds"
)

// BuildCandidates prices every quoted selection of a match. A selection needs
// only its own valid price; the market-implied probability is NaN unless the
// whole market is quoted.
func BuildCandidates(match models.Match, f markets.MatchForecast) []models.BetCandidate {
	out := make([]models.BetCandidate, 0, 7)
	out = append(out, oneXTwoCandidates(match.Odds, f.OneXTwo)...)
	out = append(out, overUnderCandidates(match.Odds, f.OverUnder)...)
	if f.AsianHandicap != nil {
		out = append(out, asianCandidates(match.Odds, *f.AsianHandicap)...)
	}
	return out
}

func oneXTwoCandidates(o models.MatchOdds, p markets.OneXTwoPrediction) []models.BetCandidate {
	mh, md, ma, ok := odds.MarketProbabilities1X2(o)
	if !ok {
		mh, md, ma = math.NaN(), math.NaN(), math.NaN()
	}
	sides := []struct {
		sel   models.Selection
		price *float64
		model float64
		mkt   float64
	}{
		{models.SelectionHome, o.Home, p.Home, mh},
		{models.SelectionDraw, o.Draw, p.Draw, md},
		{models.SelectionAway, o.Away, p.Away, ma},
	}

	var out []models.BetCandidate
	for _, s := range sides {
		price, valid := models.ValidOdds(s.price)
		if !valid {
			continue
		}
		out = append(out, models.BetCandidate{
			Market:     models.MarketOneXTwo,
			Selection:  s.sel,
			Odds:       price,
			ModelProb:  s.model,
			MarketProb: s.mkt,
		})
	}
	return out
}

func overUnderCandidates(o models.MatchOdds, p markets.OverUnderPrediction) []models.BetCandidate {
	mo, mu, _ := odds.MarketProbabilitiesTwoWay(o.Over, o.Under)
	var out []models.BetCandidate
	if price, ok := models.ValidOdds(o.Over); ok {
		out = append(out, models.BetCandidate{
			Market:     models.MarketOverUnder,
			Selection:  models.SelectionOver,
			Line:       models.Float(p.Line),
			Odds:       price,
			ModelProb:  p.WinProbabilityExPush(true),
			MarketProb: mo,
		})
	}
	if price, ok := models.ValidOdds(o.Under); ok {
		out = append(out, models.BetCandidate{
			Market:     models.MarketOverUnder,
			Selection:  models.SelectionUnder,
			Line:       models.Float(p.Line),
			Odds:       price,
			ModelProb:  p.WinProbabilityExPush(false),
			MarketProb: mu,
		})
	}
	return out
}

func asianCandidates(o models.MatchOdds, p markets.AsianHandicapPrediction) []models.BetCandidate {
	mh, ma, _ := odds.MarketProbabilitiesTwoWay(o.AHHome, o.AHAway)
	sides := []struct {
		sel   models.Selection
		price *float64
		mkt   float64
	}{
		{models.SelectionHome, o.AHHome, mh},
		{models.SelectionAway, o.AHAway, ma},
	}

	var out []models.BetCandidate
	for _, s := range sides {
		price, valid := models.ValidOdds(s.price)
		if !valid {
			continue
		}
		out = append(out, models.BetCandidate{
			Market:     models.MarketAsianHandicap,
			Selection:  s.sel,
			Line:       models.Float(p.SideLine(s.sel)),
			Odds:       price,
			ModelProb:  p.Side(s.sel).WinProbabilityExPush(),
			MarketProb: s.mkt,
		})
	}
	return out
}
