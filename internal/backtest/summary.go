package backtest

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/goalcast/internal/models"
	"github.com/yourusername/goalcast/internal/staking"
)

// MarketSummary is the per-market slice of a Summary
type MarketSummary struct {
	Bets     int     `json:"bets"`
	Wins     int     `json:"wins"`
	Turnover float64 `json:"turnover"`
	PnL      float64 `json:"pnl"`
	ROI      float64 `json:"roi"`
	HitRate  float64 `json:"hit_rate"`
}

// Summary represents backtest performance statistics over a ledger
type Summary struct {
	Bets          int                             `json:"bets"`
	Wins          int                             `json:"wins"`
	Losses        int                             `json:"losses"`
	Pushes        int                             `json:"pushes"`
	Turnover      float64                         `json:"turnover"`
	TotalPnL      float64                         `json:"total_pnl"`
	ROI           float64                         `json:"roi"`
	HitRate       float64                         `json:"hit_rate"`
	Sharpe        float64                         `json:"sharpe"`
	MaxDrawdown   float64                         `json:"max_drawdown"`
	Volatility    float64                         `json:"volatility"`
	FinalBankroll float64                         `json:"final_bankroll"`
	TotalReturn   float64                         `json:"total_return"`
	ProfitFactor  float64                         `json:"profit_factor"`
	AverageOdds   float64                         `json:"average_odds"`
	AverageWin    float64                         `json:"average_win"`
	AverageLoss   float64                         `json:"average_loss"`
	LargestWin    float64                         `json:"largest_win"`
	LargestLoss   float64                         `json:"largest_loss"`
	ValueAtRisk95 float64                         `json:"var_95"`
	ByMarket      map[models.Market]MarketSummary `json:"by_market"`
}

// Summarize calculates statistics from a ledger and its equity curve.
// ROI is P&L over turnover; Sharpe is the mean over the standard deviation of per-bet returns.
func Summarize(ledger []models.LedgerEntry, curve EquityCurve, initialBankroll float64) Summary {
	s := Summary{
		FinalBankroll: initialBankroll,
		ByMarket:      make(map[models.Market]MarketSummary),
	}
	if len(curve) > 0 {
		s.FinalBankroll = curve.Final()
	}
	s.MaxDrawdown = curve.MaxDrawdown()
	s.Volatility = curve.GetVolatility()
	if initialBankroll > 0 {
		s.TotalReturn = (s.FinalBankroll - initialBankroll) / initialBankroll
	}
	if len(ledger) == 0 {
		return s
	}

	returns := make([]float64, 0, len(ledger))
	grossProfit, grossLoss, oddsSum := 0.0, 0.0, 0.0
	for _, e := range ledger {
		s.Bets++
		s.Turnover += e.Stake
		s.TotalPnL += e.PnL
		oddsSum += e.Odds
		returns = append(returns, e.Return())

		m := s.ByMarket[e.Market]
		m.Bets++
		m.Turnover += e.Stake
		m.PnL += e.PnL

		switch e.Result {
		case models.ResultWin:
			s.Wins++
			m.Wins++
		case models.ResultLoss:
			s.Losses++
		default:
			s.Pushes++
		}
		if e.PnL > 0 {
			grossProfit += e.PnL
			s.LargestWin = math.Max(s.LargestWin, e.PnL)
		} else if e.PnL < 0 {
			grossLoss += -e.PnL
			s.LargestLoss = math.Min(s.LargestLoss, e.PnL)
		}
		s.ByMarket[e.Market] = m
	}

	for market, m := range s.ByMarket {
		m.ROI = ratio(m.PnL, m.Turnover)
		m.HitRate = ratio(float64(m.Wins), float64(m.Bets))
		s.ByMarket[market] = m
	}

	s.ROI = ratio(s.TotalPnL, s.Turnover)
	s.HitRate = ratio(float64(s.Wins), float64(s.Bets))
	s.AverageOdds = oddsSum / float64(s.Bets)
	s.AverageWin = ratio(grossProfit, float64(s.Wins))
	s.AverageLoss = -ratio(grossLoss, float64(s.Losses))
	s.ProfitFactor = calculateProfitFactor(grossProfit, grossLoss)
	s.Sharpe = calculateSharpeRatio(returns)
	s.ValueAtRisk95 = calculateVaR(returns, 0.95)
	return s
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func calculateSharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean, std := stat.MeanStdDev(returns, nil)
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	return mean / std
}

func calculateProfitFactor(grossProfit, grossLoss float64) float64 {
	if grossLoss == 0 {
		if grossProfit > 0 {
			return 999
		}
		return 0
	}
	return grossProfit / grossLoss
}

func calculateVaR(returns []float64, level float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sorted := append([]float64{}, returns...)
	sort.Float64s(sorted)
	return stat.Quantile(1.0-level, stat.Empirical, sorted, nil)
}

// HashConfig creates a stable hash of the engine and staking parameters a run was produced with
func HashConfig(cfg Config, rules staking.Rules) string {
	data, _ := json.Marshal(struct {
		Config Config
		Rules  staking.Rules
	}{cfg, rules})
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash)
}
