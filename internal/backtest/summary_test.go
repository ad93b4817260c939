package backtest

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/goalcast/internal/models"
	"github.com/yourusername/goalcast/internal/staking"
)

func entry(market models.Market, odds, stake, pnl float64, result models.Result) models.LedgerEntry {
	return models.LedgerEntry{
		Date:       baseDate,
		Market:     market,
		Odds:       odds,
		Stake:      stake,
		PnL:        pnl,
		Result:     result,
		ModelProb:  0.5,
		MarketProb: math.NaN(),
	}
}

func TestSummarize(t *testing.T) {
	state := NewState(100, baseDate)
	ledger := []models.LedgerEntry{
		entry(models.MarketOneXTwo, 2.0, 10, 10, models.ResultWin),
		entry(models.MarketOneXTwo, 3.0, 5, -5, models.ResultLoss),
		entry(models.MarketAsianHandicap, 1.9, 4, 0, models.ResultPush),
		entry(models.MarketOverUnder, 2.2, 5, -2.5, models.ResultLoss),
	}
	equity := 100.0
	for i, e := range ledger {
		equity += e.PnL
		state.RecordEquityPoint(baseDate.AddDate(0, 0, i+1), equity)
		if equity > state.PeakBankroll {
			state.PeakBankroll = equity
		}
	}

	s := Summarize(ledger, state.EquityCurve, 100)
	assert.Equal(t, 4, s.Bets)
	assert.Equal(t, 1, s.Wins)
	assert.Equal(t, 2, s.Losses)
	assert.Equal(t, 1, s.Pushes)
	assert.InDelta(t, 24, s.Turnover, 1e-12)
	assert.InDelta(t, 2.5, s.TotalPnL, 1e-12)
	assert.InDelta(t, 2.5/24, s.ROI, 1e-12)
	assert.InDelta(t, 0.25, s.HitRate, 1e-12)
	assert.InDelta(t, 102.5, s.FinalBankroll, 1e-12)
	assert.InDelta(t, 0.025, s.TotalReturn, 1e-12)
	assert.InDelta(t, 10/7.5, s.ProfitFactor, 1e-12)
	assert.InDelta(t, 10, s.LargestWin, 1e-12)
	assert.InDelta(t, -5, s.LargestLoss, 1e-12)
	assert.InDelta(t, 7.5/110, s.MaxDrawdown, 1e-12)

	oneXTwo := s.ByMarket[models.MarketOneXTwo]
	assert.Equal(t, 2, oneXTwo.Bets)
	assert.InDelta(t, 5.0/15.0, oneXTwo.ROI, 1e-12)
	assert.InDelta(t, 0.5, oneXTwo.HitRate, 1e-12)
	assert.Zero(t, s.ByMarket[models.MarketAsianHandicap].PnL)
}

func TestSummarizeEmpty(t *testing.T) {
	state := NewState(100, baseDate)
	s := Summarize(nil, state.EquityCurve, 100)
	assert.Zero(t, s.Bets)
	assert.Zero(t, s.ROI)
	assert.Zero(t, s.Sharpe)
	assert.Equal(t, 100.0, s.FinalBankroll)
	assert.Zero(t, s.MaxDrawdown)
}

func TestSharpeRatio(t *testing.T) {
	assert.Zero(t, calculateSharpeRatio([]float64{0.5}))
	assert.Zero(t, calculateSharpeRatio([]float64{0.2, 0.2, 0.2}))

	s := calculateSharpeRatio([]float64{1, -1, 1, -1})
	assert.InDelta(t, 0, s, 1e-12)
	assert.Greater(t, calculateSharpeRatio([]float64{1, 0.5, -0.2}), 0.0)
}

func TestProfitFactor(t *testing.T) {
	assert.Equal(t, 999.0, calculateProfitFactor(5, 0))
	assert.Zero(t, calculateProfitFactor(0, 0))
	assert.InDelta(t, 2.0, calculateProfitFactor(10, 5), 1e-12)
}

func TestHashConfigStable(t *testing.T) {
	a := DefaultConfig()
	b := DefaultConfig()
	rules := staking.DefaultRules()
	assert.Equal(t, HashConfig(a, rules), HashConfig(b, rules))
	require.Len(t, HashConfig(a, rules), 64)

	b.RefitEvery++
	assert.NotEqual(t, HashConfig(a, rules), HashConfig(b, rules))

	stricter := staking.DefaultRules()
	stricter.OneXTwo.EdgeThreshold += 0.01
	assert.NotEqual(t, HashConfig(a, rules), HashConfig(a, stricter))
	throttled := staking.DefaultRules()
	throttled.Throttle.Reduction = 0.25
	assert.NotEqual(t, HashConfig(a, rules), HashConfig(a, throttled))
}

func TestEquityCurve(t *testing.T) {
	state := NewState(100, baseDate)
	state.RecordEquityPoint(baseDate.AddDate(0, 0, 1), 110)
	state.PeakBankroll = 110
	state.RecordEquityPoint(baseDate.AddDate(0, 0, 2), 99)

	curve := state.EquityCurve
	assert.Len(t, curve, 3)
	assert.InDelta(t, 0.1, curve.MaxDrawdown(), 1e-12)
	assert.Equal(t, 99.0, curve.Final())
	returns := curve.GetReturns()
	require.Len(t, returns, 2)
	assert.InDelta(t, 0.1, returns[0], 1e-12)
	assert.InDelta(t, -0.1, returns[1], 1e-12)
	assert.Contains(t, curve.ToCSV(), "time,value,drawdown")
	assert.InDelta(t, 0.1414213562, curve.GetVolatility(), 1e-9)
}

func TestSummarizeVolatility(t *testing.T) {
	curve := EquityCurve{{Time: baseDate, Value: 100}, {Time: baseDate, Value: 110}, {Time: baseDate, Value: 99}}
	s := Summarize(nil, curve, 100)
	assert.Equal(t, curve.GetVolatility(), s.Volatility)
	assert.Zero(t, Summarize(nil, EquityCurve{{Time: baseDate, Value: 100}}, 100).Volatility)
}

func TestWriteEquityFile(t *testing.T) {
	curve := EquityCurve{{Time: baseDate, Value: 100}, {Time: baseDate.AddDate(0, 0, 1), Value: 104.5, Drawdown: 0}}
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "out", "equity.csv")
	require.NoError(t, WriteEquityFile(csvPath, curve))
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "time,value,drawdown", lines[0])
	assert.True(t, strings.HasSuffix(lines[2], ",104.500000,0.000000"))

	jsonPath := filepath.Join(dir, "equity.json")
	require.NoError(t, WriteEquityFile(jsonPath, curve))
	data, err = os.ReadFile(jsonPath)
	require.NoError(t, err)
	var decoded EquityCurve
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, 104.5, decoded[1].Value)

	assert.Error(t, WriteEquityFile("", curve))
}
