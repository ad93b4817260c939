package models

import (
	"time"

	"github.com/google/uuid"
)

// BetCandidate is a priced opportunity for one match and market, consumed by the stake selector
type BetCandidate struct {
	Market        Market    `json:"market"`
	Selection     Selection `json:"selection"`
	Line          *float64  `json:"line,omitempty"`
	Odds          float64   `json:"odds"`
	ModelProb     float64   `json:"p_model"`
	MarketProb    float64   `json:"p_mkt"`
	Edge          float64   `json:"edge"`
	KellyFraction float64   `json:"kelly_fraction"`
}

// LedgerEntry is one settled bet in the backtest log
type LedgerEntry struct {
	Date       time.Time `json:"date" db:"date"`
	League     string    `json:"league" db:"league"`
	HomeTeam   string    `json:"home" db:"home"`
	AwayTeam   string    `json:"away" db:"away"`
	Market     Market    `json:"market" db:"market"`
	Selection  Selection `json:"selection" db:"selection"`
	Line       *float64  `json:"line" db:"line"`
	Odds       float64   `json:"odds_open" db:"odds_open"`
	Stake      float64   `json:"stake" db:"stake"`
	Result     Result    `json:"result" db:"result"`
	PnL        float64   `json:"pnl" db:"pnl"`
	Equity     float64   `json:"equity" db:"equity"`
	ModelProb  float64   `json:"p_model" db:"p_model"`
	MarketProb float64   `json:"p_mkt" db:"p_mkt"`
}

// Return is the P&L per unit staked
func (e LedgerEntry) Return() float64 {
	if e.Stake == 0 {
		return 0
	}
	return e.PnL / e.Stake
}

// BacktestRun is the persisted header of one backtest execution
type BacktestRun struct {
	ID              uuid.UUID `db:"id" json:"id"`
	Mode            string    `db:"mode" json:"mode"`
	StartedAt       time.Time `db:"started_at" json:"started_at"`
	FinishedAt      time.Time `db:"finished_at" json:"finished_at"`
	Matches         int       `db:"matches" json:"matches"`
	Bets            int       `db:"bets" json:"bets"`
	Turnover        float64   `db:"turnover" json:"turnover"`
	TotalPnL        float64   `db:"total_pnl" json:"total_pnl"`
	ROI             float64   `db:"roi" json:"roi"`
	HitRate         float64   `db:"hit_rate" json:"hit_rate"`
	Sharpe          float64   `db:"sharpe" json:"sharpe"`
	MaxDrawdown     float64   `db:"max_drawdown" json:"max_drawdown"`
	InitialBankroll float64   `db:"initial_bankroll" json:"initial_bankroll"`
	FinalBankroll   float64   `db:"final_bankroll" json:"final_bankroll"`
	ConfigHash      string    `db:"config_hash" json:"config_hash"`
}
