package backtest

import (
	"time"

	"github.com/yourusername/goalcast/internal/models"
	"github.com/yourusername/goalcast/internal/settlement"
)

// State tracks the running bankroll and the append-only ledger
type State struct {
	InitialBankroll float64
	CurrentBankroll float64
	PeakBankroll    float64
	Ledger          []models.LedgerEntry
	EquityCurve     EquityCurve
}

// NewState initializes backtest state
func NewState(initialBankroll float64, start time.Time) *State {
	state := &State{
		InitialBankroll: initialBankroll,
		CurrentBankroll: initialBankroll,
		PeakBankroll:    initialBankroll,
		Ledger:          []models.LedgerEntry{},
		EquityCurve:     EquityCurve{},
	}
	state.RecordEquityPoint(start, initialBankroll)
	return state
}

// Apply books a settled bet and returns its ledger row
func (s *State) Apply(match models.Match, bet models.BetCandidate, stake float64, outcome settlement.Outcome) models.LedgerEntry {
	s.CurrentBankroll += outcome.PnL
	if s.CurrentBankroll > s.PeakBankroll {
		s.PeakBankroll = s.CurrentBankroll
	}

	entry := models.LedgerEntry{
		Date:       match.Date,
		League:     match.League,
		HomeTeam:   match.HomeTeam,
		AwayTeam:   match.AwayTeam,
		Market:     bet.Market,
		Selection:  bet.Selection,
		Line:       bet.Line,
		Odds:       bet.Odds,
		Stake:      stake,
		Result:     outcome.Result,
		PnL:        outcome.PnL,
		Equity:     s.CurrentBankroll,
		ModelProb:  bet.ModelProb,
		MarketProb: bet.MarketProb,
	}
	s.Ledger = append(s.Ledger, entry)
	s.RecordEquityPoint(match.Date, s.CurrentBankroll)
	return entry
}

// Drawdown is the current peak-to-trough loss as a fraction of the peak
func (s *State) Drawdown() float64 {
	if s.PeakBankroll <= 0 {
		return 0
	}
	drawdown := (s.PeakBankroll - s.CurrentBankroll) / s.PeakBankroll
	if drawdown < 0 {
		return 0
	}
	return drawdown
}

// RecordEquityPoint adds an equity point to the curve
func (s *State) RecordEquityPoint(t time.Time, value float64) {
	drawdown := 0.0
	if value < s.PeakBankroll && s.PeakBankroll > 0 {
		drawdown = (s.PeakBankroll - value) / s.PeakBankroll
	}
	s.EquityCurve = append(s.EquityCurve, EquityPoint{
		Time:     t,
		Value:    value,
		Drawdown: drawdown,
	})
}
