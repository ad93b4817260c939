package models

import (
	"fmt"
	"math"
	"time"
)

// EloScale is the rating difference that maps to one unit of the model covariate
const EloScale = 400.0

// Match represents one historical fixture with its pre-match covariates and prices
type Match struct {
	Date      time.Time          `json:"date"`
	League    string             `json:"league"`
	HomeTeam  string             `json:"home_team" validate:"required"`
	AwayTeam  string             `json:"away_team" validate:"required"`
	HomeGoals int                `json:"home_goals" validate:"gte=0"`
	AwayGoals int                `json:"away_goals" validate:"gte=0"`
	EloHome   float64            `json:"elo_home"`
	EloAway   float64            `json:"elo_away"`
	Form      map[string]float64 `json:"form,omitempty"`
	Odds      MatchOdds          `json:"odds"`
}

// MatchOdds holds bookmaker decimal prices; nil means the book did not quote it
type MatchOdds struct {
	Home          *float64 `json:"home,omitempty"`
	Draw          *float64 `json:"draw,omitempty"`
	Away          *float64 `json:"away,omitempty"`
	Over          *float64 `json:"over,omitempty"`
	Under         *float64 `json:"under,omitempty"`
	OverUnderLine float64  `json:"over_under_line,omitempty"`
	// AHLine is quoted from the home team's perspective
	AHLine *float64 `json:"ah_line,omitempty"`
	AHHome *float64 `json:"ah_home,omitempty"`
	AHAway *float64 `json:"ah_away,omitempty"`
}

// EloDiff returns EloHome - EloAway
func (m Match) EloDiff() float64 {
	return m.EloHome - m.EloAway
}

// TotalGoals returns the final-score goal total
func (m Match) TotalGoals() int {
	return m.HomeGoals + m.AwayGoals
}

// Outcome returns the realised 1X2 selection
func (m Match) Outcome() Selection {
	switch {
	case m.HomeGoals > m.AwayGoals:
		return SelectionHome
	case m.HomeGoals < m.AwayGoals:
		return SelectionAway
	default:
		return SelectionDraw
	}
}

// Validate checks the required fields of a match record
func (m Match) Validate() error {
	if m.Date.IsZero() {
		return fmt.Errorf("%w: missing date for %s v %s", ErrMalformedRow, m.HomeTeam, m.AwayTeam)
	}
	if m.HomeTeam == "" || m.AwayTeam == "" {
		return fmt.Errorf("%w: missing team on %s", ErrMalformedRow, m.Date.Format("2006-01-02"))
	}
	if m.HomeGoals < 0 || m.AwayGoals < 0 {
		return fmt.Errorf("%w: negative score %d-%d", ErrMalformedRow, m.HomeGoals, m.AwayGoals)
	}
	if math.IsNaN(m.EloHome) || math.IsNaN(m.EloAway) {
		return fmt.Errorf("%w: NaN rating for %s v %s", ErrMalformedRow, m.HomeTeam, m.AwayTeam)
	}
	return nil
}

// ValidOdds returns the price and whether it is usable (finite and > 1)
func ValidOdds(o *float64) (float64, bool) {
	if o == nil {
		return 0, false
	}
	v := *o
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 1.0 {
		return 0, false
	}
	return v, true
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}
