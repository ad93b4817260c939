package service

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/goalcast/internal/logger"
	"github.com/yourusername/goalcast/internal/models"
)

// Bookmaker margins outside this band indicate a mistyped price
const (
	minOverround = 0.95
	maxOverround = 1.35
)

// ValidationReport counts what Clean did to a history
type ValidationReport struct {
	Checked    int
	Rejected   int
	Duplicates int
	// OddsCleared counts markets whose prices were dropped as implausible
	OddsCleared int
}

// DataValidator checks loaded matches before they reach the engine
type DataValidator struct {
	validate *validator.Validate
	logger   *logrus.Logger
}

// NewDataValidator creates a new data validator
func NewDataValidator(log *logrus.Logger) *DataValidator {
	if log == nil {
		log = logger.Discard()
	}
	return &DataValidator{validate: validator.New(), logger: log}
}

// ValidateMatch returns the problems that make a match unusable
func (v *DataValidator) ValidateMatch(m models.Match) []string {
	var errs []string

	if err := v.validate.Struct(m); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				errs = append(errs, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}
	if m.Date.IsZero() {
		errs = append(errs, "date is required")
	}
	if m.HomeTeam != "" && strings.EqualFold(m.HomeTeam, m.AwayTeam) {
		errs = append(errs, fmt.Sprintf("team %q cannot play itself", m.HomeTeam))
	}
	if math.IsNaN(m.EloHome) || math.IsNaN(m.EloAway) || math.IsInf(m.EloHome, 0) || math.IsInf(m.EloAway, 0) {
		errs = append(errs, "ratings must be finite")
	}

	return errs
}

// CheckOdds returns the markets whose quoted prices are implausible
func (v *DataValidator) CheckOdds(o models.MatchOdds) []models.Market {
	var bad []models.Market

	if implausible(o.Home, o.Draw, o.Away) {
		bad = append(bad, models.MarketOneXTwo)
	}
	if implausible(o.Over, o.Under) {
		bad = append(bad, models.MarketOverUnder)
	}
	if o.AHLine != nil {
		if q := *o.AHLine * 4; q != math.Trunc(q) {
			bad = append(bad, models.MarketAsianHandicap)
		} else if implausible(o.AHHome, o.AHAway) {
			bad = append(bad, models.MarketAsianHandicap)
		}
	}

	return bad
}

// Clean drops unusable and duplicate matches and clears implausible prices.
// The input slice is not modified.
func (v *DataValidator) Clean(matches []models.Match) ([]models.Match, ValidationReport) {
	report := ValidationReport{Checked: len(matches)}
	out := make([]models.Match, 0, len(matches))
	seen := make(map[string]bool, len(matches))

	for _, m := range matches {
		if errs := v.ValidateMatch(m); len(errs) > 0 {
			report.Rejected++
			v.logger.WithFields(logrus.Fields{
				"match":  m.HomeTeam + " v " + m.AwayTeam,
				"errors": errs,
			}).Warn("Rejected match")
			continue
		}

		key := m.Date.Format("2006-01-02") + "|" + strings.ToLower(m.HomeTeam) + "|" + strings.ToLower(m.AwayTeam)
		if seen[key] {
			report.Duplicates++
			continue
		}
		seen[key] = true

		for _, market := range v.CheckOdds(m.Odds) {
			m.Odds = clearMarket(m.Odds, market)
			report.OddsCleared++
			v.logger.WithFields(logrus.Fields{
				"match":  m.HomeTeam + " v " + m.AwayTeam,
				"market": market,
			}).Debug("Cleared implausible prices")
		}
		out = append(out, m)
	}

	if report.Rejected > 0 || report.Duplicates > 0 {
		v.logger.WithFields(logrus.Fields{
			"checked":    report.Checked,
			"rejected":   report.Rejected,
			"duplicates": report.Duplicates,
		}).Info("Validated match history")
	}
	return out, report
}

// implausible reports a complete book whose overround is outside the band.
// Incomplete books are left for candidate generation to skip.
func implausible(prices ...*float64) bool {
	sum := 0.0
	for _, p := range prices {
		price, ok := models.ValidOdds(p)
		if !ok {
			return false
		}
		sum += 1 / price
	}
	return sum < minOverround || sum > maxOverround
}

func clearMarket(o models.MatchOdds, market models.Market) models.MatchOdds {
	switch market {
	case models.MarketOneXTwo:
		o.Home, o.Draw, o.Away = nil, nil, nil
	case models.MarketOverUnder:
		o.Over, o.Under = nil, nil
	case models.MarketAsianHandicap:
		o.AHLine, o.AHHome, o.AHAway = nil, nil, nil
	}
	return o
}
