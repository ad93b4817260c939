package markets

import (
	"math"

	"github.com/yourusername/goalcast/internal/models"
)

// AHOutcome is the settlement distribution of one Asian Handicap side
type AHOutcome struct {
	Win      float64 `json:"win" yaml:"win"`
	HalfWin  float64 `json:"half_win" yaml:"half_win"`
	Push     float64 `json:"push" yaml:"push"`
	HalfLoss float64 `json:"half_loss" yaml:"half_loss"`
	Loss     float64 `json:"loss" yaml:"loss"`
}

// Total returns the summed mass of every settlement class
func (o AHOutcome) Total() float64 {
	return o.Win + o.HalfWin + o.Push + o.HalfLoss + o.Loss
}

// WinProbabilityExPush is the staking probability: half outcomes count half, refunds drop out
func (o AHOutcome) WinProbabilityExPush() float64 {
	won := o.Win + 0.5*o.HalfWin
	lost := o.Loss + 0.5*o.HalfLoss
	if won+lost <= 0 {
		return 0
	}
	return won / (won + lost)
}

// ExpectedReturn is the expected profit per unit staked at the given decimal odds
func (o AHOutcome) ExpectedReturn(odds float64) float64 {
	b := odds - 1
	return o.Win*b + o.HalfWin*b/2 - o.HalfLoss/2 - o.Loss
}

// AsianHandicapPrediction carries both sides of a handicap market.
// Line is quoted for the home side; the away side takes -Line.
type AsianHandicapPrediction struct {
	Line float64   `json:"line" yaml:"line"`
	Home AHOutcome `json:"home" yaml:"home"`
	Away AHOutcome `json:"away" yaml:"away"`
}

// IsQuarterLine reports whether the line ends in .25 or .75
func IsQuarterLine(line float64) bool {
	frac := math.Abs(line*4 - 2*math.Round(line*2))
	return math.Abs(frac-1) < 1e-9
}

// SplitQuarterLine returns the two bracketing sub-lines of a quarter line.
// Whole and half lines come back as (line, line, false).
func SplitQuarterLine(line float64) (lo, hi float64, quarter bool) {
	if !IsQuarterLine(line) {
		return line, line, false
	}
	return line - 0.25, line + 0.25, true
}

// lineResult scores a single whole or half line: +1 win, 0 push, -1 loss
func lineResult(diff int, line float64) int {
	adjusted := float64(diff) + line
	switch {
	case adjusted > 1e-9:
		return 1
	case adjusted < -1e-9:
		return -1
	default:
		return 0
	}
}

// SideResult classifies a goal difference from the backed side's perspective
// against a handicap, returning the fraction of stake won (+) or lost (-).
func SideResult(diff int, line float64) float64 {
	lo, hi, quarter := SplitQuarterLine(line)
	if !quarter {
		return float64(lineResult(diff, line))
	}
	return float64(lineResult(diff, lo)+lineResult(diff, hi)) / 2
}

// AsianHandicap derives the settlement distribution for backing side at line.
// line applies to the backed side, so an away bet on a home -0.5 market uses +0.5.
func AsianHandicap(m ScoreMatrix, line float64, side models.Selection) AHOutcome {
	var out AHOutcome
	dist := m.GoalDifference()
	for i, p := range dist.Probs {
		homeDiff := dist.Min + i
		diff := homeDiff
		if side == models.SelectionAway {
			diff = -homeDiff
		}
		switch SideResult(diff, line) {
		case 1:
			out.Win += p
		case 0.5:
			out.HalfWin += p
		case -0.5:
			out.HalfLoss += p
		case -1:
			out.Loss += p
		default:
			out.Push += p
		}
	}
	out.Push = math.Max(0, out.Push+1-out.Total())
	return out
}

// NewAsianHandicapPrediction evaluates both sides of a home-quoted line
func NewAsianHandicapPrediction(m ScoreMatrix, homeLine float64) AsianHandicapPrediction {
	return AsianHandicapPrediction{
		Line: homeLine,
		Home: AsianHandicap(m, homeLine, models.SelectionHome),
		Away: AsianHandicap(m, -homeLine, models.SelectionAway),
	}
}

// Side returns the outcome distribution for the given selection
func (p AsianHandicapPrediction) Side(sel models.Selection) AHOutcome {
	if sel == models.SelectionAway {
		return p.Away
	}
	return p.Home
}

// SideLine returns the handicap applied to the given selection
func (p AsianHandicapPrediction) SideLine(sel models.Selection) float64 {
	if sel == models.SelectionAway {
		return -p.Line
	}
	return p.Line
}
