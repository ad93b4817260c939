package markets

import (
	"fmt"
	"math"

	"github.com/yourusername/goalcast/internal/models"
)

// PartitionTolerance bounds how far a probability partition may drift from one
const PartitionTolerance = 1e-6

// OneXTwoPrediction is the home/draw/away partition for a fixture
type OneXTwoPrediction struct {
	Home float64 `json:"home" yaml:"home"`
	Draw float64 `json:"draw" yaml:"draw"`
	Away float64 `json:"away" yaml:"away"`
}

// NewOneXTwo validates that the three probabilities are non-negative and sum to one
func NewOneXTwo(home, draw, away float64) (OneXTwoPrediction, error) {
	p := OneXTwoPrediction{Home: home, Draw: draw, Away: away}
	for _, v := range p.Array() {
		if math.IsNaN(v) || v < 0 {
			return OneXTwoPrediction{}, fmt.Errorf("%w: %+v", models.ErrDegenerateProbabilities, p)
		}
	}
	if math.Abs(home+draw+away-1) > PartitionTolerance {
		return OneXTwoPrediction{}, fmt.Errorf("%w: sum %g", models.ErrDegenerateProbabilities, home+draw+away)
	}
	return p, nil
}

// OneXTwo reduces the grid to 1X2: home wins below the diagonal, draws on it, away wins above
func OneXTwo(m ScoreMatrix) OneXTwoPrediction {
	var p OneXTwoPrediction
	for x, row := range m {
		for y, v := range row {
			switch {
			case x > y:
				p.Home += v
			case x == y:
				p.Draw += v
			default:
				p.Away += v
			}
		}
	}
	return p
}

// Array returns the partition ordered home, draw, away
func (p OneXTwoPrediction) Array() [3]float64 {
	return [3]float64{p.Home, p.Draw, p.Away}
}

// Prob returns the probability for a 1X2 selection
func (p OneXTwoPrediction) Prob(sel models.Selection) (float64, error) {
	switch sel {
	case models.SelectionHome:
		return p.Home, nil
	case models.SelectionDraw:
		return p.Draw, nil
	case models.SelectionAway:
		return p.Away, nil
	default:
		return 0, fmt.Errorf("selection %q is not a 1X2 outcome", sel)
	}
}

// FromArray builds a prediction from a home, draw, away triple without validation
func FromArray(a [3]float64) OneXTwoPrediction {
	return OneXTwoPrediction{Home: a[0], Draw: a[1], Away: a[2]}
}
