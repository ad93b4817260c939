package markets

// OverUnderPrediction splits total-goal mass around a line
type OverUnderPrediction struct {
	Line  float64 `json:"line" yaml:"line"`
	Over  float64 `json:"over" yaml:"over"`
	Under float64 `json:"under" yaml:"under"`
	// Equal is non-zero only for whole-number lines
	Equal float64 `json:"equal" yaml:"equal"`
}

// OverUnder sums the mass where total goals exceed, fall short of, or tie the line
func OverUnder(m ScoreMatrix, line float64) OverUnderPrediction {
	p := OverUnderPrediction{Line: line}
	for x, row := range m {
		for y, v := range row {
			total := float64(x + y)
			switch {
			case total > line:
				p.Over += v
			case total < line:
				p.Under += v
			default:
				p.Equal += v
			}
		}
	}
	return p
}

// WinProbabilityExPush returns P(over) or P(under) conditional on the bet not being refunded
func (p OverUnderPrediction) WinProbabilityExPush(over bool) float64 {
	decided := p.Over + p.Under
	if decided <= 0 {
		return 0
	}
	if over {
		return p.Over / decided
	}
	return p.Under / decided
}
