package markets

// MatchForecast bundles every market derived from one fixture's score grid
type MatchForecast struct {
	LambdaHome float64 `json:"lambda_home" yaml:"lambda_home"`
	LambdaAway float64 `json:"lambda_away" yaml:"lambda_away"`
	// Raw1X2 is the model output before calibration
	Raw1X2        OneXTwoPrediction        `json:"raw_1x2" yaml:"raw_1x2"`
	OneXTwo       OneXTwoPrediction        `json:"1x2" yaml:"1x2"`
	OverUnder     OverUnderPrediction      `json:"over_under" yaml:"over_under"`
	AsianHandicap *AsianHandicapPrediction `json:"asian_handicap,omitempty" yaml:"asian_handicap,omitempty"`
	ExpectedHome  float64                  `json:"expected_home_goals" yaml:"expected_home_goals"`
	ExpectedAway  float64                  `json:"expected_away_goals" yaml:"expected_away_goals"`
	BothToScore   float64                  `json:"btts" yaml:"btts"`
	MostLikely    [2]int                   `json:"most_likely_score" yaml:"most_likely_score"`
}

// NewMatchForecast derives every market from a normalized grid.
// ahLine is nil when no handicap is quoted.
func NewMatchForecast(m ScoreMatrix, lambdaHome, lambdaAway, ouLine float64, ahLine *float64) MatchForecast {
	f := MatchForecast{
		LambdaHome:  lambdaHome,
		LambdaAway:  lambdaAway,
		Raw1X2:      OneXTwo(m),
		OverUnder:   OverUnder(m, ouLine),
		BothToScore: m.BothTeamsToScore(),
	}
	f.OneXTwo = f.Raw1X2
	f.ExpectedHome, f.ExpectedAway = m.ExpectedGoals()
	x, y, _ := m.MostLikelyScore()
	f.MostLikely = [2]int{x, y}
	if ahLine != nil {
		ah := NewAsianHandicapPrediction(m, *ahLine)
		f.AsianHandicap = &ah
	}
	return f
}
