package calibration

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/goalcast/internal/models"
)

// DefaultMinSamples is the per-class count below which a calibration fit is flagged
const DefaultMinSamples = 30

var classes = [3]models.Selection{models.SelectionHome, models.SelectionDraw, models.SelectionAway}

// Calibrator holds one isotonic mapping per 1X2 class.
// The zero value is an identity mapping until Fit succeeds.
type Calibrator struct {
	MinSamples int
	logger     *logrus.Logger
	mappings   [3]*IsotonicRegression
	samples    int
}

// NewCalibrator creates an unfitted calibrator
func NewCalibrator(minSamples int, logger *logrus.Logger) *Calibrator {
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Calibrator{MinSamples: minSamples, logger: logger}
}

// Fitted reports whether the mappings have been fit
func (c *Calibrator) Fitted() bool {
	return c.mappings[0] != nil
}

// Samples returns the number of rows the calibrator was fit on
func (c *Calibrator) Samples() int {
	return c.samples
}

// Fit learns one mapping per class from realised outcomes and raw probabilities.
// Fewer than MinSamples occurrences of a class logs a warning and proceeds.
func (c *Calibrator) Fit(outcomes []models.Selection, raw [][3]float64) error {
	if len(outcomes) != len(raw) {
		return fmt.Errorf("calibration: %d outcomes but %d probability rows", len(outcomes), len(raw))
	}
	if len(raw) == 0 {
		return fmt.Errorf("calibration: %w: no rows", models.ErrInsufficientData)
	}

	var fitted [3]*IsotonicRegression
	for k, class := range classes {
		x := make([]float64, len(raw))
		y := make([]float64, len(raw))
		hits := 0
		for i := range raw {
			x[i] = raw[i][k]
			if outcomes[i] == class {
				y[i] = 1
				hits++
			}
		}
		if hits < c.minSamples() {
			c.log().WithFields(logrus.Fields{
				"class":       class,
				"occurrences": hits,
				"rows":        len(raw),
				"min_samples": c.minSamples(),
			}).Warn("Calibration class below minimum sample count")
		}
		reg, err := FitIsotonic(x, y, nil)
		if err != nil {
			return fmt.Errorf("calibration class %s: %w", class, err)
		}
		fitted[k] = reg
	}

	c.mappings = fitted
	c.samples = len(raw)
	return nil
}

// Transform maps each class independently then renormalises the row.
// A zero row sum yields NaN entries, which callers treat as no bet.
func (c *Calibrator) Transform(raw [3]float64) [3]float64 {
	if !c.Fitted() {
		return raw
	}
	var out [3]float64
	sum := 0.0
	for k := range out {
		out[k] = c.mappings[k].Predict(raw[k])
		sum += out[k]
	}
	if sum == 0 || math.IsNaN(sum) {
		return [3]float64{math.NaN(), math.NaN(), math.NaN()}
	}
	for k := range out {
		out[k] /= sum
	}
	return out
}

// TransformAll applies Transform row by row
func (c *Calibrator) TransformAll(raw [][3]float64) [][3]float64 {
	out := make([][3]float64, len(raw))
	for i, row := range raw {
		out[i] = c.Transform(row)
	}
	return out
}

// Degenerate reports whether a calibrated row is unusable
func Degenerate(p [3]float64) bool {
	for _, v := range p {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

func (c *Calibrator) minSamples() int {
	if c.MinSamples <= 0 {
		return DefaultMinSamples
	}
	return c.MinSamples
}

func (c *Calibrator) log() *logrus.Logger {
	if c.logger == nil {
		return logrus.StandardLogger()
	}
	return c.logger
}
