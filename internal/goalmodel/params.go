// Package goalmodel fits and evaluates the Dixon-Coles bivariate Poisson goal model.
package goalmodel

import (
	"math"

	"github.com/yourusername/goalcast/internal/models"
)

// maxLogIntensity bounds the log-intensity so exp never overflows during optimisation
const maxLogIntensity = 30.0

// InitialGuess is the fixed optimiser starting point, in Vector order
var InitialGuess = [6]float64{0.1, 0.5, 0.1, 0.5, 0.2, -0.05}

// Params are the six fitted coefficients of the goal model
type Params struct {
	// A0 is the home log-attack intercept and A1 its slope on the rating difference
	A0 float64 `json:"a0" yaml:"a0"`
	A1 float64 `json:"a1" yaml:"a1"`
	// B0 is the away log-attack intercept and B1 its (negated) slope
	B0      float64 `json:"b0" yaml:"b0"`
	B1      float64 `json:"b1" yaml:"b1"`
	HomeAdv float64 `json:"home_adv" yaml:"home_adv"`
	Rho     float64 `json:"rho" yaml:"rho"`
}

// Vector flattens the parameters into optimiser order
func (p Params) Vector() []float64 {
	return []float64{p.A0, p.A1, p.B0, p.B1, p.HomeAdv, p.Rho}
}

// ParamsFromVector is the inverse of Vector
func ParamsFromVector(x []float64) Params {
	return Params{A0: x[0], A1: x[1], B0: x[2], B1: x[3], HomeAdv: x[4], Rho: x[5]}
}

// LogIntensities returns log λ and log μ for a home-minus-away rating difference
func (p Params) LogIntensities(eloDiff float64) (logLambda, logMu float64) {
	d := eloDiff / models.EloScale
	logLambda = clamp(p.A0+p.A1*d+p.HomeAdv, -maxLogIntensity, maxLogIntensity)
	logMu = clamp(p.B0-p.B1*d, -maxLogIntensity, maxLogIntensity)
	return logLambda, logMu
}

// Intensities returns the home (λ) and away (μ) Poisson means
func (p Params) Intensities(eloDiff float64) (lambda, mu float64) {
	ll, lm := p.LogIntensities(eloDiff)
	return math.Exp(ll), math.Exp(lm)
}

// Tau is the Dixon-Coles low-score dependence factor
func Tau(x, y int, lambda, mu, rho float64) float64 {
	switch {
	case x == 0 && y == 0:
		return 1 - lambda*mu*rho
	case x == 0 && y == 1:
		return 1 + lambda*rho
	case x == 1 && y == 0:
		return 1 + mu*rho
	case x == 1 && y == 1:
		return 1 - rho
	default:
		return 1
	}
}

// Feasible reports whether every corrected low-score cell stays positive at these intensities
func Feasible(lambda, mu, rho float64) bool {
	for x := 0; x <= 1; x++ {
		for y := 0; y <= 1; y++ {
			if Tau(x, y, lambda, mu, rho) <= 0 {
				return false
			}
		}
	}
	return true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
