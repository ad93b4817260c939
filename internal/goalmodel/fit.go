package goalmodel

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/yourusername/goalcast/internal/models"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// FitOptions controls the maximum-likelihood fit
type FitOptions struct {
	MaxGoals          int
	MaxIterations     int
	MaxEvaluations    int
	Restarts          int
	SimplexSize       float64
	GradientTolerance float64
}

// DefaultFitOptions returns the options used when none are configured
func DefaultFitOptions() FitOptions {
	return FitOptions{
		MaxGoals:          10,
		MaxIterations:     4000,
		MaxEvaluations:    20000,
		Restarts:          6,
		SimplexSize:       0.1,
		GradientTolerance: 1e-3,
	}
}

// Validate rejects options the optimiser cannot run with
func (o FitOptions) Validate() error {
	switch {
	case o.MaxGoals < 1:
		return fmt.Errorf("max goals must be at least 1, got %d", o.MaxGoals)
	case o.MaxIterations < 1:
		return fmt.Errorf("max iterations must be positive, got %d", o.MaxIterations)
	case o.MaxEvaluations < 1:
		return fmt.Errorf("max evaluations must be positive, got %d", o.MaxEvaluations)
	case o.Restarts < 0:
		return fmt.Errorf("restarts must be non-negative, got %d", o.Restarts)
	case o.GradientTolerance <= 0:
		return fmt.Errorf("gradient tolerance must be positive, got %g", o.GradientTolerance)
	}
	return nil
}

// Diagnostics describes how a fit terminated
type Diagnostics struct {
	Status           string        `json:"status"`
	Converged        bool          `json:"converged"`
	Samples          int           `json:"samples"`
	Iterations       int           `json:"iterations"`
	Evaluations      int           `json:"evaluations"`
	Restarts         int           `json:"restarts"`
	NegLogLikelihood float64       `json:"neg_log_likelihood"`
	GradientNorm     float64       `json:"gradient_norm"`
	Duration         time.Duration `json:"duration"`
}

// FitError is returned when the optimiser stops without a usable optimum
type FitError struct {
	Diagnostics Diagnostics
	Err         error
}

func (e *FitError) Error() string {
	return fmt.Sprintf("%v (status=%s, gradient norm=%.3g, nll=%.6g)",
		e.Err, e.Diagnostics.Status, e.Diagnostics.GradientNorm, e.Diagnostics.NegLogLikelihood)
}

func (e *FitError) Unwrap() error {
	return e.Err
}

type sample struct {
	x, y    int
	eloDiff float64
	// lgamma(x+1) + lgamma(y+1)
	logFact float64
}

func newSamples(matches []models.Match) []sample {
	out := make([]sample, len(matches))
	for i, m := range matches {
		lx, _ := math.Lgamma(float64(m.HomeGoals) + 1)
		ly, _ := math.Lgamma(float64(m.AwayGoals) + 1)
		out[i] = sample{x: m.HomeGoals, y: m.AwayGoals, eloDiff: m.EloDiff(), logFact: lx + ly}
	}
	return out
}

// negLogLikelihood is +Inf for parameters that make any corrected cell of a
// sample's grid non-positive, observed or not.
func negLogLikelihood(p Params, data []sample) float64 {
	nll := 0.0
	for _, s := range data {
		logLambda, logMu := p.LogIntensities(s.eloDiff)
		lambda, mu := math.Exp(logLambda), math.Exp(logMu)
		if !Feasible(lambda, mu, p.Rho) {
			return math.Inf(1)
		}
		tau := Tau(s.x, s.y, lambda, mu, p.Rho)
		if math.IsNaN(tau) {
			return math.Inf(1)
		}
		nll -= math.Log(tau) +
			float64(s.x)*logLambda - lambda +
			float64(s.y)*logMu - mu -
			s.logFact
	}
	return nll
}

// acceptedStatus lists optimiser terminations that indicate a located optimum
func acceptedStatus(s optimize.Status) bool {
	switch s {
	case optimize.Success, optimize.FunctionConvergence, optimize.GradientThreshold,
		optimize.MethodConverge, optimize.FunctionThreshold, optimize.StepConvergence:
		return true
	default:
		return false
	}
}

// Fit estimates the model by minimising the negative log-likelihood with Nelder-Mead.
// The search restarts from the incumbent while the objective keeps improving.
// A fit whose status is a limit or failure, or whose per-match gradient norm
// exceeds GradientTolerance, returns a *FitError wrapping ErrNotConverged.
func Fit(ctx context.Context, matches []models.Match, opts FitOptions) (*Model, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(matches) < 2 {
		return nil, fmt.Errorf("%w: %d matches, need at least 2", models.ErrInsufficientData, len(matches))
	}

	start := time.Now()
	data := newSamples(matches)
	objective := func(x []float64) float64 {
		return negLogLikelihood(ParamsFromVector(x), data)
	}
	problem := optimize.Problem{Func: objective}
	settings := &optimize.Settings{
		MajorIterations: opts.MaxIterations,
		FuncEvaluations: opts.MaxEvaluations,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Relative:   1e-12,
			Iterations: 200,
		},
	}

	x := InitialGuess[:]
	best := objective(x)
	if math.IsInf(best, 1) {
		return nil, fmt.Errorf("%w: initial guess infeasible for training data", models.ErrInfeasibleParams)
	}

	diag := Diagnostics{Samples: len(data), Status: optimize.NotTerminated.String()}
	var status optimize.Status
	for attempt := 0; attempt <= opts.Restarts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := optimize.Minimize(problem, x, settings, &optimize.NelderMead{SimplexSize: opts.SimplexSize})
		if result == nil {
			return nil, fmt.Errorf("goal model optimisation: %w", err)
		}
		diag.Iterations += result.Stats.MajorIterations
		diag.Evaluations += result.Stats.FuncEvaluations
		if attempt > 0 {
			diag.Restarts++
		}

		improvement := best - result.F
		if result.F <= best {
			best = result.F
			x = append([]float64(nil), result.X...)
			status = result.Status
		}
		if err != nil || improvement <= 1e-10*math.Max(1, math.Abs(best)) {
			break
		}
	}

	grad := fd.Gradient(nil, objective, x, &fd.Settings{Formula: fd.Central})
	diag.Status = status.String()
	diag.NegLogLikelihood = best
	diag.GradientNorm = floats.Norm(grad, 2) / float64(len(data))
	diag.Duration = time.Since(start)
	diag.Converged = acceptedStatus(status) &&
		!math.IsNaN(diag.GradientNorm) &&
		diag.GradientNorm <= opts.GradientTolerance

	if !diag.Converged {
		return nil, &FitError{Diagnostics: diag, Err: models.ErrNotConverged}
	}

	return &Model{params: ParamsFromVector(x), maxGoals: opts.MaxGoals, diagnostics: diag}, nil
}
