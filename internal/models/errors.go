package models

import "errors"

// Custom errors
var (
	ErrInvalidOdds             = errors.New("invalid odds")
	ErrMissingColumn           = errors.New("required column missing")
	ErrMalformedRow            = errors.New("malformed row")
	ErrNotConverged            = errors.New("model fit did not converge")
	ErrInfeasibleParams        = errors.New("parameters produce negative probabilities")
	ErrInsufficientData        = errors.New("insufficient data")
	ErrUnknownMarket           = errors.New("unknown market")
	ErrDegenerateProbabilities = errors.New("degenerate probability row")
	ErrNotFound                = errors.New("record not found")
)
