// Package calibration maps raw model probabilities onto observed frequencies.
package calibration

import (
	"fmt"
	"math"
	"sort"
)

// IsotonicRegression is a non-decreasing step-interpolated mapping fit by pool-adjacent-violators
type IsotonicRegression struct {
	xs []float64
	ys []float64
}

type block struct {
	sumWY  float64
	weight float64
	// first and last index into the merged point list
	lo, hi int
}

func (b block) mean() float64 {
	return b.sumWY / b.weight
}

// FitIsotonic fits a weighted isotonic regression of y on x.
// Weights may be nil for unit weights. Equal x values are merged before pooling.
func FitIsotonic(x, y, w []float64) (*IsotonicRegression, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("isotonic: %d inputs but %d targets", len(x), len(y))
	}
	if w != nil && len(w) != len(x) {
		return nil, fmt.Errorf("isotonic: %d inputs but %d weights", len(x), len(w))
	}
	if len(x) == 0 {
		return nil, fmt.Errorf("isotonic: no samples")
	}

	idx := make([]int, 0, len(x))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		if w != nil && !(w[i] > 0) {
			continue
		}
		idx = append(idx, i)
	}
	if len(idx) == 0 {
		return nil, fmt.Errorf("isotonic: no finite samples")
	}
	sort.SliceStable(idx, func(a, b int) bool { return x[idx[a]] < x[idx[b]] })

	// Merge duplicate x into weighted points
	var px, pwy, pw []float64
	for _, i := range idx {
		wi := 1.0
		if w != nil {
			wi = w[i]
		}
		if n := len(px); n > 0 && px[n-1] == x[i] {
			pwy[n-1] += wi * y[i]
			pw[n-1] += wi
			continue
		}
		px = append(px, x[i])
		pwy = append(pwy, wi*y[i])
		pw = append(pw, wi)
	}

	// Pool adjacent violators
	stack := make([]block, 0, len(px))
	for i := range px {
		stack = append(stack, block{sumWY: pwy[i], weight: pw[i], lo: i, hi: i})
		for len(stack) > 1 {
			last := stack[len(stack)-1]
			prev := stack[len(stack)-2]
			if prev.mean() <= last.mean() {
				break
			}
			stack = stack[:len(stack)-2]
			stack = append(stack, block{
				sumWY:  prev.sumWY + last.sumWY,
				weight: prev.weight + last.weight,
				lo:     prev.lo,
				hi:     last.hi,
			})
		}
	}

	ys := make([]float64, len(px))
	for _, b := range stack {
		v := b.mean()
		for i := b.lo; i <= b.hi; i++ {
			ys[i] = v
		}
	}
	return &IsotonicRegression{xs: px, ys: ys}, nil
}

// Predict interpolates linearly between fitted points, clamps outside the
// fitted range and clips the result to [0, 1]
func (r *IsotonicRegression) Predict(x float64) float64 {
	if math.IsNaN(x) {
		return math.NaN()
	}
	n := len(r.xs)
	var v float64
	switch {
	case x <= r.xs[0]:
		v = r.ys[0]
	case x >= r.xs[n-1]:
		v = r.ys[n-1]
	default:
		j := sort.SearchFloat64s(r.xs, x)
		if r.xs[j] == x {
			v = r.ys[j]
		} else {
			x0, x1 := r.xs[j-1], r.xs[j]
			y0, y1 := r.ys[j-1], r.ys[j]
			v = y0 + (y1-y0)*(x-x0)/(x1-x0)
		}
	}
	return math.Max(0, math.Min(1, v))
}

// Points returns the fitted knots
func (r *IsotonicRegression) Points() (xs, ys []float64) {
	return append([]float64(nil), r.xs...), append([]float64(nil), r.ys...)
}
