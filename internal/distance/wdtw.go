package distance

import (
	"fmt"
	"math"
)

// MaxWeight is the upper asymptote of the logistic weight function.
const MaxWeight = 1.0

// Weights is the logistic weight vector of weighted DTW for one sequence
// length and one penalty g. It is immutable: a different g or length needs a
// new value from NewWeights.
type Weights struct {
	g float64
	w []float64
}

// NewWeights computes w[k] = 1 / (1 + exp(-g * (k - length/2))) for
// k in [0, length).
func NewWeights(g float64, length int) Weights {
	w := make([]float64, length)
	half := float64(length) / 2
	for k := range w {
		w[k] = MaxWeight / (1 + math.Exp(-g*(float64(k)-half)))
	}
	return Weights{g: g, w: w}
}

func (w Weights) G() float64 {
	return w.g
}

func (w Weights) Len() int {
	return len(w.w)
}

func (w Weights) At(k int) float64 {
	return w.w[k]
}

// Min is the smallest weight, or 0 for an empty vector.
func (w Weights) Min() float64 {
	if len(w.w) == 0 {
		return 0
	}
	min := w.w[0]
	for _, v := range w.w[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

// WDTWDistance is the unconstrained weighted DTW between a and b. The weights
// must have been built for max(len(a), len(b)); otherwise matching weights
// are derived on the fly from the same penalty.
func WDTWDistance(a, b []float64, w Weights, cutoff float64) float64 {
	length := maxInt(len(a), len(b))
	if w.Len() != length {
		w = NewWeights(w.g, length)
	}
	return warp(a, b, length, w.w, cutoff)
}

// WDTW is weighted dynamic time warping with penalty G.
type WDTW struct {
	weights Weights
}

var (
	_ Measure = WDTW{}
	_ Banded  = WDTW{}
	_ Sized   = WDTW{}
)

func NewWDTW(g float64) (WDTW, error) {
	if math.IsNaN(g) || math.IsInf(g, 0) || g < 0 {
		return WDTW{}, fmt.Errorf("%w: %v", ErrBadWeight, g)
	}
	return WDTW{weights: Weights{g: g}}, nil
}

func (d WDTW) G() float64 {
	return d.weights.g
}

func (d WDTW) Weights() Weights {
	return d.weights
}

// ForLength returns a copy carrying the weight vector for length.
func (d WDTW) ForLength(length int) Measure {
	if d.weights.Len() == length {
		return d
	}
	return WDTW{weights: NewWeights(d.weights.g, length)}
}

func (d WDTW) Distance(a, b []float64, cutoff float64) float64 {
	return WDTWDistance(a, b, d.weights, cutoff)
}

// Band covers the whole sequence. Every path cell costs at least the
// smallest weight times its squared difference.
func (d WDTW) Band(length int) (int, float64) {
	w := d.weights
	if w.Len() != length {
		w = NewWeights(w.g, length)
	}
	return length, w.Min()
}

func (d WDTW) String() string {
	return fmt.Sprintf("WDTW(g=%g)", d.weights.g)
}
