// Package distance implements the elastic distance measures used by the
// nearest neighbour classifiers.
//
// Every measure takes a cutoff. When the measure can prove its result is
// strictly greater than the cutoff it stops and returns Abandoned, which
// compares greater than every finite cutoff. A cutoff at or above the true
// distance always yields the exact distance. Pass math.Inf(1) for no cutoff.
package distance

import (
	"errors"
	"math"
)

var (
	ErrDimNotEqual = errors.New("distance: vectors dimension is not equal")
	ErrBadWindow   = errors.New("distance: warping window must be a fraction in [0, 1]")
	ErrBadWeight   = errors.New("distance: weight penalty must be a finite non-negative value")
	ErrUnknown     = errors.New("distance: unknown measure")
)

// Abandoned is returned by a measure that stopped early.
var Abandoned = math.Inf(1)

// Measure is a distance between two sequences with early abandoning.
type Measure interface {
	Distance(a, b []float64, cutoff float64) float64
	String() string
}

// Banded is implemented by measures that admit an LB_Keogh lower bound. Band
// returns the envelope width for sequences of the given length and the factor
// the bound has to be scaled by to stay below the distance.
type Banded interface {
	Band(length int) (window int, scale float64)
}

// Sized is implemented by measures holding per-length state. ForLength returns
// a measure prepared for sequences of that length.
type Sized interface {
	ForLength(length int) Measure
}

// Prepare returns m prepared for the given sequence length.
func Prepare(m Measure, length int) Measure {
	if s, ok := m.(Sized); ok {
		return s.ForLength(length)
	}
	return m
}

// IsAbandoned reports whether d is the abandoned sentinel.
func IsAbandoned(d float64) bool {
	return math.IsInf(d, 1)
}

// Euclidean is the squared euclidean distance.
type Euclidean struct{}

var (
	_ Measure = Euclidean{}
	_ Banded  = Euclidean{}
)

func (Euclidean) Distance(a, b []float64, cutoff float64) float64 {
	if len(a) != len(b) {
		return Abandoned
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
		if sum > cutoff {
			return Abandoned
		}
	}
	return sum
}

func (Euclidean) Band(int) (int, float64) {
	return 0, 1
}

func (Euclidean) String() string {
	return "ED"
}
