package lowerbound

import (
	"errors"
	"fmt"
)

var (
	ErrStaleCache = errors.New("lowerbound: cache built for a different window")
	ErrBadIndex   = errors.New("lowerbound: candidate index out of range")
)

type Cache struct {
	window int
	upper  [][]float64
	lower  [][]float64
}

// NewCache computes the envelopes of every sequence for window.
func NewCache(sequences [][]float64, window int) *Cache {
	if window < 0 {
		window = 0
	}
	c := &Cache{
		window: window,
		upper:  make([][]float64, len(sequences)),
		lower:  make([][]float64, len(sequences)),
	}
	for i, s := range sequences {
		c.upper[i], c.lower[i] = Envelope(s, window)
	}
	return c
}

// Window is the window the envelopes were built for.
func (c *Cache) Window() int {
	return c.window
}

func (c *Cache) Len() int {
	return len(c.upper)
}

func (c *Cache) Upper(i int) []float64 {
	return c.upper[i]
}

func (c *Cache) Lower(i int) []float64 {
	return c.lower[i]
}

// LowerBound returns LB_Keogh between query and the cached candidate. The
// bound never exceeds the banded DTW distance for the same window. Calling it
// with a window other than Window is a programming error reported as
// ErrStaleCache.
func (c *Cache) LowerBound(query []float64, candidate, window int, cutoff float64) (float64, error) {
	if window != c.window {
		return 0, fmt.Errorf("%w: built for %d, asked for %d", ErrStaleCache, c.window, window)
	}
	if candidate < 0 || candidate >= len(c.upper) {
		return 0, fmt.Errorf("%w: %d", ErrBadIndex, candidate)
	}
	return Keogh(query, c.upper[candidate], c.lower[candidate], cutoff), nil
}

// Keogh sums the squared envelope violations of query. It stops once the sum
// exceeds cutoff; the partial sum is still a valid bound. Sequences of
// different lengths get the trivial bound 0.
func Keogh(query, upper, lower []float64, cutoff float64) float64 {
	if len(query) != len(upper) || len(query) != len(lower) {
		return 0
	}
	var sum float64
	for i, q := range query {
		switch {
		case q > upper[i]:
			d := q - upper[i]
			sum += d * d
		case q < lower[i]:
			d := lower[i] - q
			sum += d * d
		}
		if sum > cutoff {
			return sum
		}
	}
	return sum
}
