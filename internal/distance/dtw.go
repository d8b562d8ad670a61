package distance

import (
	"fmt"
	"math"
)

// WindowSize converts a warping fraction into a band half width for
// sequences of lengths m and n.
func WindowSize(fraction float64, m, n int) int {
	return int(math.Round(fraction * float64(maxInt(m, n))))
}

// DTW is dynamic time warping restricted to a Sakoe-Chiba band whose half
// width is a fraction of the longer sequence.
type DTW struct {
	window float64
}

var (
	_ Measure = DTW{}
	_ Banded  = DTW{}
)

func NewDTW(window float64) (DTW, error) {
	if math.IsNaN(window) || window < 0 || window > 1 {
		return DTW{}, fmt.Errorf("%w: %v", ErrBadWindow, window)
	}
	return DTW{window: window}, nil
}

func (d DTW) Window() float64 {
	return d.window
}

func (d DTW) Distance(a, b []float64, cutoff float64) float64 {
	return DTWDistance(a, b, WindowSize(d.window, len(a), len(b)), cutoff)
}

func (d DTW) Band(length int) (int, float64) {
	return WindowSize(d.window, length, length), 1
}

func (d DTW) String() string {
	return fmt.Sprintf("DTW(window=%g)", d.window)
}

// DTWDistance is the banded DTW between a and b with squared point cost.
// The band is widened to |len(a)-len(b)| when needed so that a warping path
// always exists.
func DTWDistance(a, b []float64, window int, cutoff float64) float64 {
	return warp(a, b, window, nil, cutoff)
}

// warp fills the cost matrix row by row keeping two rows. A nil weight slice
// means unit weights, otherwise weights[|i-j|] scales the point cost.
//
// Cells outside the band hold +Inf, so the first row and column reduce to
// cumulative sums. If every cell of a row exceeds cutoff, no path through the
// remaining rows can end below it.
func warp(a, b []float64, window int, weights []float64, cutoff float64) float64 {
	m, n := len(a), len(b)
	if m == 0 || n == 0 {
		if m == n {
			return 0
		}
		return Abandoned
	}
	if window < 0 {
		window = 0
	}
	if diff := absInt(m - n); window < diff {
		window = diff
	}

	inf := math.Inf(1)
	prev := make([]float64, n)
	curr := make([]float64, n)
	for j := range prev {
		prev[j] = inf
		curr[j] = inf
	}

	weight := func(k int) float64 {
		if weights == nil {
			return 1
		}
		return weights[k]
	}

	var acc float64
	rowMin := inf
	for j := 0; j <= minInt(window, n-1); j++ {
		d := a[0] - b[j]
		acc += d * d * weight(j)
		prev[j] = acc
		if acc < rowMin {
			rowMin = acc
		}
	}
	if rowMin > cutoff {
		return Abandoned
	}

	for i := 1; i < m; i++ {
		lo, hi := maxInt(0, i-window), minInt(n-1, i+window)
		if lo > 0 {
			curr[lo-1] = inf
		}
		rowMin = inf
		for j := lo; j <= hi; j++ {
			best := prev[j]
			if j > 0 {
				if curr[j-1] < best {
					best = curr[j-1]
				}
				if prev[j-1] < best {
					best = prev[j-1]
				}
			}
			d := a[i] - b[j]
			v := best + d*d*weight(absInt(i-j))
			curr[j] = v
			if v < rowMin {
				rowMin = v
			}
		}
		if rowMin > cutoff {
			return Abandoned
		}
		prev, curr = curr, prev
	}
	return prev[n-1]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func absInt(a int) int {
	if a < 0 {
		return -a
	}
	return a
}
