// Package xrand provides a small seeded generator for reproducible shuffles
// and tie-breaks. It never touches process-wide random state.
package xrand

import (
	"math"

	"github.com/valyala/fastrand"
)

// Rand is a xorshift generator seeded from an explicit int64 seed.
// Two generators built from the same seed produce the same stream.
// A Rand is not safe for concurrent use.
type Rand struct {
	rng fastrand.RNG
}

func New(seed int64) *Rand {
	r := &Rand{}
	r.rng.Seed(state(seed))
	return r
}

// state mixes the seed into a non-zero 32 bit state. fastrand reseeds a zero
// state from the runtime, which would break reproducibility.
func state(seed int64) uint32 {
	z := uint64(seed) + 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	z ^= z >> 31
	s := uint32(z) ^ uint32(z>>32)
	if s == 0 {
		s = 0x6d2b79f5
	}
	return s
}

func (r *Rand) Uint32() uint32 {
	return r.rng.Uint32()
}

// Intn returns a value in [0, n). It panics if n <= 0.
func (r *Rand) Intn(n int) int {
	if n <= 0 {
		panic("xrand: invalid argument to Intn")
	}
	if uint64(n) > math.MaxUint32 {
		hi := uint64(r.rng.Uint32())<<32 | uint64(r.rng.Uint32())
		return int(hi % uint64(n))
	}
	return int(r.rng.Uint32n(uint32(n)))
}

// Float64 returns a value in [0, 1).
func (r *Rand) Float64() float64 {
	hi := uint64(r.rng.Uint32() >> 5)
	lo := uint64(r.rng.Uint32() >> 6)
	return float64(hi<<26|lo) / (1 << 53)
}

// Shuffle is a Fisher-Yates shuffle over n elements.
func (r *Rand) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		swap(i, r.Intn(i+1))
	}
}

func (r *Rand) Perm(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	r.Shuffle(n, func(i, j int) { p[i], p[j] = p[j], p[i] })
	return p
}

// ArgMax returns the index of the largest value. Ties are resolved uniformly
// at random by a generator freshly seeded with seed, so the same values and
// seed always give the same index. NaN values are never selected. It returns
// -1 when no value qualifies.
func ArgMax(values []float64, seed int64) int {
	var (
		best = math.Inf(-1)
		tied []int
	)
	for i, v := range values {
		switch {
		case math.IsNaN(v):
		case v > best || tied == nil:
			best = v
			tied = append(tied[:0], i)
		case v == best:
			tied = append(tied, i)
		}
	}
	switch len(tied) {
	case 0:
		return -1
	case 1:
		return tied[0]
	default:
		return tied[New(seed).Intn(len(tied))]
	}
}
