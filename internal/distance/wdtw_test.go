package distance

import (
	"errors"
	"math"
	"testing"

	"github.com/go-sod/elens/pkg/xrand"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWeights(t *testing.T) {
	t.Parallel()
	w := NewWeights(0.5, 10)
	require.Equal(t, 10, w.Len())
	assert.InDelta(t, 0.5, w.At(5), 1e-12)
	for k := 1; k < w.Len(); k++ {
		assert.True(t, w.At(k) > w.At(k-1))
	}
	assert.Equal(t, w.At(0), w.Min())

	flat := NewWeights(0, 4)
	for k := 0; k < flat.Len(); k++ {
		assert.Equal(t, 0.5, flat.At(k))
	}
	assert.Equal(t, 0.0, Weights{}.Min())
}

func TestWDTWDistance_MatchesFullMatrix(t *testing.T) {
	t.Parallel()
	r := xrand.New(8)
	for trial := 0; trial < 100; trial++ {
		a := randomSeq(r, 1+r.Intn(15))
		b := randomSeq(r, 1+r.Intn(15))
		g := r.Float64()
		length := maxInt(len(a), len(b))
		w := NewWeights(g, length)
		expected := fullMatrix(a, b, length, w.w)
		require.InDelta(t, expected, WDTWDistance(a, b, w, math.Inf(1)), 1e-9)
		require.InDelta(t, expected, WDTWDistance(b, a, w, math.Inf(1)), 1e-9)
	}
}

func TestWDTW_FlatWeightsHalveDTW(t *testing.T) {
	t.Parallel()
	r := xrand.New(9)
	a, b := randomSeq(r, 20), randomSeq(r, 20)
	m, err := NewWDTW(0)
	require.NoError(t, err)
	full := DTWDistance(a, b, 20, math.Inf(1))
	assert.InDelta(t, full/2, m.Distance(a, b, math.Inf(1)), 1e-9)
}

func TestWDTW_ForLength(t *testing.T) {
	t.Parallel()
	m, err := NewWDTW(0.1)
	require.NoError(t, err)
	sized := Prepare(m, 30).(WDTW)
	assert.Equal(t, 30, sized.Weights().Len())
	assert.Equal(t, 0, m.Weights().Len())
	assert.Equal(t, 0.1, sized.G())

	r := xrand.New(10)
	a, b := randomSeq(r, 30), randomSeq(r, 30)
	assert.Equal(t, m.Distance(a, b, math.Inf(1)), sized.Distance(a, b, math.Inf(1)))

	window, scale := sized.Band(30)
	assert.Equal(t, 30, window)
	assert.Equal(t, sized.Weights().Min(), scale)
}

func TestWDTW_EarlyAbandon(t *testing.T) {
	t.Parallel()
	r := xrand.New(11)
	m, err := NewWDTW(0.3)
	require.NoError(t, err)
	for trial := 0; trial < 100; trial++ {
		a, b := randomSeq(r, 10), randomSeq(r, 10)
		exact := m.Distance(a, b, math.Inf(1))
		require.Equal(t, exact, m.Distance(a, b, exact))
		if exact > 0 {
			require.True(t, m.Distance(a, b, exact/3) > exact/3)
		}
	}
}

func TestNewWDTW(t *testing.T) {
	t.Parallel()
	for _, g := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := NewWDTW(g)
		assert.True(t, errors.Is(err, ErrBadWeight), "g %v", g)
	}
}
