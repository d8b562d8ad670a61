package search_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/go-sod/elens/internal/cv"
	"github.com/go-sod/elens/internal/distance"
	"github.com/go-sod/elens/internal/search"
	"github.com/go-sod/elens/internal/series"
	"github.com/go-sod/elens/pkg/xrand"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// separated returns a dataset whose classes are far apart under any window.
func separated(seed int64, perClass, length int) *series.Dataset {
	r := xrand.New(seed)
	ds := series.NewDataset("separated", 2)
	for c := 0; c < 2; c++ {
		for i := 0; i < perClass; i++ {
			values := make([]float64, length)
			for j := range values {
				values[j] = float64(c)*10 + r.Float64()
			}
			ds.Sequences = append(ds.Sequences, series.New(values, c))
		}
	}
	return ds
}

// noisy returns a dataset with overlapping classes so that accuracies differ
// between windows.
func noisy(seed int64, n, length int) *series.Dataset {
	r := xrand.New(seed)
	ds := series.NewDataset("noisy", 3)
	for i := 0; i < n; i++ {
		c := r.Intn(3)
		values := make([]float64, length)
		shift := r.Intn(length / 2)
		for j := range values {
			values[j] = r.Float64()
			if j == shift+c {
				values[j] += 3
			}
		}
		ds.Sequences = append(ds.Sequences, series.New(values, c))
	}
	return ds
}

// farthest prefers the farthest sequence, which misclassifies separated data.
type farthest struct{}

func (farthest) Distance(a, b []float64, _ float64) float64 {
	d := distance.Euclidean{}.Distance(a, b, distance.Abandoned)
	return -d
}

func (farthest) String() string {
	return "farthest"
}

func TestDefaultGrid(t *testing.T) {
	t.Parallel()
	g := search.DefaultGrid()
	require.Len(t, g, 100)
	assert.Equal(t, 0.0, g[0])
	assert.InDelta(t, 0.99, g[99], 1e-12)
	assert.NoError(t, g.Validate())
}

func TestUniformGrid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		lo, hi   float64
		steps    int
		expected search.Grid
		err      bool
	}{
		{name: "three", lo: 0, hi: 1, steps: 3, expected: search.Grid{0, 0.5, 1}},
		{name: "single", lo: 0.2, hi: 0.9, steps: 1, expected: search.Grid{0.2}},
		{name: "no_steps", lo: 0, hi: 1, steps: 0, err: true},
		{name: "reversed", lo: 1, hi: 0, steps: 4, err: true},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			g, err := search.UniformGrid(test.lo, test.hi, test.steps)
			if test.err {
				assert.True(t, errors.Is(err, search.ErrBadGrid))
				return
			}
			require.NoError(t, err)
			assert.InDeltaSlice(t, test.expected, g, 1e-12)
		})
	}
}

func TestSearch_EuclideanOptimalSelectsZero(t *testing.T) {
	t.Parallel()
	ds := separated(1, 8, 12)
	res, err := search.Search(context.Background(), ds, search.FamilyOf(distance.TypeDTW), search.DefaultGrid(),
		search.WithParallelism(4))
	require.NoError(t, err)
	assert.Equal(t, 0, res.BestIndex)
	assert.Equal(t, 0.0, res.Best)
	assert.Equal(t, 1.0, res.Accuracy)
	assert.Len(t, res.Accuracies, 100)
	assert.Equal(t, "DTW(window=0)", res.Measure.String())
}

func TestSearch_FirstMaximumWins(t *testing.T) {
	t.Parallel()
	family := func(p float64) (distance.Measure, error) {
		if p < 0.5 {
			return farthest{}, nil
		}
		return distance.Euclidean{}, nil
	}
	grid := search.Grid{0.1, 0.3, 0.6, 0.7, 0.9}
	res, err := search.Search(context.Background(), separated(2, 5, 6), family, grid, search.WithParallelism(2))
	require.NoError(t, err)
	assert.Equal(t, 2, res.BestIndex)
	assert.Equal(t, 0.6, res.Best)
	assert.Equal(t, 1.0, res.Accuracy)
	assert.Equal(t, 0.0, res.Accuracies[0])
}

func TestSearch_Deterministic(t *testing.T) {
	t.Parallel()
	ds := noisy(3, 40, 16)
	grid, err := search.UniformGrid(0, 0.5, 6)
	require.NoError(t, err)
	family := search.FamilyOf(distance.TypeDTW)
	ctx := context.Background()

	sequential, err := search.Search(ctx, ds, family, grid)
	require.NoError(t, err)
	parallel, err := search.Search(ctx, ds, family, grid, search.WithParallelism(6))
	require.NoError(t, err)
	exhaustive, err := search.Search(ctx, ds, family, grid, search.WithPruning(false))
	require.NoError(t, err)

	assert.Equal(t, sequential.Accuracies, parallel.Accuracies)
	assert.Equal(t, sequential.Accuracies, exhaustive.Accuracies)
	assert.Equal(t, sequential.BestIndex, parallel.BestIndex)
	for i, acc := range sequential.Accuracies {
		assert.LessOrEqual(t, acc, sequential.Accuracy, "candidate %d", i)
		if i < sequential.BestIndex {
			assert.Less(t, acc, sequential.Accuracy, "candidate %d", i)
		}
	}
}

func TestSearch_Folds(t *testing.T) {
	t.Parallel()
	ds := separated(4, 10, 8)
	grid := search.Grid{0, 0.2, 0.4}
	res, err := search.Search(context.Background(), ds, search.FamilyOf(distance.TypeWDTW), grid,
		search.WithFolds(5, 7), search.WithParallelism(3))
	require.NoError(t, err)
	assert.Equal(t, 0, res.BestIndex)
	assert.Equal(t, []float64{1, 1, 1}, res.Accuracies)
}

func TestSearch_Errors(t *testing.T) {
	t.Parallel()
	ds := separated(5, 3, 4)
	regression := series.NewDataset("reg", 0, series.Sequence{Values: []float64{1, 2}, Target: 1})
	ragged := series.NewDataset("ragged", 2, series.New([]float64{1, 2}, 0), series.New([]float64{1}, 1))
	dtw := search.FamilyOf(distance.TypeDTW)

	tests := []struct {
		name     string
		ds       *series.Dataset
		family   search.Family
		grid     search.Grid
		opts     []search.Option
		expected error
	}{
		{name: "empty_grid", ds: ds, family: dtw, grid: search.Grid{}, expected: search.ErrBadGrid},
		{name: "nan", ds: ds, family: dtw, grid: search.Grid{0, math.NaN()}, expected: search.ErrBadGrid},
		{name: "out_of_range", ds: ds, family: dtw, grid: search.Grid{0, 1.5}, expected: distance.ErrBadWindow},
		{name: "nil_family", ds: ds, grid: search.Grid{0}, expected: search.ErrNoFamily},
		{name: "regression", ds: regression, family: dtw, grid: search.Grid{0}, expected: search.ErrRegression},
		{name: "ragged", ds: ragged, family: dtw, grid: search.Grid{0}, expected: series.ErrLengthMismatch},
		{name: "parallelism", ds: ds, family: dtw, grid: search.Grid{0}, opts: []search.Option{search.WithParallelism(0)}, expected: search.ErrBadParallel},
		{name: "one_fold", ds: ds, family: dtw, grid: search.Grid{0}, opts: []search.Option{search.WithFolds(1, 0)}, expected: cv.ErrBadFolds},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			_, err := search.Search(context.Background(), test.ds, test.family, test.grid, test.opts...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, test.expected), err.Error())
		})
	}
}
