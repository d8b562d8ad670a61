package knn

import (
	"context"
	"errors"
	"testing"

	"github.com/go-sod/elens/internal/distance"
	"github.com/go-sod/elens/internal/predictor"
	"github.com/go-sod/elens/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func train() *series.Dataset {
	return series.NewDataset("knn", 2,
		series.New([]float64{0, 0}, 0),
		series.New([]float64{0, 1}, 0),
		series.New([]float64{1, 0}, 1),
		series.New([]float64{5, 5}, 1),
		series.New([]float64{5, 6}, 1),
	)
}

func TestBrute_Predict(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		k        int
		weighted bool
		query    []float64
		expected []float64
	}{
		{name: "k1", k: 1, query: []float64{0.1, 0.1}, expected: []float64{1, 0}},
		{name: "k3", k: 3, query: []float64{0.1, 0.1}, expected: []float64{2.0 / 3, 1.0 / 3}},
		{name: "k5", k: 5, query: []float64{4, 4}, expected: []float64{0.4, 0.6}},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			b, err := New(distance.EuclideanDistance, WithKNum(test.k), WithDistanceWeighting(test.weighted))
			require.NoError(t, err)
			require.NoError(t, b.Build(context.Background(), train()))
			got, err := b.Predict(series.New(test.query, 0).Hidden())
			require.NoError(t, err)
			assert.InDeltaSlice(t, test.expected, got.Distribution, 1e-12)
		})
	}
}

func TestBrute_Weighted(t *testing.T) {
	t.Parallel()
	b, err := New(distance.ManhattanDistance, WithKNum(5), WithDistanceWeighting(true))
	require.NoError(t, err)
	require.NoError(t, b.Build(context.Background(), train()))
	got, err := b.Predict(series.New([]float64{5, 5.5}, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, got.Class(0))
	assert.InDelta(t, 1.0, got.Distribution[0]+got.Distribution[1], 1e-12)
}

func TestBrute_Errors(t *testing.T) {
	t.Parallel()
	_, err := New(nil)
	assert.Error(t, err)
	_, err = New(distance.EuclideanDistance, WithKNum(0))
	assert.Error(t, err)

	b, err := New(distance.EuclideanDistance, WithKNum(6))
	require.NoError(t, err)
	_, err = b.Predict(series.New([]float64{1, 1}, 0))
	assert.True(t, errors.Is(err, predictor.ErrNotBuilt))
	assert.True(t, errors.Is(b.Build(context.Background(), train()), predictor.ErrNotEnoughItems))

	b, err = New(distance.EuclideanDistance)
	require.NoError(t, err)
	require.NoError(t, b.Build(context.Background(), train()))
	_, err = b.Predict(series.New([]float64{1}, 0))
	assert.True(t, errors.Is(err, distance.ErrDimNotEqual))
}

func TestBrute_Regression(t *testing.T) {
	t.Parallel()
	ds := series.NewDataset("reg", 0,
		series.Sequence{Values: []float64{0}, Target: 1},
		series.Sequence{Values: []float64{1}, Target: 3},
		series.Sequence{Values: []float64{10}, Target: 100},
	)
	b, err := New(distance.EuclideanDistance, WithKNum(2))
	require.NoError(t, err)
	require.NoError(t, b.Build(context.Background(), ds))
	got, err := b.Predict(series.Sequence{Values: []float64{0.4}})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, got.Value(), 1e-12)
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, "k=2,weighted=false", b.Params())
}
