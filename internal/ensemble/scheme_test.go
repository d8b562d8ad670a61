package ensemble

import (
	"errors"
	"testing"

	"github.com/go-sod/elens/internal/results"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// moduleWith returns a module whose train results pair each true class with a
// predicted class.
func moduleWith(name string, numClasses int, pairs ...[2]int) *Module {
	r := results.New(name, "schemes", results.SplitTrain, numClasses)
	for _, p := range pairs {
		dist := make([]float64, numClasses)
		dist[p[1]] = 1
		r.Add(results.Prediction{TrueClass: p[0], PredClass: p[1], Distribution: dist})
	}
	return FromResults(name, r, nil)
}

func TestWeightings(t *testing.T) {
	t.Parallel()
	// three of four correct; class 1 is always missed once
	pairs := [][2]int{{0, 0}, {0, 0}, {1, 1}, {1, 0}}
	tests := []struct {
		name      string
		weighting Weighting
		expected  []float64
	}{
		{name: "equal", weighting: Equal{}, expected: []float64{1, 1}},
		{name: "train_acc", weighting: TrainAcc{Power: 2}, expected: []float64{0.5625, 0.5625}},
		{name: "train_acc_zero_power", weighting: TrainAcc{}, expected: []float64{0.75, 0.75}},
		{name: "by_class", weighting: TrainAccByClass{}, expected: []float64{1, 0.5}},
		{name: "mcc", weighting: MCC{Power: 1}, expected: []float64{0.5773502691896258, 0.5773502691896258}},
		{name: "auroc", weighting: AUROC{Power: 1}, expected: []float64{0.75, 0.75}},
		{name: "balanced_uses_acc", weighting: TrainAccOrMCC{Power: 1}, expected: []float64{0.75, 0.75}},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			m := moduleWith("m", 2, pairs...)
			require.NoError(t, test.weighting.DefineWeightings([]*Module{m}, 2))
			assert.InDeltaSlice(t, test.expected, m.PosteriorWeights, 1e-9)
		})
	}
}

func TestTrainAccOrMCC_Choose(t *testing.T) {
	t.Parallel()
	uneven := moduleWith("m", 2, [2]int{0, 0}, [2]int{0, 0}, [2]int{0, 0}, [2]int{0, 0}, [2]int{1, 0})
	even := moduleWith("m", 2, [2]int{0, 0}, [2]int{1, 0})

	assert.Equal(t, MCC{Power: 2}, TrainAccOrMCC{Power: 2}.Choose([]*Module{uneven}, 2))
	assert.Equal(t, TrainAcc{Power: 2}, TrainAccOrMCC{Power: 2}.Choose([]*Module{even}, 2))
	assert.Equal(t, TrainAcc{}, TrainAccOrMCC{UnevenProp: 5}.Choose([]*Module{uneven}, 2))

	require.NoError(t, TrainAccOrMCC{}.DefineWeightings([]*Module{uneven}, 2))
	assert.Equal(t, []float64{0, 0}, uneven.PosteriorWeights)
}

func TestWeightings_NeedTrainResults(t *testing.T) {
	t.Parallel()
	m := NewModule("untrained", nil)
	for _, w := range []Weighting{TrainAcc{}, TrainAccByClass{}, MCC{}, TrainAccOrMCC{}, AUROC{}} {
		assert.True(t, errors.Is(w.DefineWeightings([]*Module{m}, 2), ErrNoTrainResults), w.String())
	}
	assert.NoError(t, Equal{}.DefineWeightings([]*Module{m}, 2))
}

func TestVoting(t *testing.T) {
	t.Parallel()
	a := &Module{Name: "a", PriorWeight: 1, PosteriorWeights: []float64{1, 1, 1}}
	b := &Module{Name: "b", PriorWeight: 1, PosteriorWeights: []float64{0.5, 0.5, 0.5}}
	zero := &Module{Name: "zero", PriorWeight: 1, PosteriorWeights: []float64{0, 0, 0}}

	tests := []struct {
		name     string
		voting   Voting
		modules  []*Module
		dists    [][]float64
		expected []float64
	}{
		{
			name:     "confidence",
			voting:   &MajorityConfidence{},
			modules:  []*Module{a, b},
			dists:    [][]float64{{0.5, 0.5, 0}, {0, 0, 1}},
			expected: []float64{0.5 / 1.5, 0.5 / 1.5, 0.5 / 1.5},
		},
		{
			name:     "vote",
			voting:   &MajorityVote{},
			modules:  []*Module{a, b},
			dists:    [][]float64{{0.1, 0.9, 0}, {0, 0, 1}},
			expected: []float64{0, 1 / 1.5, 0.5 / 1.5},
		},
		{
			name:     "zero_weights_are_uniform",
			voting:   &MajorityConfidence{},
			modules:  []*Module{zero},
			dists:    [][]float64{{0, 1, 0}},
			expected: []float64{1.0 / 3, 1.0 / 3, 1.0 / 3},
		},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			require.NoError(t, test.voting.Train(test.modules, 3, 0))
			assert.InDeltaSlice(t, test.expected, test.voting.Combine(test.modules, test.dists), 1e-12)
		})
	}
}

func TestSchemesFor(t *testing.T) {
	t.Parallel()
	w, err := WeightingFor("mcc", 3)
	require.NoError(t, err)
	assert.Equal(t, MCC{Power: 3}, w)
	w, err = WeightingFor("TrainAccOrMCC", 2)
	require.NoError(t, err)
	assert.Equal(t, "TrainAccOrMCC(uneven=4,power=2)", w.String())
	assert.Equal(t, "TrainAccOrMCC(uneven=1.5,power=3)", TrainAccOrMCC{UnevenProp: 1.5, Power: 3}.String())
	_, err = WeightingFor("nope", 1)
	assert.True(t, errors.Is(err, ErrUnknownScheme))

	v, err := VotingFor("MajorityVote")
	require.NoError(t, err)
	assert.Equal(t, "MajorityVote", v.String())
	_, err = VotingFor("nope")
	assert.True(t, errors.Is(err, ErrUnknownScheme))

	cfg := Config{Name: "E", Weighting: "Equal", Voting: "MajorityConfidence", Folds: 3, Parallelism: 1}
	opts, err := cfg.Options()
	require.NoError(t, err)
	e, err := New([]*Module{NewModule("a", nil)}, opts...)
	require.NoError(t, err)
	assert.Equal(t, "E", e.Name())
	assert.Equal(t, Equal{}, e.opts.weighting)
}
