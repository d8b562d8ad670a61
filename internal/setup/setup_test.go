package setup

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/go-sod/elens/internal/database"
	"github.com/go-sod/elens/internal/distance"
	"github.com/go-sod/elens/internal/ensemble"
	"github.com/go-sod/elens/internal/experiment"
	"github.com/go-sod/elens/internal/predictor"
	"github.com/go-sod/elens/internal/predictor/nn"
	"github.com/go-sod/elens/internal/predictor/tuned"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvidePredictorFor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		cfg    predictor.Config
		params string
		err    error
	}{
		{name: "dtw_fixed", cfg: predictor.Config{Name: "d", Type: predictor.AlgTypeNN, Measure: distance.TypeDTW, Param: 0.1}, params: "DTW(window=0.1)"},
		{name: "dtw_searched", cfg: predictor.Config{Name: "d", Type: predictor.AlgTypeNN, Measure: distance.TypeDTW, Search: true, GridSize: 10}, params: "DTW(searched)"},
		{name: "ed_ignores_search", cfg: predictor.Config{Name: "e", Type: predictor.AlgTypeNN, Measure: distance.TypeEuclidean, Search: true}, params: "ED"},
		{name: "knn", cfg: predictor.Config{Name: "k", Type: predictor.AlgTypeKNN, K: 3, PointFunc: distance.PointTypeManhattan}, params: "k=3"},
		{name: "bad_measure", cfg: predictor.Config{Name: "x", Type: predictor.AlgTypeNN, Measure: "LCSS"}, err: distance.ErrUnknown},
		{name: "bad_window", cfg: predictor.Config{Name: "x", Type: predictor.AlgTypeNN, Measure: distance.TypeDTW, Param: 2}, err: distance.ErrBadWindow},
		{name: "bad_type", cfg: predictor.Config{Name: "x", Type: "LOF"}, err: ErrUnknownPredictor},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			fn, err := ProvidePredictorFor(&test.cfg, 1)
			if test.err != nil {
				assert.True(t, errors.Is(err, test.err), "%v", err)
				return
			}
			require.NoError(t, err)
			p, err := fn()
			require.NoError(t, err)
			assert.Contains(t, predictor.ParamsOf(p), test.params)
		})
	}
}

func TestProvidePredictorFor_Types(t *testing.T) {
	t.Parallel()
	fn, err := ProvidePredictorFor(&predictor.Config{Type: predictor.AlgTypeNN, Measure: distance.TypeWDTW, Search: true}, 0)
	require.NoError(t, err)
	p, err := fn()
	require.NoError(t, err)
	assert.IsType(t, &tuned.Classifier{}, p)

	fn, err = ProvidePredictorFor(&predictor.Config{Type: predictor.AlgTypeNN, Measure: distance.TypeWDTW, Param: 0.2}, 0)
	require.NoError(t, err)
	p, err = fn()
	require.NoError(t, err)
	assert.IsType(t, &nn.Classifier{}, p)
}

func TestGridFor(t *testing.T) {
	t.Parallel()
	g, err := gridFor(0)
	require.NoError(t, err)
	assert.Len(t, g, distance.ParamIDs)
	g, err = gridFor(3)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0.495, 0.99}, g, 1e-12)
}

func TestProvideEnsembleFor(t *testing.T) {
	t.Parallel()
	file := experiment.Default(ensemble.Config{Name: "EE", Weighting: "TrainAcc", Power: 4, Voting: "MajorityVote", Folds: 5, Parallelism: 2})
	e, err := ProvideEnsembleFor(file, ensemble.WithRecordTest(false))
	require.NoError(t, err)
	assert.Equal(t, "EE", e.Name())
	require.Len(t, e.Modules(), len(file.Members))
	for i, m := range e.Modules() {
		assert.Equal(t, file.Members[i].Name, m.Name)
	}

	file.Ensemble.Voting = "Unknown"
	_, err = ProvideEnsembleFor(file)
	assert.True(t, errors.Is(err, ensemble.ErrUnknownScheme))
}

type testConfig struct {
	Database database.Config
	Ensemble ensemble.Config
	File     string `envconfig:"ELENS_TEST_EXPERIMENT_FILE"`
}

func (c *testConfig) DatabaseConfig() *database.Config { return &c.Database }

func (c *testConfig) ExperimentPath() string { return c.File }

func (c *testConfig) EnsembleConfig() *ensemble.Config { return &c.Ensemble }

func TestSetup(t *testing.T) {
	ctx := context.Background()
	t.Setenv("ELENS_DB_FILE_NAME", filepath.Join(t.TempDir(), "elens.db"))
	t.Setenv("ELENS_ENSEMBLE_NAME", "EE")

	env, err := Setup(ctx, &testConfig{})
	require.NoError(t, err)
	defer func() { require.NoError(t, env.Close(ctx)) }()

	assert.NotNil(t, env.Results())
	assert.Nil(t, env.Exporter())
	assert.Nil(t, env.ProvidePredictor())
	require.NotNil(t, env.Experiment())
	assert.Equal(t, "EE", env.Experiment().Ensemble.Name)
	assert.Len(t, env.Experiment().Members, 5)
}

func TestSetup_MissingExperiment(t *testing.T) {
	t.Setenv("ELENS_DB_FILE_NAME", filepath.Join(t.TempDir(), "elens.db"))
	t.Setenv("ELENS_TEST_EXPERIMENT_FILE", filepath.Join(t.TempDir(), "missing.toml"))

	_, err := Setup(context.Background(), &testConfig{})
	assert.Error(t, err)
}
