package predictor

import (
	"github.com/go-sod/elens/internal/distance"
)

type AlgType string

const (
	// AlgTypeNN is a 1-NN over an elastic measure.
	AlgTypeNN AlgType = "NN"
	// AlgTypeKNN is a k-NN over a point distance.
	AlgTypeKNN AlgType = "KNN"
)

// Config describes one classifier. Members of an experiment file decode into
// it; the environment supplies the defaults of the single served classifier.
// Zero values of a decoded member mean: no search, the default grid of 100
// values, leave-one-out search, one neighbour and pruning on.
type Config struct {
	Name           string             `toml:"name" envconfig:"ELENS_PREDICTOR_NAME" default:"DTW_1NN"`
	Type           AlgType            `toml:"type" envconfig:"ELENS_PREDICTOR_TYPE" default:"NN"`
	Measure        distance.Type      `toml:"measure" envconfig:"ELENS_PREDICTOR_MEASURE" default:"DTW"`
	Param          float64            `toml:"param" envconfig:"ELENS_PREDICTOR_PARAM"`
	Search         bool               `toml:"search" envconfig:"ELENS_PREDICTOR_SEARCH" default:"true"`
	GridSize       int                `toml:"grid_size" envconfig:"ELENS_PREDICTOR_GRID_SIZE" default:"100"`
	Folds          int                `toml:"folds" envconfig:"ELENS_PREDICTOR_SEARCH_FOLDS"`
	K              int                `toml:"k" envconfig:"ELENS_PREDICTOR_K" default:"1"`
	PointFunc      distance.PointType `toml:"point_func" envconfig:"ELENS_PREDICTOR_POINT_FUNC" default:"EUCLIDEAN"`
	DisablePruning bool               `toml:"disable_pruning" envconfig:"ELENS_PREDICTOR_DISABLE_PRUNING"`
}

func (c Config) PredictorType() AlgType {
	return c.Type
}

func (c Config) PredictorConfig() Config {
	return c
}
