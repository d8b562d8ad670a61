package setup

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-sod/elens/internal/database"
	"github.com/go-sod/elens/internal/distance"
	"github.com/go-sod/elens/internal/ensemble"
	"github.com/go-sod/elens/internal/experiment"
	"github.com/go-sod/elens/internal/logging"
	"github.com/go-sod/elens/internal/metrics"
	"github.com/go-sod/elens/internal/predictor"
	"github.com/go-sod/elens/internal/predictor/knn"
	"github.com/go-sod/elens/internal/predictor/nn"
	"github.com/go-sod/elens/internal/predictor/tuned"
	"github.com/go-sod/elens/internal/search"
	"github.com/go-sod/elens/internal/srvenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrUnknownPredictor = errors.New("setup: unknown predictor type")

type SvcModeConfigProvider interface {
	SvcMode() string
}

type DatabaseConfigProvider interface {
	DatabaseConfig() *database.Config
}

type MetricsConfigProvider interface {
	MetricsConfig() *metrics.Config
}

type PredictorConfigProvider interface {
	PredictConfig() *predictor.Config
	PredictType() predictor.AlgType
	Seed() int64
}

type ExperimentConfigProvider interface {
	ExperimentPath() string
	EnsembleConfig() *ensemble.Config
}

func Setup(ctx context.Context, config interface{}) (*srvenv.SrvEnv, error) {
	logger := logging.FromContext(ctx)
	var serverEnvOpts []srvenv.Option
	if err := envconfig.Process("", config); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	if dbConfigProvider, ok := config.(DatabaseConfigProvider); ok && dbConfigProvider.DatabaseConfig() != nil {
		logger.Info("Configuring results store")
		db, err := database.NewFromEnv(ctx, dbConfigProvider.DatabaseConfig())
		if err != nil {
			return nil, fmt.Errorf("unable to open results store: %w", err)
		}
		serverEnvOpts = append(serverEnvOpts, srvenv.WithDatabase(db))
	}

	if metricsConfigProvider, ok := config.(MetricsConfigProvider); ok && metricsConfigProvider.MetricsConfig().Enabled {
		logger.Info("Configuring metrics")
		exporter, err := metrics.Register(metricsConfigProvider.MetricsConfig())
		if err != nil {
			return nil, fmt.Errorf("unable to register metrics: %w", err)
		}
		serverEnvOpts = append(serverEnvOpts, srvenv.WithExporter(exporter))
	}

	if predictConfigProvider, ok := config.(PredictorConfigProvider); ok {
		logger.Info("Configuring predictor")
		provideFn, err := ProvidePredictorFor(predictConfigProvider.PredictConfig(), predictConfigProvider.Seed())
		if err != nil {
			return nil, fmt.Errorf("unable create predictor provide function: %w", err)
		}
		serverEnvOpts = append(serverEnvOpts, srvenv.WithPredictor(provideFn))
	}

	if experimentConfigProvider, ok := config.(ExperimentConfigProvider); ok {
		logger.Info("Configuring experiment")
		file, err := LoadExperiment(experimentConfigProvider)
		if err != nil {
			return nil, err
		}
		serverEnvOpts = append(serverEnvOpts, srvenv.WithExperiment(file))
	}

	return srvenv.New(serverEnvOpts...), nil
}

// LoadExperiment reads the experiment file, or returns the default
// experiment when no file is configured.
func LoadExperiment(provider ExperimentConfigProvider) (*experiment.File, error) {
	base := *provider.EnsembleConfig()
	if provider.ExperimentPath() == "" {
		return experiment.Default(base), nil
	}
	file, err := experiment.Load(provider.ExperimentPath(), base)
	if err != nil {
		return nil, fmt.Errorf("unable to load experiment: %w", err)
	}
	return file, nil
}

// ProvidePredictorFor returns the factory of the classifier cfg describes.
// seed drives the parameter search folds and every tie-break.
func ProvidePredictorFor(cfg *predictor.Config, seed int64) (predictor.ProvideFn, error) {
	switch cfg.PredictorType() {
	case predictor.AlgTypeNN:
		pruning := !cfg.DisablePruning
		if _, err := distance.MeasureFor(cfg.Measure, 0); err != nil {
			return nil, fmt.Errorf("predictor %s: %w", cfg.Name, err)
		}
		nnOpts := []nn.Option{nn.WithPruning(pruning), nn.WithSeed(seed)}
		if cfg.Search && cfg.Measure != distance.TypeEuclidean {
			grid, err := gridFor(cfg.GridSize)
			if err != nil {
				return nil, fmt.Errorf("predictor %s: %w", cfg.Name, err)
			}
			searchOpts := []search.Option{search.WithSeed(seed), search.WithPruning(pruning)}
			if cfg.Folds > 0 {
				searchOpts = append(searchOpts, search.WithFolds(cfg.Folds, seed))
			}
			return tuned.Provide(
				search.FamilyOf(cfg.Measure),
				grid,
				tuned.WithLabel(string(cfg.Measure)),
				tuned.WithSearch(searchOpts...),
				tuned.WithNN(nnOpts...),
			), nil
		}
		measure, err := distance.MeasureFor(cfg.Measure, cfg.Param)
		if err != nil {
			return nil, fmt.Errorf("predictor %s: %w", cfg.Name, err)
		}
		return nn.Provide(measure, nnOpts...), nil
	case predictor.AlgTypeKNN:
		distFunc, err := distance.PointFuncFor(cfg.PointFunc)
		if err != nil {
			return nil, fmt.Errorf("predictor %s: unable provide distance function: %w", cfg.Name, err)
		}
		k := cfg.K
		if k < knn.MinKNum {
			k = knn.MinKNum
		}
		return knn.Provide(distFunc, knn.WithKNum(k)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPredictor, cfg.PredictorType())
	}
}

func gridFor(size int) (search.Grid, error) {
	if size <= 0 || size == distance.ParamIDs {
		return search.DefaultGrid(), nil
	}
	return search.UniformGrid(0, distance.ParamFor(distance.ParamIDs-1), size)
}

// ProvideModulesFor returns one ensemble module per member of file.
func ProvideModulesFor(file *experiment.File) ([]*ensemble.Module, error) {
	modules := make([]*ensemble.Module, len(file.Members))
	for i := range file.Members {
		member := file.Members[i]
		provideFn, err := ProvidePredictorFor(&member, file.Ensemble.Seed)
		if err != nil {
			return nil, err
		}
		modules[i] = ensemble.NewModule(member.Name, provideFn)
	}
	return modules, nil
}

// ProvideEnsembleFor returns the unbuilt ensemble file describes.
func ProvideEnsembleFor(file *experiment.File, opts ...ensemble.Option) (*ensemble.Ensemble, error) {
	modules, err := ProvideModulesFor(file)
	if err != nil {
		return nil, err
	}
	cfgOpts, err := file.Ensemble.Options()
	if err != nil {
		return nil, err
	}
	return ensemble.New(modules, append(cfgOpts, opts...)...)
}
