package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-sod/elens/internal/buildinfo"
	"github.com/go-sod/elens/internal/classify"
	elens "github.com/go-sod/elens/internal/config"
	"github.com/go-sod/elens/internal/cv"
	"github.com/go-sod/elens/internal/ensemble"
	"github.com/go-sod/elens/internal/experiment"
	"github.com/go-sod/elens/internal/logging"
	"github.com/go-sod/elens/internal/results"
	resultsdb "github.com/go-sod/elens/internal/results/database"
	"github.com/go-sod/elens/internal/series"
	"github.com/go-sod/elens/internal/server"
	"github.com/go-sod/elens/internal/setup"
	"github.com/go-sod/elens/internal/shutdown"
	"github.com/go-sod/elens/internal/srvenv"
	"github.com/google/uuid"
)

var _ classify.Classifier = (*ensemble.Ensemble)(nil)

func main() {
	_, _ = fmt.Fprint(os.Stdout, buildinfo.Graffiti)
	_, _ = fmt.Fprintln(os.Stdout, buildinfo.Info)

	ctx, done := shutdown.New()
	defer done()

	logger := logging.FromContext(ctx)
	if err := run(ctx); err != nil {
		logger.Fatal(err)
	}
}

func run(ctx context.Context) error {
	logger := logging.FromContext(ctx)
	config := elens.Config{}
	env, err := setup.Setup(ctx, &config)
	if err != nil {
		return fmt.Errorf("setup.Setup: %w", err)
	}
	defer func() {
		if err := env.Close(ctx); err != nil {
			logger.Errorf("close environment: %v", err)
		}
	}()

	if config.PprofAddr != "" {
		go func() {
			if err := http.ListenAndServe(config.PprofAddr, nil); err != nil {
				logger.Errorf("pprof server: %v", err)
			}
		}()
	}

	train, test, err := load(&config, env.Experiment())
	if err != nil {
		return err
	}

	switch config.SvcMode() {
	case elens.SvcModeTypeEvaluate:
		return evaluate(ctx, &config, env, train, test)
	case elens.SvcModeTypeServe:
		return serve(ctx, &config, env, train)
	default:
		return fmt.Errorf("unknown service mode %q", config.SvcMode())
	}
}

func load(config *elens.Config, file *experiment.File) (*series.Dataset, *series.Dataset, error) {
	paths := []string{config.TrainFile}
	if config.TestFile != "" {
		paths = append(paths, config.TestFile)
	}
	sets, err := series.LoadUCR(config.Relation, paths...)
	if err != nil {
		return nil, nil, fmt.Errorf("series.LoadUCR: %w", err)
	}
	if len(sets) == 1 {
		return sets[0], nil, nil
	}
	train, test, err := series.Resample(sets[0], sets[1], file.Resample)
	if err != nil {
		return nil, nil, fmt.Errorf("series.Resample: %w", err)
	}
	return train, test, nil
}

func evaluate(ctx context.Context, config *elens.Config, env *srvenv.SrvEnv, train, test *series.Dataset) error {
	logger := logging.FromContext(ctx)
	runID := uuid.New()
	logger.Infof("run %s: evaluating %s, %d train sequences", runID, train.Relation, train.Len())

	var written []*results.Results

	evaluator, err := cv.New(
		cv.WithFolds(config.CV.Folds),
		cv.WithSeed(config.CV.Seed),
		cv.WithParallelism(config.CV.Parallelism),
	)
	if err != nil {
		return fmt.Errorf("cv.New: %w", err)
	}
	baseline, err := evaluator.EvaluateOne(ctx, train, env.ProvidePredictor())
	if err != nil {
		return fmt.Errorf("baseline cross-validation: %w", err)
	}
	baseline.Rename(config.Predictor.Name)
	logger.Infof("%s: %d-fold accuracy %.4f", config.Predictor.Name, evaluator.NumFolds(), baseline.Accuracy())
	written = append(written, baseline)

	e, err := buildEnsemble(ctx, config, env, train, test)
	if err != nil {
		return err
	}
	if tr := e.TrainResults(); tr != nil {
		logger.Infof("%s: train estimate %.4f (std %.4f)", e.Name(), tr.Accuracy(), tr.StdDev)
		written = append(written, tr)
	}
	for _, m := range e.Modules() {
		logger.Infof("%s: weights %v, train accuracy %.4f", m, m.PosteriorWeights, m.TrainResults.Accuracy())
	}

	if test != nil {
		testResults, err := e.Test(ctx, test)
		if err != nil {
			return fmt.Errorf("ensemble test: %w", err)
		}
		logger.Infof("%s: test accuracy %.4f", e.Name(), testResults.Accuracy())
		written = append(written, testResults)
	}

	if env.Results() == nil || config.ReuseResults {
		return nil
	}
	for _, m := range e.Modules() {
		written = append(written, m.TrainResults)
		if test != nil && m.TestResults != nil {
			written = append(written, m.TestResults)
		}
	}
	for _, r := range written {
		if err := results.Write(ctx, env.Results(), runID, r); err != nil {
			return fmt.Errorf("results.Write: %w", err)
		}
	}
	logger.Infof("run %s: stored %d result sets", runID, len(written))
	return nil
}

// buildEnsemble builds the experiment's ensemble, from stored member
// predictions when they are requested and present.
func buildEnsemble(ctx context.Context, config *elens.Config, env *srvenv.SrvEnv, train, test *series.Dataset) (*ensemble.Ensemble, error) {
	file := env.Experiment()
	if config.ReuseResults && env.Results() != nil && test != nil {
		modules, err := storedModules(ctx, env.Results(), file, train, test)
		switch {
		case err == nil:
			cfgOpts, err := file.Ensemble.Options()
			if err != nil {
				return nil, err
			}
			e, err := ensemble.New(modules, cfgOpts...)
			if err != nil {
				return nil, fmt.Errorf("ensemble.New: %w", err)
			}
			if err := e.BuildFromResults(ctx, train); err != nil {
				return nil, fmt.Errorf("ensemble build from results: %w", err)
			}
			return e, nil
		case errors.Is(err, resultsdb.ErrNotFound):
			logging.FromContext(ctx).Warnf("stored results incomplete, rebuilding members: %v", err)
			config.ReuseResults = false
		default:
			return nil, err
		}
	}

	e, err := setup.ProvideEnsembleFor(file)
	if err != nil {
		return nil, fmt.Errorf("setup.ProvideEnsembleFor: %w", err)
	}
	if err := e.Build(ctx, train); err != nil {
		return nil, fmt.Errorf("ensemble build: %w", err)
	}
	return e, nil
}

func storedModules(ctx context.Context, db *resultsdb.DB, file *experiment.File, train, test *series.Dataset) ([]*ensemble.Module, error) {
	modules := make([]*ensemble.Module, len(file.Members))
	for i, member := range file.Members {
		trainRes, err := db.Load(ctx, results.Key{Classifier: member.Name, Dataset: train.Relation, Split: results.SplitTrain, Fold: results.NoFold})
		if err != nil {
			return nil, err
		}
		testRes, err := db.Load(ctx, results.Key{Classifier: member.Name, Dataset: test.Relation, Split: results.SplitTest, Fold: results.NoFold})
		if err != nil {
			return nil, err
		}
		modules[i] = ensemble.FromResults(member.Name, trainRes, testRes)
	}
	return modules, nil
}

func serve(ctx context.Context, config *elens.Config, env *srvenv.SrvEnv, train *series.Dataset) error {
	logger := logging.FromContext(ctx)

	e, err := setup.ProvideEnsembleFor(env.Experiment(), ensemble.WithRecordTest(false))
	if err != nil {
		return fmt.Errorf("setup.ProvideEnsembleFor: %w", err)
	}
	if err := e.Build(ctx, train); err != nil {
		return fmt.Errorf("ensemble build: %w", err)
	}
	logger.Infof("%s: built on %d sequences in %s", e.Name(), train.Len(), e.BuildTime())

	srv, err := server.New(config.SrvAddr, server.WithShutdownTimeout(config.ShutdownTimeout))
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	classifyHandler, err := classify.NewHandler(&config.Classify, e, train)
	if err != nil {
		return fmt.Errorf("classify.NewHandler: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/classify", classifyHandler)
	mux.Handle("/health", server.HandleHealth(ctx))
	if exporter := env.Exporter(); exporter != nil {
		mux.Handle("/metrics", exporter)
	}

	return srv.ServeHTTPHandler(ctx, mux)
}
