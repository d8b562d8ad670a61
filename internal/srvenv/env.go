package srvenv

import (
	"context"

	"contrib.go.opencensus.io/exporter/prometheus"
	"github.com/go-sod/elens/internal/database"
	"github.com/go-sod/elens/internal/experiment"
	"github.com/go-sod/elens/internal/predictor"
	resultsdb "github.com/go-sod/elens/internal/results/database"
)

type Option func(*SrvEnv) *SrvEnv

func New(opts ...Option) *SrvEnv {
	env := &SrvEnv{}
	for _, f := range opts {
		env = f(env)
	}

	return env
}

type SrvEnv struct {
	database   *database.DB
	results    *resultsdb.DB
	predictor  predictor.ProvideFn
	experiment *experiment.File
	exporter   *prometheus.Exporter
}

func (s *SrvEnv) ProvidePredictor() predictor.ProvideFn {
	return s.predictor
}

func (s *SrvEnv) Experiment() *experiment.File {
	return s.experiment
}

// Results returns the results store, or nil when results are not stored.
func (s *SrvEnv) Results() *resultsdb.DB {
	return s.results
}

// Exporter returns the prometheus exporter, or nil when metrics are off.
func (s *SrvEnv) Exporter() *prometheus.Exporter {
	return s.exporter
}

func (s *SrvEnv) Database() *database.DB {
	return s.database
}

func WithPredictor(fn predictor.ProvideFn) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.predictor = fn
		return s
	}
}

func WithExperiment(f *experiment.File) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.experiment = f
		return s
	}
}

func WithExporter(e *prometheus.Exporter) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.exporter = e
		return s
	}
}

// WithDatabase sets the database and the results store kept in it.
func WithDatabase(db *database.DB) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.database = db
		s.results = resultsdb.New(db)
		return s
	}
}

func (s *SrvEnv) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}

	if s.database != nil {
		return s.database.Close(ctx)
	}
	return nil
}
