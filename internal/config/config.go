package config

import (
	"time"

	"github.com/go-sod/elens/internal/classify"
	"github.com/go-sod/elens/internal/cv"
	"github.com/go-sod/elens/internal/database"
	"github.com/go-sod/elens/internal/ensemble"
	"github.com/go-sod/elens/internal/metrics"
	"github.com/go-sod/elens/internal/predictor"
	"github.com/go-sod/elens/internal/setup"
)

var (
	_ setup.DatabaseConfigProvider   = (*Config)(nil)
	_ setup.MetricsConfigProvider    = (*Config)(nil)
	_ setup.PredictorConfigProvider  = (*Config)(nil)
	_ setup.ExperimentConfigProvider = (*Config)(nil)
)

const (
	SvcModeTypeEvaluate = "EVALUATE"
	SvcModeTypeServe    = "SERVE"
)

type Config struct {
	SvcModeType string `envconfig:"ELENS_SVC_MODE" default:"EVALUATE"`
	SrvAddr     string `envconfig:"ELENS_ADDR" default:":8787"`

	// ShutdownTimeout bounds the graceful stop of the serve mode.
	ShutdownTimeout time.Duration `envconfig:"ELENS_SHUTDOWN_TIMEOUT" default:"5s"`
	PprofAddr       string        `envconfig:"ELENS_PPROF_ADDR"`
	Relation        string        `envconfig:"ELENS_RELATION" default:"dataset"`
	TrainFile       string        `envconfig:"ELENS_TRAIN_FILE" required:"true"`
	TestFile        string        `envconfig:"ELENS_TEST_FILE"`
	ExperimentFile  string        `envconfig:"ELENS_EXPERIMENT_FILE"`
	DisableStore    bool          `envconfig:"ELENS_DISABLE_STORE"`

	// ReuseResults combines member predictions already in the store instead
	// of rebuilding the members.
	ReuseResults bool `envconfig:"ELENS_REUSE_RESULTS"`

	Classify  classify.Config
	CV        cv.Config
	Ensemble  ensemble.Config
	Database  database.Config
	Metrics   metrics.Config
	Predictor predictor.Config
}

func (c *Config) SvcMode() string {
	return c.SvcModeType
}

func (c *Config) DatabaseConfig() *database.Config {
	if c.DisableStore {
		return nil
	}
	return &c.Database
}

func (c *Config) MetricsConfig() *metrics.Config {
	return &c.Metrics
}

func (c *Config) PredictType() predictor.AlgType {
	return c.Predictor.Type
}

func (c *Config) PredictConfig() *predictor.Config {
	return &c.Predictor
}

func (c *Config) Seed() int64 {
	return c.CV.Seed
}

func (c *Config) ExperimentPath() string {
	return c.ExperimentFile
}

func (c *Config) EnsembleConfig() *ensemble.Config {
	return &c.Ensemble
}
