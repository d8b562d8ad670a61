package ensemble

type Config struct {
	Name        string  `toml:"name" envconfig:"ELENS_ENSEMBLE_NAME" default:"CAWPE"`
	Weighting   string  `toml:"weighting" envconfig:"ELENS_ENSEMBLE_WEIGHTING" default:"TrainAcc"`
	Power       float64 `toml:"power" envconfig:"ELENS_ENSEMBLE_POWER" default:"4"`
	Voting      string  `toml:"voting" envconfig:"ELENS_ENSEMBLE_VOTING" default:"MajorityConfidence"`
	Folds       int     `toml:"folds" envconfig:"ELENS_ENSEMBLE_FOLDS" default:"10"`
	Seed        int64   `toml:"seed" envconfig:"ELENS_ENSEMBLE_SEED" default:"0"`
	EnsembleCV  bool    `toml:"ensemble_cv" envconfig:"ELENS_ENSEMBLE_CV" default:"true"`
	Parallelism int     `toml:"parallelism" envconfig:"ELENS_ENSEMBLE_PARALLELISM" default:"4"`
}

// Options returns the options described by the config.
func (c *Config) Options() ([]Option, error) {
	w, err := WeightingFor(c.Weighting, c.Power)
	if err != nil {
		return nil, err
	}
	v, err := VotingFor(c.Voting)
	if err != nil {
		return nil, err
	}
	return []Option{
		WithName(c.Name),
		WithWeighting(w),
		WithVoting(v),
		WithFolds(c.Folds),
		WithSeed(c.Seed),
		WithEnsembleCV(c.EnsembleCV),
		WithParallelism(c.Parallelism),
	}, nil
}

type Option func(*Ensemble)

func WithName(name string) Option {
	return func(e *Ensemble) {
		e.opts.name = name
	}
}

func WithWeighting(w Weighting) Option {
	return func(e *Ensemble) {
		e.opts.weighting = w
	}
}

func WithVoting(v Voting) Option {
	return func(e *Ensemble) {
		e.opts.voting = v
	}
}

func WithFolds(k int) Option {
	return func(e *Ensemble) {
		e.opts.folds = k
	}
}

// WithSeed seeds the folds and every tie-break.
func WithSeed(seed int64) Option {
	return func(e *Ensemble) {
		e.opts.seed = seed
	}
}

// WithEnsembleCV toggles the cross-validated estimate of the ensemble
// itself. It is on by default.
func WithEnsembleCV(enabled bool) Option {
	return func(e *Ensemble) {
		e.opts.ensembleCV = enabled
	}
}

// WithParallelism bounds the number of modules built at once.
func WithParallelism(n int) Option {
	return func(e *Ensemble) {
		e.opts.parallelism = n
	}
}

// WithRecordTest controls whether Distribution and Classify record their
// predictions, and those of every module, in the test results. Test always
// records. It is on by default.
func WithRecordTest(enabled bool) Option {
	return func(e *Ensemble) {
		e.opts.recordTest = enabled
	}
}

type Options struct {
	name        string
	weighting   Weighting
	voting      Voting
	folds       int
	seed        int64
	ensembleCV  bool
	parallelism int
	recordTest  bool
}

func defaultOptions() Options {
	return Options{
		name:        "CAWPE",
		weighting:   TrainAcc{Power: DefaultPower},
		voting:      &MajorityConfidence{},
		folds:       10,
		ensembleCV:  true,
		parallelism: 1,
		recordTest:  true,
	}
}
