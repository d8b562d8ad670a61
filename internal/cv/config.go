package cv

import (
	"errors"
	"fmt"
)

// Mode selects how folds are built and predictions are read.
type Mode uint8

const (
	// ModeClassification stratifies folds by class and predicts the most
	// probable class.
	ModeClassification Mode = iota
	// ModeRegression deals shuffled instances round-robin and reads the
	// prediction from the first entry of the distribution.
	ModeRegression
)

func (m Mode) String() string {
	switch m {
	case ModeClassification:
		return "classification"
	case ModeRegression:
		return "regression"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

const (
	DefaultFolds = 10
	MinFolds     = 2
)

var (
	ErrBadFolds       = errors.New("cv: at least two folds are required")
	ErrBadParallelism = errors.New("cv: parallelism must be positive")
	ErrNoClassifiers  = errors.New("cv: no classifiers to evaluate")
	ErrBadFold        = errors.New("cv: fold index out of range")
	ErrModeMismatch   = errors.New("cv: dataset does not match the evaluation mode")
)

type Config struct {
	Folds       int   `envconfig:"ELENS_CV_FOLDS" default:"10"`
	Seed        int64 `envconfig:"ELENS_CV_SEED" default:"0"`
	Parallelism int   `envconfig:"ELENS_CV_PARALLELISM" default:"4"`
}

type Option func(*Evaluator)

func WithFolds(k int) Option {
	return func(e *Evaluator) {
		e.opts.folds = k
	}
}

func WithSeed(seed int64) Option {
	return func(e *Evaluator) {
		e.opts.seed = seed
	}
}

func WithMode(m Mode) Option {
	return func(e *Evaluator) {
		e.opts.mode = m
	}
}

// WithParallelism bounds the number of folds evaluated at once.
func WithParallelism(n int) Option {
	return func(e *Evaluator) {
		e.opts.parallelism = n
	}
}

// WithClassHidden controls whether held-out sequences are handed to the
// classifier with their label hidden. It is on by default.
func WithClassHidden(hidden bool) Option {
	return func(e *Evaluator) {
		e.opts.classHidden = hidden
	}
}

type Options struct {
	folds       int
	seed        int64
	mode        Mode
	parallelism int
	classHidden bool
}

var defaultOptions = Options{
	folds:       DefaultFolds,
	parallelism: 1,
	classHidden: true,
}
