// Package search selects the parameter of a distance measure family by the
// accuracy of a 1-nearest-neighbour classifier on the training data.
package search

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/go-sod/elens/internal/cv"
	"github.com/go-sod/elens/internal/distance"
	"github.com/go-sod/elens/internal/logging"
	"github.com/go-sod/elens/internal/metrics"
	"github.com/go-sod/elens/internal/predictor/nn"
	"github.com/go-sod/elens/internal/series"
	"github.com/go-sod/elens/pkg/rworker"
)

var (
	ErrBadGrid     = errors.New("search: invalid parameter grid")
	ErrNoFamily    = errors.New("search: nil measure family")
	ErrRegression  = errors.New("search: accuracy is undefined for regression data")
	ErrBadParallel = errors.New("search: parallelism must be positive")
)

// Family maps a parameter value to a measure.
type Family func(param float64) (distance.Measure, error)

// FamilyOf returns the family of measures of type t.
func FamilyOf(t distance.Type) Family {
	return func(param float64) (distance.Measure, error) {
		return distance.MeasureFor(t, param)
	}
}

// Grid is an ordered list of candidate parameter values.
type Grid []float64

// DefaultGrid returns the values of every parameter id: 0, 0.01 up to 0.99.
func DefaultGrid() Grid {
	g := make(Grid, distance.ParamIDs)
	for id := range g {
		g[id] = distance.ParamFor(id)
	}
	return g
}

// UniformGrid returns steps values evenly spaced over [lo, hi].
func UniformGrid(lo, hi float64, steps int) (Grid, error) {
	if steps < 1 || math.IsNaN(lo) || math.IsNaN(hi) || hi < lo {
		return nil, fmt.Errorf("%w: [%g, %g] in %d steps", ErrBadGrid, lo, hi, steps)
	}
	if steps == 1 {
		return Grid{lo}, nil
	}
	g := make(Grid, steps)
	for i := range g {
		g[i] = lo + (hi-lo)*float64(i)/float64(steps-1)
	}
	return g, nil
}

func (g Grid) Validate() error {
	if len(g) == 0 {
		return fmt.Errorf("%w: empty", ErrBadGrid)
	}
	for i, v := range g {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: value %d is %g", ErrBadGrid, i, v)
		}
	}
	return nil
}

type Result struct {
	Best       float64
	BestIndex  int
	Accuracy   float64
	Accuracies []float64
	Measure    distance.Measure
}

type Option func(*Options)

// WithParallelism bounds the number of candidates evaluated at once.
func WithParallelism(n int) Option {
	return func(o *Options) {
		o.parallelism = n
	}
}

// WithFolds replaces leave-one-out with stratified k-fold cross-validation.
func WithFolds(k int, seed int64) Option {
	return func(o *Options) {
		o.folds = k
		o.seed = seed
	}
}

// WithSeed sets the seed of class tie-breaks.
func WithSeed(seed int64) Option {
	return func(o *Options) {
		o.seed = seed
	}
}

func WithPruning(enabled bool) Option {
	return func(o *Options) {
		o.pruning = enabled
	}
}

type Options struct {
	parallelism int
	folds       int
	seed        int64
	pruning     bool
}

var defaultOptions = Options{parallelism: 1, pruning: true}

// Search evaluates every grid value and returns the first one with the
// highest accuracy. The grid and the dataset are checked before any distance
// is computed.
func Search(ctx context.Context, ds *series.Dataset, family Family, grid Grid, opts ...Option) (*Result, error) {
	o := defaultOptions
	for _, f := range opts {
		f(&o)
	}
	if family == nil {
		return nil, ErrNoFamily
	}
	if o.parallelism < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrBadParallel, o.parallelism)
	}
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	if err := ds.Validate(); err != nil {
		return nil, fmt.Errorf("search: invalid dataset: %w", err)
	}
	if ds.Regression() {
		return nil, ErrRegression
	}
	measures := make([]distance.Measure, len(grid))
	for i, v := range grid {
		m, err := family(v)
		if err != nil {
			return nil, fmt.Errorf("%w: value %d (%g): %w", ErrBadGrid, i, v, err)
		}
		measures[i] = m
	}

	var evaluator *cv.Evaluator
	if o.folds > 0 {
		var err error
		evaluator, err = cv.New(cv.WithFolds(o.folds), cv.WithSeed(o.seed))
		if err != nil {
			return nil, fmt.Errorf("search: %w", err)
		}
		if err := evaluator.BuildFolds(ds); err != nil {
			return nil, fmt.Errorf("search: %w", err)
		}
	}

	accuracies := make([]float64, len(grid))
	err := rworker.Run(ctx, len(grid), o.parallelism, func(ctx context.Context, i int) error {
		var (
			acc float64
			err error
		)
		if evaluator != nil {
			acc, err = crossValidated(ctx, evaluator, ds, measures[i], o)
		} else {
			acc, err = leaveOneOut(ctx, ds, measures[i], o)
		}
		if err != nil {
			return fmt.Errorf("search: candidate %d (%s): %w", i, measures[i], err)
		}
		accuracies[i] = acc
		return nil
	})
	if err != nil {
		return nil, err
	}

	best := 0
	for i := 1; i < len(accuracies); i++ {
		if accuracies[i] > accuracies[best] {
			best = i
		}
	}
	logging.FromContext(ctx).Debugf("search: %s selected %s with accuracy %.4f over %d candidates",
		ds.Relation, measures[best], accuracies[best], len(grid))

	return &Result{
		Best:       grid[best],
		BestIndex:  best,
		Accuracy:   accuracies[best],
		Accuracies: accuracies,
		Measure:    measures[best],
	}, nil
}

func leaveOneOut(ctx context.Context, ds *series.Dataset, m distance.Measure, o Options) (float64, error) {
	clf := nn.New(m, nn.WithPruning(o.pruning), nn.WithSeed(o.seed))
	if err := clf.Build(ctx, ds); err != nil {
		return 0, err
	}
	var correct int
	for i, seq := range ds.Sequences {
		c, err := clf.PredictExcluding(seq, i)
		if err != nil {
			return 0, fmt.Errorf("instance %d: %w", i, err)
		}
		if c.Class(o.seed) == seq.Class {
			correct++
		}
	}
	stats := clf.Stats()
	metrics.RecordSearch(ctx, clf.Params(), stats.Distances, stats.Pruned, stats.Abandoned)
	return float64(correct) / float64(ds.Len()), nil
}

func crossValidated(ctx context.Context, e *cv.Evaluator, ds *series.Dataset, m distance.Measure, o Options) (float64, error) {
	r, err := e.EvaluateOne(ctx, ds, nn.Provide(m, nn.WithPruning(o.pruning), nn.WithSeed(o.seed)))
	if err != nil {
		return 0, err
	}
	return r.Accuracy(), nil
}
