// Package nn implements the 1-nearest-neighbour classifier over an elastic
// distance measure.
//
// The search keeps the best distance so far. Before computing a distance it
// checks the LB_Keogh bound of the candidate and rejects it when the bound is
// not below the best distance; the distance itself is abandoned early with the
// best distance as cutoff. Both only skip candidates that cannot become the
// strictly closest one, so pruned and exhaustive searches agree.
package nn

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/go-sod/elens/internal/distance"
	"github.com/go-sod/elens/internal/logging"
	"github.com/go-sod/elens/internal/lowerbound"
	"github.com/go-sod/elens/internal/predictor"
	"github.com/go-sod/elens/internal/series"
)

var (
	_ predictor.Predictor = (*Classifier)(nil)
	_ predictor.Describer = (*Classifier)(nil)
)

type Option func(*Classifier)

// WithPruning toggles lower bound pruning. It is on by default.
func WithPruning(enabled bool) Option {
	return func(c *Classifier) {
		c.opts.pruning = enabled
	}
}

// WithSeed sets the seed of the tie-break used by callers of Predict.
func WithSeed(seed int64) Option {
	return func(c *Classifier) {
		c.opts.seed = seed
	}
}

type Options struct {
	pruning bool
	seed    int64
}

var defaultOptions = Options{pruning: true}

// Stats counts the work done by a classifier since it was built.
type Stats struct {
	Distances int64
	Pruned    int64
	Abandoned int64
}

func New(measure distance.Measure, opts ...Option) *Classifier {
	c := &Classifier{measure: measure, opts: defaultOptions}
	for _, f := range opts {
		f(c)
	}
	return c
}

// Provide returns a factory of classifiers sharing measure and options.
func Provide(measure distance.Measure, opts ...Option) predictor.ProvideFn {
	return func() (predictor.Predictor, error) {
		if measure == nil {
			return nil, fmt.Errorf("nn: nil distance measure")
		}
		return New(measure, opts...), nil
	}
}

type Classifier struct {
	opts    Options
	measure distance.Measure
	train   *series.Dataset
	values  [][]float64
	cache   *lowerbound.Cache
	window  int
	scale   float64

	distances int64
	pruned    int64
	abandoned int64
}

func (c *Classifier) Reset() {
	c.train = nil
	c.values = nil
	c.cache = nil
	atomic.StoreInt64(&c.distances, 0)
	atomic.StoreInt64(&c.pruned, 0)
	atomic.StoreInt64(&c.abandoned, 0)
}

func (c *Classifier) Len() int {
	return len(c.values)
}

func (c *Classifier) Measure() distance.Measure {
	return c.measure
}

func (c *Classifier) Params() string {
	return c.measure.String()
}

func (c *Classifier) Stats() Stats {
	return Stats{
		Distances: atomic.LoadInt64(&c.distances),
		Pruned:    atomic.LoadInt64(&c.pruned),
		Abandoned: atomic.LoadInt64(&c.abandoned),
	}
}

// Build stores the training data and, when pruning is enabled and the
// measure admits it, the envelopes of every training sequence.
func (c *Classifier) Build(ctx context.Context, train *series.Dataset) error {
	if err := train.Validate(); err != nil {
		return fmt.Errorf("nn: invalid training data: %w", err)
	}
	c.Reset()
	length := train.Length()
	c.measure = distance.Prepare(c.measure, length)
	c.train = train
	c.values = train.Values()
	if b, ok := c.measure.(distance.Banded); ok && c.opts.pruning {
		c.window, c.scale = b.Band(length)
		if c.scale > 0 {
			c.cache = lowerbound.NewCache(c.values, c.window)
		}
	}

	logging.FromContext(ctx).Debugf("nn: built %s on %d sequences of %s", c.measure, len(c.values), train.Relation)
	return nil
}

// Predict returns the one-hot distribution of the class of the nearest
// training sequence. The first of several equally near sequences wins.
func (c *Classifier) Predict(seq series.Sequence) (*predictor.Conclusion, error) {
	return c.predict(seq, -1)
}

// PredictExcluding predicts seq while ignoring training sequence skip, which
// gives leave-one-out estimates without rebuilding.
func (c *Classifier) PredictExcluding(seq series.Sequence, skip int) (*predictor.Conclusion, error) {
	return c.predict(seq, skip)
}

// Nearest returns the index of and distance to the nearest training
// sequence, ignoring skip. The index is -1 when no sequence is at a finite
// distance.
func (c *Classifier) Nearest(query []float64, skip int) (int, float64, error) {
	if c.train == nil {
		return -1, 0, predictor.ErrNotBuilt
	}
	var (
		best = -1
		bsf  = math.Inf(1)
	)
	for i, candidate := range c.values {
		if i == skip {
			continue
		}
		if c.cache != nil && !math.IsInf(bsf, 1) {
			lb, err := c.cache.LowerBound(query, i, c.window, bsf/c.scale)
			if err != nil {
				return -1, 0, fmt.Errorf("nn: lower bound of candidate %d: %w", i, err)
			}
			if lb*c.scale >= bsf {
				atomic.AddInt64(&c.pruned, 1)
				continue
			}
		}
		atomic.AddInt64(&c.distances, 1)
		d := c.measure.Distance(query, candidate, bsf)
		if distance.IsAbandoned(d) {
			atomic.AddInt64(&c.abandoned, 1)
			continue
		}
		if d < bsf {
			bsf = d
			best = i
		}
	}
	return best, bsf, nil
}

func (c *Classifier) predict(seq series.Sequence, skip int) (*predictor.Conclusion, error) {
	best, _, err := c.Nearest(seq.Values, skip)
	if err != nil {
		return nil, err
	}
	if c.train.Regression() {
		if best < 0 {
			return &predictor.Conclusion{Distribution: []float64{0}}, nil
		}
		return &predictor.Conclusion{Distribution: []float64{c.train.Sequences[best].Target}}, nil
	}
	if best < 0 {
		return &predictor.Conclusion{Distribution: predictor.Uniform(c.train.NumClasses)}, nil
	}
	return &predictor.Conclusion{Distribution: predictor.OneHot(c.train.Sequences[best].Class, c.train.NumClasses)}, nil
}
