// Package tuned implements a 1-nearest-neighbour classifier whose distance
// parameter is searched on the training data before it is built.
package tuned

import (
	"context"
	"fmt"
	"time"

	"github.com/go-sod/elens/internal/logging"
	"github.com/go-sod/elens/internal/metrics"
	"github.com/go-sod/elens/internal/predictor"
	"github.com/go-sod/elens/internal/predictor/nn"
	"github.com/go-sod/elens/internal/search"
	"github.com/go-sod/elens/internal/series"
)

var (
	_ predictor.Predictor = (*Classifier)(nil)
	_ predictor.Describer = (*Classifier)(nil)
)

type Option func(*Classifier)

// WithSearch passes options to the parameter search.
func WithSearch(opts ...search.Option) Option {
	return func(c *Classifier) {
		c.searchOpts = append(c.searchOpts, opts...)
	}
}

// WithNN passes options to the classifier built with the selected measure.
func WithNN(opts ...nn.Option) Option {
	return func(c *Classifier) {
		c.nnOpts = append(c.nnOpts, opts...)
	}
}

// WithLabel names the family in Params until the classifier is built.
func WithLabel(label string) Option {
	return func(c *Classifier) {
		c.label = label
	}
}

type Classifier struct {
	family     search.Family
	grid       search.Grid
	label      string
	searchOpts []search.Option
	nnOpts     []nn.Option

	result *search.Result
	inner  *nn.Classifier
}

func New(family search.Family, grid search.Grid, opts ...Option) *Classifier {
	c := &Classifier{family: family, grid: grid, label: "NN"}
	for _, f := range opts {
		f(c)
	}
	return c
}

func Provide(family search.Family, grid search.Grid, opts ...Option) predictor.ProvideFn {
	return func() (predictor.Predictor, error) {
		if family == nil {
			return nil, search.ErrNoFamily
		}
		return New(family, grid, opts...), nil
	}
}

func (c *Classifier) Reset() {
	c.result = nil
	c.inner = nil
}

func (c *Classifier) Len() int {
	if c.inner == nil {
		return 0
	}
	return c.inner.Len()
}

// Result returns the outcome of the last search, or nil before Build.
func (c *Classifier) Result() *search.Result {
	return c.result
}

func (c *Classifier) Params() string {
	if c.inner == nil {
		return c.label + "(searched)"
	}
	return c.inner.Params()
}

func (c *Classifier) Build(ctx context.Context, train *series.Dataset) error {
	c.Reset()
	start := time.Now()
	res, err := search.Search(ctx, train, c.family, c.grid, c.searchOpts...)
	if err != nil {
		return fmt.Errorf("tuned: %w", err)
	}
	metrics.RecordStage(ctx, c.label, "search", time.Since(start))

	inner := nn.New(res.Measure, c.nnOpts...)
	if err := inner.Build(ctx, train); err != nil {
		return fmt.Errorf("tuned: %w", err)
	}
	c.result, c.inner = res, inner

	logging.FromContext(ctx).Debugf("tuned: %s picked %s (accuracy %.4f) on %s",
		c.label, inner.Params(), res.Accuracy, train.Relation)
	return nil
}

func (c *Classifier) Predict(seq series.Sequence) (*predictor.Conclusion, error) {
	if c.inner == nil {
		return nil, predictor.ErrNotBuilt
	}
	return c.inner.Predict(seq)
}
