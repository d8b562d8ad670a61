package predictor

import (
	"context"
	"errors"

	"github.com/go-sod/elens/internal/series"
	"github.com/go-sod/elens/pkg/xrand"
)

var (
	ErrNotBuilt       = errors.New("predictor: predictor is not built")
	ErrTooFewClasses  = errors.New("predictor: training data has fewer classes than required")
	ErrNotEnoughItems = errors.New("predictor: training data has fewer items than neighbours requested")
)

// ProvideFn creates a fresh, untrained predictor. Evaluation code calls it
// once per fold so that no state leaks between folds.
type ProvideFn func() (Predictor, error)

type Predictor interface {
	Reset()
	Len() int
	Build(ctx context.Context, train *series.Dataset) error
	Predict(seq series.Sequence) (*Conclusion, error)
}

// Describer is implemented by predictors that report the parameters they
// were built with.
type Describer interface {
	Params() string
}

// Conclusion is the class distribution for one query. For regression data it
// holds a single value, the predicted target.
type Conclusion struct {
	Distribution []float64
}

// Class returns the most probable class, resolving ties reproducibly with
// seed.
func (c *Conclusion) Class(seed int64) int {
	return xrand.ArgMax(c.Distribution, seed)
}

// Value returns the predicted target of a regression conclusion.
func (c *Conclusion) Value() float64 {
	if len(c.Distribution) == 0 {
		return 0
	}
	return c.Distribution[0]
}

// OneHot returns a distribution with all mass on class.
func OneHot(class, numClasses int) []float64 {
	dist := make([]float64, numClasses)
	if class >= 0 && class < numClasses {
		dist[class] = 1
	}
	return dist
}

// Uniform returns the uniform distribution over numClasses.
func Uniform(numClasses int) []float64 {
	dist := make([]float64, numClasses)
	for i := range dist {
		dist[i] = 1 / float64(numClasses)
	}
	return dist
}

// ParamsOf returns the parameters of p, or an empty string.
func ParamsOf(p Predictor) string {
	if d, ok := p.(Describer); ok {
		return d.Params()
	}
	return ""
}
