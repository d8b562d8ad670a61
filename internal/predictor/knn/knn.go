// Package knn is a brute force k-nearest-neighbour classifier over a plain
// point distance.
package knn

import (
	"context"
	"fmt"

	"github.com/go-sod/elens/internal/distance"
	"github.com/go-sod/elens/internal/logging"
	"github.com/go-sod/elens/internal/predictor"
	"github.com/go-sod/elens/internal/series"
	"github.com/go-sod/elens/pkg/pqueue"
)

var (
	_ predictor.Predictor = (*brute)(nil)
	_ predictor.Describer = (*brute)(nil)
)

const MinKNum = 1

type Option func(*brute)

func WithKNum(k int) Option {
	return func(b *brute) {
		b.kNum = k
	}
}

// WithDistanceWeighting weights every neighbour's vote by the inverse of its
// distance instead of counting votes.
func WithDistanceWeighting(enabled bool) Option {
	return func(b *brute) {
		b.weighted = enabled
	}
}

func New(distFn distance.PointsDistanceFn, opts ...Option) (*brute, error) {
	b := &brute{distFunc: distFn, kNum: MinKNum}
	for _, opt := range opts {
		opt(b)
	}
	if b.distFunc == nil {
		return nil, fmt.Errorf("knn: nil distance function")
	}
	if b.kNum < MinKNum {
		return nil, fmt.Errorf("knn: k must be at least %d, got %d", MinKNum, b.kNum)
	}
	return b, nil
}

func Provide(distFn distance.PointsDistanceFn, opts ...Option) predictor.ProvideFn {
	return func() (predictor.Predictor, error) {
		return New(distFn, opts...)
	}
}

type brute struct {
	kNum     int
	weighted bool
	distFunc distance.PointsDistanceFn
	train    *series.Dataset
}

type neighbour struct {
	idx      int
	distance float64
}

func (b *brute) Reset() {
	b.train = nil
}

func (b *brute) Len() int {
	if b.train == nil {
		return 0
	}
	return b.train.Len()
}

func (b *brute) Params() string {
	return fmt.Sprintf("k=%d,weighted=%t", b.kNum, b.weighted)
}

func (b *brute) Build(ctx context.Context, train *series.Dataset) error {
	if err := train.Validate(); err != nil {
		return fmt.Errorf("knn: invalid training data: %w", err)
	}
	if train.Len() < b.kNum {
		return fmt.Errorf("%w: %d < %d", predictor.ErrNotEnoughItems, train.Len(), b.kNum)
	}
	b.train = train
	logging.FromContext(ctx).Debugf("knn: built k=%d on %d sequences of %s", b.kNum, train.Len(), train.Relation)
	return nil
}

func (b *brute) Predict(seq series.Sequence) (*predictor.Conclusion, error) {
	if b.train == nil {
		return nil, predictor.ErrNotBuilt
	}
	knn, err := b.knn(seq.Values, b.kNum)
	if err != nil {
		return nil, err
	}

	if b.train.Regression() {
		var sum, total float64
		for _, n := range knn {
			w := b.vote(n.distance)
			sum += w * b.train.Sequences[n.idx].Target
			total += w
		}
		return &predictor.Conclusion{Distribution: []float64{sum / total}}, nil
	}

	dist := make([]float64, b.train.NumClasses)
	var total float64
	for _, n := range knn {
		w := b.vote(n.distance)
		dist[b.train.Sequences[n.idx].Class] += w
		total += w
	}
	for i := range dist {
		dist[i] /= total
	}
	return &predictor.Conclusion{Distribution: dist}, nil
}

func (b *brute) vote(d float64) float64 {
	if !b.weighted {
		return 1
	}
	return 1 / (d + 1e-12)
}

func (b *brute) knn(vec []float64, n int) ([]neighbour, error) {
	pq := pqueue.New(pqueue.WithCap(uint(n)))
	for i, item := range b.train.Sequences {
		d, err := b.distFunc(vec, item.Values)
		if err != nil {
			return nil, fmt.Errorf("unable to compute distance to training sequence %d: %w", i, err)
		}
		pq.Push(neighbour{idx: i, distance: d}, d)
	}
	knn := make([]neighbour, pq.Len())
	for i, pData := range pq.PopAll() {
		knn[i] = pData.(neighbour)
	}
	if len(knn) < n {
		return nil, fmt.Errorf("%w: found %d of %d", predictor.ErrNotEnoughItems, len(knn), n)
	}
	return knn, nil
}
