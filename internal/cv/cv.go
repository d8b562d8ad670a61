// Package cv evaluates classifiers by stratified k-fold cross-validation
// with reproducible folds.
//
// Folds are built by shuffling the instance indices with the seed, grouping
// the shuffled indices by class, concatenating the groups in class order and
// dealing the result round-robin: fold f receives positions f, f+k, f+2k and
// so on. Every class is therefore spread as evenly as possible over the
// folds. When k exceeds the number of instances it is clamped, which gives
// leave-one-out.
package cv

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-sod/elens/internal/logging"
	"github.com/go-sod/elens/internal/metrics"
	"github.com/go-sod/elens/internal/predictor"
	"github.com/go-sod/elens/internal/results"
	"github.com/go-sod/elens/internal/series"
	"github.com/go-sod/elens/pkg/xrand"
	"golang.org/x/sync/errgroup"
)

type State uint8

const (
	StateUnbuilt State = iota
	StateFoldsBuilt
	StateEvaluated
)

// Evaluator owns the folds of one dataset. It is safe for concurrent use;
// concurrent evaluations of the same dataset share its folds.
type Evaluator struct {
	opts Options

	mtx      sync.RWMutex
	state    State
	identity string
	numInst  int
	folds    [][]int
}

func New(opts ...Option) (*Evaluator, error) {
	e := &Evaluator{opts: defaultOptions}
	for _, f := range opts {
		f(e)
	}
	if e.opts.folds < MinFolds {
		return nil, fmt.Errorf("%w: got %d", ErrBadFolds, e.opts.folds)
	}
	if e.opts.parallelism < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrBadParallelism, e.opts.parallelism)
	}
	return e, nil
}

func (e *Evaluator) State() State {
	e.mtx.RLock()
	defer e.mtx.RUnlock()
	return e.state
}

func (e *Evaluator) Seed() int64 {
	return e.opts.seed
}

func (e *Evaluator) Mode() Mode {
	return e.opts.mode
}

// NumFolds is the number of folds after clamping, or the configured number
// before folds are built.
func (e *Evaluator) NumFolds() int {
	e.mtx.RLock()
	defer e.mtx.RUnlock()
	if e.folds == nil {
		return e.opts.folds
	}
	return len(e.folds)
}

// Folds returns a copy of the original dataset indices of every fold.
func (e *Evaluator) Folds() [][]int {
	e.mtx.RLock()
	defer e.mtx.RUnlock()
	out := make([][]int, len(e.folds))
	for i, f := range e.folds {
		out[i] = append([]int(nil), f...)
	}
	return out
}

// OriginalIndex maps a position within a fold back to the dataset index.
func (e *Evaluator) OriginalIndex(fold, pos int) (int, error) {
	e.mtx.RLock()
	defer e.mtx.RUnlock()
	if fold < 0 || fold >= len(e.folds) || pos < 0 || pos >= len(e.folds[fold]) {
		return 0, fmt.Errorf("%w: fold %d position %d", ErrBadFold, fold, pos)
	}
	return e.folds[fold][pos], nil
}

// BuildFolds builds the folds of ds. It is a no-op when the folds of a
// dataset with the same identity were already built.
func (e *Evaluator) BuildFolds(ds *series.Dataset) error {
	if err := ds.Validate(); err != nil {
		return fmt.Errorf("cv: invalid dataset: %w", err)
	}
	if e.opts.mode == ModeClassification && ds.Regression() {
		return fmt.Errorf("%w: %s has no classes", ErrModeMismatch, ds.Relation)
	}
	identity := ds.Identity()

	e.mtx.Lock()
	defer e.mtx.Unlock()
	if e.folds != nil && e.identity == identity && e.numInst == ds.Len() {
		return nil
	}

	n := ds.Len()
	order := xrand.New(e.opts.seed).Perm(n)
	if e.opts.mode == ModeClassification {
		groups := make([][]int, ds.NumClasses)
		for _, idx := range order {
			c := ds.Sequences[idx].Class
			groups[c] = append(groups[c], idx)
		}
		order = order[:0]
		for _, g := range groups {
			order = append(order, g...)
		}
	}

	k := e.opts.folds
	if k > n {
		k = n
	}
	folds := make([][]int, k)
	for pos, idx := range order {
		folds[pos%k] = append(folds[pos%k], idx)
	}

	e.folds = folds
	e.identity = identity
	e.numInst = n
	e.state = StateFoldsBuilt
	return nil
}

// Split returns the training and held-out data of fold.
func (e *Evaluator) Split(ds *series.Dataset, fold int) (*series.Dataset, *series.Dataset, error) {
	e.mtx.RLock()
	folds := e.folds
	e.mtx.RUnlock()
	return splitFolds(ds, folds, fold)
}

func splitFolds(ds *series.Dataset, folds [][]int, fold int) (*series.Dataset, *series.Dataset, error) {
	if fold < 0 || fold >= len(folds) {
		return nil, nil, fmt.Errorf("%w: %d", ErrBadFold, fold)
	}
	trainIdx := make([]int, 0, ds.Len()-len(folds[fold]))
	for f := range folds {
		if f != fold {
			trainIdx = append(trainIdx, folds[f]...)
		}
	}
	train, err := ds.Subset(trainIdx)
	if err != nil {
		return nil, nil, err
	}
	test, err := ds.Subset(folds[fold])
	if err != nil {
		return nil, nil, err
	}
	return train, test, nil
}

// Evaluate cross-validates each classifier on ds. The returned results are in
// dataset order with the sum of per-fold build times; their Folds field holds
// the results of each fold in fold order. The first training or prediction
// failure aborts the evaluation.
func (e *Evaluator) Evaluate(ctx context.Context, ds *series.Dataset, provide ...predictor.ProvideFn) ([]*results.Results, error) {
	if len(provide) == 0 {
		return nil, ErrNoClassifiers
	}
	if err := e.BuildFolds(ds); err != nil {
		return nil, err
	}
	logger := logging.FromContext(ctx)

	e.mtx.RLock()
	folds := e.folds
	e.mtx.RUnlock()

	all := make([]*results.Results, len(provide))
	for c := range provide {
		all[c] = results.New(fmt.Sprintf("classifier-%d", c), ds.Relation, results.SplitTrain, ds.NumClasses)
		all[c].Regression = ds.Regression()
		all[c].Predictions = make([]results.Prediction, ds.Len())
		all[c].Folds = make([]*results.Results, len(folds))
	}

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(e.opts.parallelism)
	for f := range folds {
		f := f
		grp.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			train, test, err := splitFolds(ds, folds, f)
			if err != nil {
				return err
			}
			for c, fn := range provide {
				foldRes, err := e.evaluateFold(gctx, fn, train, test)
				if err != nil {
					return fmt.Errorf("classifier %d fold %d: %w", c, f, err)
				}
				foldRes.Fold = f
				foldRes.Dataset = ds.Relation
				all[c].Folds[f] = foldRes
				for pos, idx := range folds[f] {
					all[c].Predictions[idx] = foldRes.Predictions[pos]
				}
			}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	for _, r := range all {
		for _, fr := range r.Folds {
			r.BuildTime += fr.BuildTime
		}
		if len(r.Folds) > 0 {
			r.Params = r.Folds[0].Params
		}
		r.Rename(r.Classifier)
	}

	e.mtx.Lock()
	e.state = StateEvaluated
	e.mtx.Unlock()

	logger.Debugf("cv: evaluated %d classifiers over %d folds of %s", len(provide), len(folds), ds.Relation)
	return all, nil
}

// EvaluateOne cross-validates a single classifier.
func (e *Evaluator) EvaluateOne(ctx context.Context, ds *series.Dataset, provide predictor.ProvideFn) (*results.Results, error) {
	all, err := e.Evaluate(ctx, ds, provide)
	if err != nil {
		return nil, err
	}
	return all[0], nil
}

func (e *Evaluator) evaluateFold(ctx context.Context, provide predictor.ProvideFn, train, test *series.Dataset) (*results.Results, error) {
	clf, err := provide()
	if err != nil {
		return nil, fmt.Errorf("create classifier: %w", err)
	}

	start := time.Now()
	if err := clf.Build(ctx, train); err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	res := results.New("", test.Relation, results.SplitTrain, test.NumClasses)
	res.BuildTime = time.Since(start)
	res.Params = predictor.ParamsOf(clf)
	res.Regression = e.opts.mode == ModeRegression
	res.Predictions = make([]results.Prediction, 0, test.Len())

	for i, seq := range test.Sequences {
		query := seq
		if e.opts.classHidden {
			query = seq.Hidden()
		}
		t0 := time.Now()
		conclusion, err := clf.Predict(query)
		if err != nil {
			return nil, fmt.Errorf("predict held-out instance %d: %w", i, err)
		}
		elapsed := time.Since(t0)
		res.Add(e.record(seq, conclusion, elapsed))
	}
	metrics.RecordStage(ctx, res.Params, "fold", time.Since(start))
	return res, nil
}

func (e *Evaluator) record(seq series.Sequence, c *predictor.Conclusion, elapsed time.Duration) results.Prediction {
	p := results.Prediction{
		Distribution: c.Distribution,
		Duration:     elapsed,
	}
	if e.opts.mode == ModeRegression {
		p.TrueClass, p.PredClass = results.NoClass, results.NoClass
		p.TrueValue, p.PredValue = seq.Target, c.Value()
		return p
	}
	p.TrueClass = seq.Class
	p.PredClass = c.Class(e.opts.seed)
	return p
}
