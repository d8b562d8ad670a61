// Package ensemble combines the predictions of several classifiers, each
// weighted by how well it did in cross-validation on the training data.
//
// Building an ensemble cross-validates every module over one shared set of
// folds, retrains each module on all the training data, derives the module
// weights from the cross-validated predictions and trains the voting scheme.
// The ensemble's own accuracy can then be estimated from the same stored
// predictions without training anything again.
package ensemble

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/go-sod/elens/internal/cv"
	"github.com/go-sod/elens/internal/logging"
	"github.com/go-sod/elens/internal/metrics"
	"github.com/go-sod/elens/internal/results"
	"github.com/go-sod/elens/internal/series"
	"github.com/go-sod/elens/pkg/xrand"
	"github.com/sourcegraph/conc/pool"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrNoModules       = errors.New("ensemble: no modules")
	ErrDuplicateModule = errors.New("ensemble: duplicate module name")
	ErrNoClassifier    = errors.New("ensemble: module has no classifier")
	ErrNoTrainResults  = errors.New("ensemble: module has no train results")
	ErrNoTestResults   = errors.New("ensemble: module has no test results")
	ErrTestExhausted   = errors.New("ensemble: no stored test predictions left")
	ErrUnknownScheme   = errors.New("ensemble: unknown scheme")
	ErrNotBuilt        = errors.New("ensemble: ensemble is not built")
)

type State uint8

const (
	StateUnscored State = iota
	StateScored
	StatePredicting
)

type Ensemble struct {
	opts    Options
	modules []*Module

	mtx          sync.Mutex
	state        State
	fromResults  bool
	relation     string
	numClasses   int
	buildTime    time.Duration
	trainResults *results.Results
	testResults  *results.Results
	testCounter  int
}

func New(modules []*Module, opts ...Option) (*Ensemble, error) {
	if len(modules) == 0 {
		return nil, ErrNoModules
	}
	seen := make(map[string]struct{}, len(modules))
	for i, m := range modules {
		if m == nil {
			return nil, fmt.Errorf("%w: module %d is nil", ErrNoClassifier, i)
		}
		if _, ok := seen[m.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateModule, m.Name)
		}
		seen[m.Name] = struct{}{}
	}

	e := &Ensemble{opts: defaultOptions(), modules: modules}
	for _, f := range opts {
		f(e)
	}
	if e.opts.folds < cv.MinFolds {
		return nil, fmt.Errorf("ensemble: %w: got %d", cv.ErrBadFolds, e.opts.folds)
	}
	if e.opts.parallelism < 1 {
		return nil, fmt.Errorf("ensemble: %w: got %d", cv.ErrBadParallelism, e.opts.parallelism)
	}
	return e, nil
}

func (e *Ensemble) Modules() []*Module {
	return e.modules
}

func (e *Ensemble) Name() string {
	return e.opts.name
}

func (e *Ensemble) Seed() int64 {
	return e.opts.seed
}

func (e *Ensemble) State() State {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.state
}

func (e *Ensemble) NumClasses() int {
	return e.numClasses
}

// BuildTime covers the work needed before testing, excluding the ensemble's
// own cross-validated estimate.
func (e *Ensemble) BuildTime() time.Duration {
	return e.buildTime
}

// TrainResults returns the cross-validated estimate of the ensemble, or nil
// when the estimate is turned off.
func (e *Ensemble) TrainResults() *results.Results {
	return e.trainResults
}

func (e *Ensemble) Params() string {
	names := make([]string, len(e.modules))
	for i, m := range e.modules {
		names[i] = m.String()
	}
	return fmt.Sprintf("weighting=%s,voting=%s,modules=%s", e.opts.weighting, e.opts.voting, strings.Join(names, ";"))
}

// Build cross-validates and retrains every module on train and scores the
// ensemble. A failure of any module aborts the build.
func (e *Ensemble) Build(ctx context.Context, train *series.Dataset) error {
	logger := logging.FromContext(ctx)
	if err := train.Validate(); err != nil {
		return fmt.Errorf("ensemble: invalid training data: %w", err)
	}
	if train.Regression() {
		return fmt.Errorf("ensemble: %w: %s has no classes", cv.ErrModeMismatch, train.Relation)
	}
	for _, m := range e.modules {
		if m.Provide == nil {
			return fmt.Errorf("%w: %s", ErrNoClassifier, m.Name)
		}
	}

	start := time.Now()
	evaluator, err := cv.New(cv.WithFolds(e.opts.folds), cv.WithSeed(e.opts.seed))
	if err != nil {
		return fmt.Errorf("ensemble: %w", err)
	}
	if err := evaluator.BuildFolds(train); err != nil {
		return fmt.Errorf("ensemble: %w", err)
	}

	p := pool.New().WithMaxGoroutines(e.opts.parallelism).WithErrors().WithFirstError()
	for _, m := range e.modules {
		m := m
		p.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return e.buildModule(ctx, evaluator, train, m)
		})
	}
	if err := p.Wait(); err != nil {
		return fmt.Errorf("ensemble: %w", err)
	}

	e.fromResults = false
	if err := e.score(train, evaluator.Folds()); err != nil {
		return err
	}
	e.setBuildTime(time.Since(start))
	metrics.RecordStage(ctx, e.opts.name, "build", e.buildTime)

	logger.Infof("ensemble: built %s on %s with %d modules in %s", e.opts.name, train.Relation, len(e.modules), e.buildTime)
	return nil
}

func (e *Ensemble) buildModule(ctx context.Context, evaluator *cv.Evaluator, train *series.Dataset, m *Module) error {
	start := time.Now()
	res, err := evaluator.EvaluateOne(ctx, train, m.Provide)
	if err != nil {
		return fmt.Errorf("module %s: cross-validate: %w", m.Name, err)
	}
	res.Rename(m.Name)

	clf, err := m.Provide()
	if err != nil {
		return fmt.Errorf("module %s: %w", m.Name, err)
	}
	buildStart := time.Now()
	if err := clf.Build(ctx, train); err != nil {
		return fmt.Errorf("module %s: build: %w", m.Name, err)
	}

	m.Classifier = clf
	m.TrainResults = res
	m.Params = res.Params
	m.TestResults = results.New(m.Name, train.Relation, results.SplitTest, train.NumClasses)
	m.TestResults.Params = res.Params
	m.TestResults.BuildTime = time.Since(buildStart)

	metrics.RecordStage(ctx, m.Name, "member", time.Since(start))
	logging.FromContext(ctx).Debugf("ensemble: module %s has train accuracy %.4f", m, res.Accuracy())
	return nil
}

// BuildFromResults combines modules whose train and test predictions were
// stored earlier. Nothing is trained; test instances are read back in order
// by Distribution or by index with DistributionForTestInstance.
func (e *Ensemble) BuildFromResults(ctx context.Context, train *series.Dataset) error {
	if err := train.Validate(); err != nil {
		return fmt.Errorf("ensemble: invalid training data: %w", err)
	}
	if train.Regression() {
		return fmt.Errorf("ensemble: %w: %s has no classes", cv.ErrModeMismatch, train.Relation)
	}
	start := time.Now()
	var memberTime time.Duration
	for _, m := range e.modules {
		if m.TrainResults == nil {
			return fmt.Errorf("%w: %s", ErrNoTrainResults, m.Name)
		}
		if err := results.CheckAligned(train.Len(), m.TrainResults); err != nil {
			return fmt.Errorf("ensemble: module %s: %w", m.Name, err)
		}
		memberTime += m.TrainResults.BuildTime
	}
	if test := e.modules[0].TestResults; test != nil {
		for _, m := range e.modules {
			if m.TestResults == nil {
				return fmt.Errorf("%w: %s", ErrNoTestResults, m.Name)
			}
			if err := results.CheckAligned(test.Len(), m.TestResults); err != nil {
				return fmt.Errorf("ensemble: module %s: %w", m.Name, err)
			}
		}
	}

	evaluator, err := cv.New(cv.WithFolds(e.opts.folds), cv.WithSeed(e.opts.seed))
	if err != nil {
		return fmt.Errorf("ensemble: %w", err)
	}
	if err := evaluator.BuildFolds(train); err != nil {
		return fmt.Errorf("ensemble: %w", err)
	}

	e.fromResults = true
	if err := e.score(train, evaluator.Folds()); err != nil {
		return err
	}
	e.setBuildTime(time.Since(start) + memberTime)

	logging.FromContext(ctx).Infof("ensemble: combined stored results of %d modules on %s", len(e.modules), train.Relation)
	return nil
}

func (e *Ensemble) setBuildTime(d time.Duration) {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	e.buildTime = d
	e.testResults.BuildTime = d
	if e.trainResults != nil {
		e.trainResults.BuildTime = d
	}
}

func (e *Ensemble) score(train *series.Dataset, folds [][]int) error {
	if err := e.opts.weighting.DefineWeightings(e.modules, train.NumClasses); err != nil {
		return fmt.Errorf("ensemble: weighting %s: %w", e.opts.weighting, err)
	}
	if err := e.opts.voting.Train(e.modules, train.NumClasses, e.opts.seed); err != nil {
		return fmt.Errorf("ensemble: voting %s: %w", e.opts.voting, err)
	}

	e.mtx.Lock()
	defer e.mtx.Unlock()
	e.relation = train.Relation
	e.numClasses = train.NumClasses
	e.trainResults = nil
	if e.opts.ensembleCV {
		e.trainResults = e.crossValidate(train, folds)
	}
	e.resetTest()
	e.state = StateScored
	return nil
}

// crossValidate estimates the ensemble's accuracy from the modules' stored
// cross-validated predictions over the same folds.
func (e *Ensemble) crossValidate(train *series.Dataset, folds [][]int) *results.Results {
	res := results.New(e.opts.name, train.Relation, results.SplitTrain, train.NumClasses)
	res.Params = e.Params()
	res.Predictions = make([]results.Prediction, train.Len())
	res.Folds = make([]*results.Results, len(folds))

	dists := make([][]float64, len(e.modules))
	accs := make([]float64, len(folds))
	for f, fold := range folds {
		fr := results.New(e.opts.name, train.Relation, results.SplitTrain, train.NumClasses)
		fr.Fold = f
		for _, idx := range fold {
			start := time.Now()
			var memberTime time.Duration
			for i, m := range e.modules {
				dists[i] = m.TrainResults.Distribution(idx)
				memberTime += m.TrainResults.Predictions[idx].Duration
			}
			dist := e.opts.voting.Combine(e.modules, dists)
			p := results.Prediction{
				TrueClass:    train.Sequences[idx].Class,
				PredClass:    xrand.ArgMax(dist, e.opts.seed),
				Distribution: dist,
				Duration:     time.Since(start) + memberTime,
			}
			res.Predictions[idx] = p
			fr.Add(p)
		}
		res.Folds[f] = fr
		accs[f] = fr.Accuracy()
	}
	res.StdDev = math.Sqrt(stat.MomentAbout(2, accs, res.Accuracy(), nil))
	return res
}

// DistributionsByModule returns the distribution of every module for seq, in
// module order.
func (e *Ensemble) DistributionsByModule(ctx context.Context, seq series.Sequence) ([][]float64, error) {
	dists, _, err := e.predictModules(ctx, seq)
	return dists, err
}

// ClassifyByModule returns the class predicted by every module for seq.
func (e *Ensemble) ClassifyByModule(ctx context.Context, seq series.Sequence) ([]int, error) {
	dists, err := e.DistributionsByModule(ctx, seq)
	if err != nil {
		return nil, err
	}
	classes := make([]int, len(dists))
	for i, d := range dists {
		classes[i] = xrand.ArgMax(d, e.opts.seed)
	}
	return classes, nil
}

func (e *Ensemble) predictModules(ctx context.Context, seq series.Sequence) ([][]float64, []time.Duration, error) {
	if e.State() == StateUnscored {
		return nil, nil, ErrNotBuilt
	}
	if e.fromResults {
		return nil, nil, fmt.Errorf("%w: built from stored results", ErrNoClassifier)
	}
	dists := make([][]float64, len(e.modules))
	durations := make([]time.Duration, len(e.modules))
	for i, m := range e.modules {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		start := time.Now()
		c, err := m.Classifier.Predict(seq)
		if err != nil {
			return nil, nil, fmt.Errorf("ensemble: module %s: %w", m.Name, err)
		}
		dists[i] = c.Distribution
		durations[i] = time.Since(start)
	}
	return dists, durations, nil
}

// Distribution returns the combined distribution for seq and, unless test
// recording is off, records the prediction in the test results. An ensemble
// built from stored results ignores seq and returns the next stored test
// instance.
func (e *Ensemble) Distribution(ctx context.Context, seq series.Sequence) ([]float64, error) {
	trueClass := results.NoClass
	if !seq.Missing {
		trueClass = seq.Class
	}
	return e.distribution(ctx, seq.Hidden(), trueClass, e.opts.recordTest)
}

func (e *Ensemble) distribution(ctx context.Context, query series.Sequence, trueClass int, record bool) ([]float64, error) {
	if e.fromResults {
		e.mtx.Lock()
		i := e.testCounter
		e.testCounter++
		e.mtx.Unlock()
		dist, err := e.DistributionForTestInstance(i)
		if err != nil {
			return nil, err
		}
		var memberTime time.Duration
		for _, m := range e.modules {
			memberTime += m.TestResults.Predictions[i].Duration
			if trueClass == results.NoClass {
				trueClass = m.TestResults.Predictions[i].TrueClass
			}
		}
		e.recordTest(ctx, dist, trueClass, memberTime, nil, nil, record)
		return dist, nil
	}

	start := time.Now()
	dists, durations, err := e.predictModules(ctx, query)
	if err != nil {
		return nil, err
	}
	dist := e.opts.voting.Combine(e.modules, dists)
	e.recordTest(ctx, dist, trueClass, time.Since(start), dists, durations, record)
	return dist, nil
}

// recordTest appends the prediction to the test results of the ensemble and
// of every module when record is set. Stored-results ensembles advance their
// counter when they reserve an instance.
func (e *Ensemble) recordTest(ctx context.Context, dist []float64, trueClass int, elapsed time.Duration, dists [][]float64, durations []time.Duration, record bool) {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	if record {
		e.testResults.Add(results.Prediction{
			TrueClass:    trueClass,
			PredClass:    xrand.ArgMax(dist, e.opts.seed),
			Distribution: dist,
			Duration:     elapsed,
		})
		for i, m := range e.modules {
			if i >= len(dists) || m.TestResults == nil {
				break
			}
			m.TestResults.Add(results.Prediction{
				TrueClass:    trueClass,
				PredClass:    xrand.ArgMax(dists[i], e.opts.seed),
				Distribution: dists[i],
				Duration:     durations[i],
			})
		}
	}
	if !e.fromResults {
		e.testCounter++
	}
	e.state = StatePredicting
	metrics.RecordClassify(ctx, e.opts.name)
}

// DistributionForTestInstance combines the stored test predictions of
// instance i.
func (e *Ensemble) DistributionForTestInstance(i int) ([]float64, error) {
	if e.State() == StateUnscored {
		return nil, ErrNotBuilt
	}
	dists := make([][]float64, len(e.modules))
	for k, m := range e.modules {
		if m.TestResults == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoTestResults, m.Name)
		}
		if i < 0 || i >= m.TestResults.Len() {
			return nil, fmt.Errorf("%w: instance %d of %d", ErrTestExhausted, i, m.TestResults.Len())
		}
		dists[k] = m.TestResults.Distribution(i)
	}
	return e.opts.voting.Combine(e.modules, dists), nil
}

// Classify returns the most probable class of seq. Tied classes are broken
// with the ensemble seed.
func (e *Ensemble) Classify(ctx context.Context, seq series.Sequence) (int, error) {
	dist, err := e.Distribution(ctx, seq)
	if err != nil {
		return 0, err
	}
	return xrand.ArgMax(dist, e.opts.seed), nil
}

// Test classifies every sequence of test from a fresh test record and
// returns the ensemble's test results.
func (e *Ensemble) Test(ctx context.Context, test *series.Dataset) (*results.Results, error) {
	if e.State() == StateUnscored {
		return nil, ErrNotBuilt
	}
	e.mtx.Lock()
	e.resetTest()
	e.testResults.Dataset = test.Relation
	e.mtx.Unlock()

	for i, seq := range test.Sequences {
		trueClass := seq.Class
		if seq.Missing || test.Regression() {
			trueClass = results.NoClass
		}
		if _, err := e.distribution(ctx, seq.Hidden(), trueClass, true); err != nil {
			return nil, fmt.Errorf("ensemble: test instance %d: %w", i, err)
		}
	}
	return e.TestResults(), nil
}

// TestResults returns the predictions recorded since the last build or Test.
func (e *Ensemble) TestResults() *results.Results {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.testResults
}

func (e *Ensemble) resetTest() {
	e.testCounter = 0
	e.testResults = results.New(e.opts.name, e.relation, results.SplitTest, e.numClasses)
	e.testResults.Params = e.Params()
	e.testResults.BuildTime = e.buildTime
	if e.fromResults {
		return
	}
	for _, m := range e.modules {
		if m.TestResults != nil {
			m.TestResults.Predictions = nil
		}
	}
}
