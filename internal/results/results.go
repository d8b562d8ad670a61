// Package results holds per-instance predictions of one classifier on one
// dataset split, with the summary statistics the ensemble weights are built
// from.
package results

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

const (
	SplitTrain = "train"
	SplitTest  = "test"

	// NoFold marks results covering a whole split rather than one fold.
	NoFold = -1
	// NoClass marks an absent true class.
	NoClass = -1
)

var ErrLengthMismatch = errors.New("results: prediction counts differ")

// Prediction is the outcome of one classifier on one instance. It is not
// modified once recorded.
type Prediction struct {
	TrueClass    int           `json:"trueClass"`
	PredClass    int           `json:"predClass"`
	TrueValue    float64       `json:"trueValue,omitempty"`
	PredValue    float64       `json:"predValue,omitempty"`
	Distribution []float64     `json:"distribution"`
	Duration     time.Duration `json:"duration"`
	Description  string        `json:"description,omitempty"`
}

type Results struct {
	Classifier string        `json:"classifier"`
	Dataset    string        `json:"dataset"`
	Split      string        `json:"split"`
	Fold       int           `json:"fold"`
	Params     string        `json:"params,omitempty"`
	NumClasses int           `json:"numClasses"`
	Regression bool          `json:"regression,omitempty"`
	BuildTime  time.Duration `json:"buildTime"`

	// StdDev is the spread of fold accuracies around the overall accuracy,
	// set on cross-validated estimates.
	StdDev      float64      `json:"stdDev,omitempty"`
	Predictions []Prediction `json:"predictions"`

	// Folds holds one result set per cross-validation fold, when the
	// results were produced by cross-validation.
	Folds []*Results `json:"-"`
}

func New(classifier, dataset, split string, numClasses int) *Results {
	return &Results{
		Classifier: classifier,
		Dataset:    dataset,
		Split:      split,
		Fold:       NoFold,
		NumClasses: numClasses,
	}
}

// Rename sets the classifier name of the results and of their folds.
func (r *Results) Rename(classifier string) {
	r.Classifier = classifier
	for _, f := range r.Folds {
		f.Classifier = classifier
	}
}

func (r *Results) Add(p Prediction) {
	r.Predictions = append(r.Predictions, p)
}

func (r *Results) Len() int {
	return len(r.Predictions)
}

func (r *Results) Distribution(i int) []float64 {
	return r.Predictions[i].Distribution
}

// Accuracy is the proportion of correct predictions among the predictions
// with a known true class.
func (r *Results) Accuracy() float64 {
	var correct, total int
	for _, p := range r.Predictions {
		if p.TrueClass == NoClass {
			continue
		}
		total++
		if p.TrueClass == p.PredClass {
			correct++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total)
}

// AccuracyByClass is the recall of every class. Classes without instances
// get 0.
func (r *Results) AccuracyByClass() []float64 {
	correct := make([]float64, r.NumClasses)
	total := make([]float64, r.NumClasses)
	for _, p := range r.Predictions {
		if p.TrueClass < 0 || p.TrueClass >= r.NumClasses {
			continue
		}
		total[p.TrueClass]++
		if p.TrueClass == p.PredClass {
			correct[p.TrueClass]++
		}
	}
	for c := range correct {
		if total[c] > 0 {
			correct[c] /= total[c]
		}
	}
	return correct
}

// ClassCounts counts the true classes.
func (r *Results) ClassCounts() []int {
	counts := make([]int, r.NumClasses)
	for _, p := range r.Predictions {
		if p.TrueClass >= 0 && p.TrueClass < r.NumClasses {
			counts[p.TrueClass]++
		}
	}
	return counts
}

// Confusion returns the confusion matrix indexed [true][predicted].
func (r *Results) Confusion() [][]float64 {
	m := make([][]float64, r.NumClasses)
	for i := range m {
		m[i] = make([]float64, r.NumClasses)
	}
	for _, p := range r.Predictions {
		if p.TrueClass < 0 || p.TrueClass >= r.NumClasses || p.PredClass < 0 || p.PredClass >= r.NumClasses {
			continue
		}
		m[p.TrueClass][p.PredClass]++
	}
	return m
}

// MCC is the multi-class Matthews correlation coefficient. It is 0 when
// either marginal is constant.
func (r *Results) MCC() float64 {
	confusion := r.Confusion()
	k := len(confusion)
	actual := make([]float64, k)
	predicted := make([]float64, k)
	var trace, total float64
	for i := 0; i < k; i++ {
		actual[i] = floats.Sum(confusion[i])
		for j := 0; j < k; j++ {
			predicted[j] += confusion[i][j]
		}
		trace += confusion[i][i]
	}
	total = floats.Sum(actual)
	num := trace*total - floats.Dot(actual, predicted)
	den := math.Sqrt((total*total - floats.Dot(predicted, predicted)) * (total*total - floats.Dot(actual, actual)))
	if den == 0 {
		return 0
	}
	return num / den
}

// AUROC is the mean one-vs-rest area under the ROC curve, using the
// probability of each class as its score. Classes that are absent or make up
// every instance are skipped; the result is 0.5 when no class qualifies.
func (r *Results) AUROC() float64 {
	var (
		sum   float64
		count int
	)
	for c := 0; c < r.NumClasses; c++ {
		scores := make([]float64, 0, len(r.Predictions))
		labels := make([]bool, 0, len(r.Predictions))
		var positives int
		for _, p := range r.Predictions {
			if p.TrueClass == NoClass || c >= len(p.Distribution) {
				continue
			}
			scores = append(scores, p.Distribution[c])
			labels = append(labels, p.TrueClass == c)
			if p.TrueClass == c {
				positives++
			}
		}
		if positives == 0 || positives == len(labels) {
			continue
		}
		stat.SortWeightedLabeled(scores, labels, nil)
		tpr, fpr, _ := stat.ROC(nil, scores, labels, nil)
		sum += integrate.Trapezoidal(fpr, tpr)
		count++
	}
	if count == 0 {
		return 0.5
	}
	return sum / float64(count)
}

// RMSE is the root mean squared error of regression predictions.
func (r *Results) RMSE() float64 {
	if len(r.Predictions) == 0 {
		return 0
	}
	var sum float64
	for _, p := range r.Predictions {
		d := p.PredValue - p.TrueValue
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(r.Predictions)))
}

// FoldAccuracies returns the accuracy of every fold and their standard
// deviation.
func (r *Results) FoldAccuracies() ([]float64, float64) {
	accs := make([]float64, len(r.Folds))
	for i, f := range r.Folds {
		accs[i] = f.Accuracy()
	}
	if len(accs) < 2 {
		return accs, 0
	}
	return accs, stat.StdDev(accs, nil)
}

// TotalDuration sums the prediction durations.
func (r *Results) TotalDuration() time.Duration {
	var d time.Duration
	for _, p := range r.Predictions {
		d += p.Duration
	}
	return d
}

// CheckAligned returns an error unless every result set has n predictions.
func CheckAligned(n int, rs ...*Results) error {
	for _, r := range rs {
		if r == nil || r.Len() != n {
			got := 0
			if r != nil {
				got = r.Len()
			}
			return fmt.Errorf("%w: want %d, got %d", ErrLengthMismatch, n, got)
		}
	}
	return nil
}
