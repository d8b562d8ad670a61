package results

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(numClasses int, truth, pred []int) *Results {
	r := New("clf", "ds", SplitTrain, numClasses)
	for i := range truth {
		dist := make([]float64, numClasses)
		dist[pred[i]] = 1
		r.Add(Prediction{TrueClass: truth[i], PredClass: pred[i], Distribution: dist, Duration: time.Millisecond})
	}
	return r
}

func TestResults_Accuracy(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		r        *Results
		acc      float64
		byClass  []float64
		mcc      float64
		expected float64
	}{
		{
			name:    "perfect",
			r:       build(2, []int{0, 0, 1, 1}, []int{0, 0, 1, 1}),
			acc:     1,
			byClass: []float64{1, 1},
			mcc:     1,
		},
		{
			name:    "inverted",
			r:       build(2, []int{0, 0, 1, 1}, []int{1, 1, 0, 0}),
			acc:     0,
			byClass: []float64{0, 0},
			mcc:     -1,
		},
		{
			name:    "constant",
			r:       build(2, []int{0, 0, 1, 1}, []int{0, 0, 0, 0}),
			acc:     0.5,
			byClass: []float64{1, 0},
			mcc:     0,
		},
		{
			name:    "three_class",
			r:       build(3, []int{0, 1, 2, 2}, []int{0, 1, 2, 1}),
			acc:     0.75,
			byClass: []float64{1, 1, 0.5},
			mcc:     (3*4 - (1*1 + 2*1 + 1*2)) / math.Sqrt((16-(1+4+1))*(16-(1+1+4))),
		},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, test.acc, test.r.Accuracy(), 1e-12)
			assert.InDeltaSlice(t, test.byClass, test.r.AccuracyByClass(), 1e-12)
			assert.InDelta(t, test.mcc, test.r.MCC(), 1e-12)
		})
	}
}

func TestResults_AUROC(t *testing.T) {
	t.Parallel()
	r := New("clf", "ds", SplitTrain, 2)
	scores := []float64{0.1, 0.4, 0.35, 0.8}
	truth := []int{0, 0, 1, 1}
	for i := range scores {
		r.Add(Prediction{TrueClass: truth[i], Distribution: []float64{1 - scores[i], scores[i]}})
	}
	assert.InDelta(t, 0.75, r.AUROC(), 1e-12)

	perfect := build(2, []int{0, 1, 0, 1}, []int{0, 1, 0, 1})
	assert.InDelta(t, 1.0, perfect.AUROC(), 1e-12)

	single := build(2, []int{0, 0}, []int{0, 0})
	assert.Equal(t, 0.5, single.AUROC())
}

func TestResults_FoldAccuracies(t *testing.T) {
	t.Parallel()
	r := build(2, []int{0, 1}, []int{0, 1})
	r.Folds = []*Results{
		build(2, []int{0, 1}, []int{0, 1}),
		build(2, []int{0, 1}, []int{0, 0}),
	}
	accs, std := r.FoldAccuracies()
	assert.Equal(t, []float64{1, 0.5}, accs)
	assert.InDelta(t, math.Sqrt(0.125), std, 1e-12)
	assert.Equal(t, 2*time.Millisecond, r.TotalDuration())
}

func TestResults_RMSE(t *testing.T) {
	t.Parallel()
	r := New("reg", "ds", SplitTest, 0)
	r.Add(Prediction{TrueClass: NoClass, PredClass: NoClass, TrueValue: 1, PredValue: 2})
	r.Add(Prediction{TrueClass: NoClass, PredClass: NoClass, TrueValue: 1, PredValue: 0})
	assert.InDelta(t, 1.0, r.RMSE(), 1e-12)
	assert.Equal(t, 0.0, r.Accuracy())
}

func TestCheckAligned(t *testing.T) {
	t.Parallel()
	a := build(2, []int{0, 1}, []int{0, 1})
	assert.NoError(t, CheckAligned(2, a, a))
	assert.True(t, errors.Is(CheckAligned(3, a), ErrLengthMismatch))
	assert.True(t, errors.Is(CheckAligned(2, a, nil), ErrLengthMismatch))
}

type memorySink struct {
	records []Record
	metas   []Meta
	failAt  int
}

func (s *memorySink) Append(_ context.Context, record Record) error {
	if s.failAt >= 0 && record.Index == s.failAt {
		return errors.New("disk full")
	}
	s.records = append(s.records, record)
	return nil
}

func (s *memorySink) Finalize(_ context.Context, meta Meta) error {
	s.metas = append(s.metas, meta)
	return nil
}

func TestWrite(t *testing.T) {
	t.Parallel()
	r := build(2, []int{0, 1, 1}, []int{0, 1, 0})
	r.BuildTime = time.Second
	sink := &memorySink{failAt: -1}
	run := uuid.New()
	require.NoError(t, Write(context.Background(), sink, run, r))
	require.Len(t, sink.records, 3)
	require.Len(t, sink.metas, 1)
	assert.Equal(t, 2, sink.records[2].Index)
	assert.Equal(t, run, sink.metas[0].RunID)
	assert.Equal(t, "clf/ds/train/-1", sink.metas[0].Key.String())
	assert.InDelta(t, 2.0/3, sink.metas[0].Accuracy, 1e-12)

	failing := &memorySink{failAt: 1}
	assert.Error(t, Write(context.Background(), failing, run, r))
	assert.Empty(t, failing.metas)
}
