package series

import (
	"fmt"

	"github.com/go-sod/elens/pkg/xrand"
)

// Resample pools train and test, shuffles the pool with seed and deals out a
// new split that keeps the per-class train counts of the original split.
// Seed zero returns the original split unchanged.
func Resample(train, test *Dataset, seed int64) (*Dataset, *Dataset, error) {
	if train.NumClasses != test.NumClasses {
		return nil, nil, fmt.Errorf("resample: class counts differ: %d and %d", train.NumClasses, test.NumClasses)
	}
	if seed == 0 {
		return train, test, nil
	}

	pool := make([]Sequence, 0, train.Len()+test.Len())
	pool = append(pool, train.Sequences...)
	pool = append(pool, test.Sequences...)
	rnd := xrand.New(seed)
	rnd.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	if train.Regression() {
		n := train.Len()
		return &Dataset{Relation: train.Relation, Sequences: pool[:n:n]},
			&Dataset{Relation: test.Relation, Sequences: pool[n:]}, nil
	}

	want := train.ClassCounts()
	newTrain := &Dataset{Relation: train.Relation, NumClasses: train.NumClasses, Labels: train.Labels}
	newTest := &Dataset{Relation: test.Relation, NumClasses: test.NumClasses, Labels: test.Labels}
	for _, s := range pool {
		if s.Class >= 0 && s.Class < len(want) && want[s.Class] > 0 {
			want[s.Class]--
			newTrain.Sequences = append(newTrain.Sequences, s)
			continue
		}
		newTest.Sequences = append(newTest.Sequences, s)
	}
	return newTrain, newTest, nil
}
