package series

import (
	"encoding/hex"
	"fmt"

	"github.com/go-sod/elens/internal/util"
)

// Dataset is an ordered collection of sequences sharing one length and one
// class cardinality. NumClasses is zero for regression datasets. Labels, when
// set, holds the label read from disk for every class index.
type Dataset struct {
	Relation   string     `json:"relation"`
	NumClasses int        `json:"numClasses"`
	Labels     []float64  `json:"labels,omitempty"`
	Sequences  []Sequence `json:"sequences"`
}

func NewDataset(relation string, numClasses int, sequences ...Sequence) *Dataset {
	return &Dataset{Relation: relation, NumClasses: numClasses, Sequences: sequences}
}

func (d *Dataset) Len() int {
	return len(d.Sequences)
}

// Length is the length of every sequence, taken from the first one.
func (d *Dataset) Length() int {
	if len(d.Sequences) == 0 {
		return 0
	}
	return d.Sequences[0].Len()
}

// Label returns the label of class c, or c itself when no labels are known.
func (d *Dataset) Label(c int) float64 {
	if c >= 0 && c < len(d.Labels) {
		return d.Labels[c]
	}
	return float64(c)
}

func (d *Dataset) Regression() bool {
	return d.NumClasses == 0
}

// Validate checks the dataset invariants and names the first offending
// instance.
func (d *Dataset) Validate() error {
	if len(d.Sequences) == 0 {
		return ErrEmptyDataset
	}
	length := d.Length()
	for i, s := range d.Sequences {
		switch {
		case s.Len() == 0:
			return &InstanceError{Index: i, Err: ErrEmptySequence}
		case s.Len() != length:
			return &InstanceError{Index: i, Err: fmt.Errorf("%w: got %d, want %d", ErrLengthMismatch, s.Len(), length)}
		case s.hasMissingValue():
			return &InstanceError{Index: i, Err: ErrMissingValue}
		case d.Regression():
		case s.Missing:
			return &InstanceError{Index: i, Err: ErrMissingClass}
		case s.Class < 0 || s.Class >= d.NumClasses:
			return &InstanceError{Index: i, Err: fmt.Errorf("%w: %d not in [0, %d)", ErrClassOutOfRange, s.Class, d.NumClasses)}
		}
	}
	return nil
}

// Values returns the value vectors in dataset order. The vectors are shared.
func (d *Dataset) Values() [][]float64 {
	values := make([][]float64, len(d.Sequences))
	for i := range d.Sequences {
		values[i] = d.Sequences[i].Values
	}
	return values
}

func (d *Dataset) Classes() []int {
	classes := make([]int, len(d.Sequences))
	for i := range d.Sequences {
		classes[i] = d.Sequences[i].Class
	}
	return classes
}

func (d *Dataset) ClassCounts() []int {
	counts := make([]int, d.NumClasses)
	for _, s := range d.Sequences {
		if s.Class >= 0 && s.Class < d.NumClasses {
			counts[s.Class]++
		}
	}
	return counts
}

// ClassDistribution returns the proportion of each class.
func (d *Dataset) ClassDistribution() []float64 {
	dist := make([]float64, d.NumClasses)
	if len(d.Sequences) == 0 {
		return dist
	}
	for c, n := range d.ClassCounts() {
		dist[c] = float64(n) / float64(len(d.Sequences))
	}
	return dist
}

// Subset returns a dataset holding the sequences at indices, in that order.
func (d *Dataset) Subset(indices []int) (*Dataset, error) {
	sequences := make([]Sequence, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= len(d.Sequences) {
			return nil, fmt.Errorf("%w: %d", ErrBadIndex, idx)
		}
		sequences[i] = d.Sequences[idx]
	}
	return &Dataset{Relation: d.Relation, NumClasses: d.NumClasses, Labels: d.Labels, Sequences: sequences}, nil
}

// Identity is a token that changes whenever the relation name or any value or
// label of the dataset changes.
func (d *Dataset) Identity() string {
	labels := d.Classes()
	if d.Regression() {
		for i := range labels {
			labels[i] = 0
		}
	}
	rows := d.Values()
	if d.Regression() {
		targets := make([]float64, len(d.Sequences))
		for i := range d.Sequences {
			targets[i] = d.Sequences[i].Target
		}
		rows = append(rows, targets)
		labels = append(labels, -1)
	}
	sum := util.HashSeries(rows, labels)
	return d.Relation + "#" + hex.EncodeToString(sum[:8])
}
