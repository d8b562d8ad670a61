// Package series holds the labelled sequence and dataset model shared by the
// distance measures, the classifiers and the evaluation code.
package series

import "math"

// Sequence is a fixed-length vector of values with an integer class label.
// Target carries the response value for regression datasets. Missing marks a
// sequence whose label is hidden from the classifier during evaluation.
type Sequence struct {
	Values  []float64 `json:"values"`
	Class   int       `json:"class"`
	Target  float64   `json:"target,omitempty"`
	Missing bool      `json:"missing,omitempty"`
}

// NoClass is the class of a sequence whose label is hidden.
const NoClass = -1

func New(values []float64, class int) Sequence {
	return Sequence{Values: values, Class: class}
}

func (s Sequence) Len() int {
	return len(s.Values)
}

// Hidden returns a copy of the sequence with its label hidden: Missing is set
// and Class is NoClass.
func (s Sequence) Hidden() Sequence {
	h := s.Copy()
	h.Missing = true
	h.Class = NoClass
	return h
}

func (s Sequence) Copy() Sequence {
	values := make([]float64, len(s.Values))
	copy(values, s.Values)
	return Sequence{Values: values, Class: s.Class, Target: s.Target, Missing: s.Missing}
}

// Equal compares sequences by value. NaN values never compare equal.
func (s Sequence) Equal(o Sequence) bool {
	if s.Class != o.Class || s.Missing != o.Missing || s.Target != o.Target {
		return false
	}
	if len(s.Values) != len(o.Values) {
		return false
	}
	for i := range s.Values {
		if s.Values[i] != o.Values[i] {
			return false
		}
	}
	return true
}

func (s Sequence) hasMissingValue() bool {
	for _, v := range s.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}
