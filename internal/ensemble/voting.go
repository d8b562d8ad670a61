package ensemble

import (
	"fmt"
	"strings"

	"github.com/go-sod/elens/pkg/xrand"
	"gonum.org/v1/gonum/floats"
)

// Voting combines the distributions of the modules, given in module order,
// into one distribution that sums to 1.
type Voting interface {
	Train(modules []*Module, numClasses int, seed int64) error
	Combine(modules []*Module, dists [][]float64) []float64
	String() string
}

var (
	_ Voting = (*MajorityVote)(nil)
	_ Voting = (*MajorityConfidence)(nil)
)

func VotingFor(name string) (Voting, error) {
	switch strings.ToUpper(name) {
	case "MAJORITYVOTE":
		return &MajorityVote{}, nil
	case "MAJORITYCONFIDENCE", "":
		return &MajorityConfidence{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, name)
	}
}

// MajorityVote gives each module's top class the module's weight for it.
// Ties within a module's distribution are broken with the trained seed.
type MajorityVote struct {
	numClasses int
	seed       int64
}

func (v *MajorityVote) Train(_ []*Module, numClasses int, seed int64) error {
	v.numClasses, v.seed = numClasses, seed
	return nil
}

func (v *MajorityVote) Combine(modules []*Module, dists [][]float64) []float64 {
	votes := make([]float64, v.numClasses)
	for i, m := range modules {
		c := xrand.ArgMax(dists[i], v.seed)
		if c >= 0 && c < v.numClasses {
			votes[c] += m.Weight(c)
		}
	}
	return normalize(votes)
}

func (v *MajorityVote) String() string {
	return "MajorityVote"
}

// MajorityConfidence sums the distributions of the modules scaled by their
// class weights.
type MajorityConfidence struct {
	numClasses int
}

func (v *MajorityConfidence) Train(_ []*Module, numClasses int, _ int64) error {
	v.numClasses = numClasses
	return nil
}

func (v *MajorityConfidence) Combine(modules []*Module, dists [][]float64) []float64 {
	votes := make([]float64, v.numClasses)
	for i, m := range modules {
		for c := 0; c < v.numClasses && c < len(dists[i]); c++ {
			votes[c] += m.Weight(c) * dists[i][c]
		}
	}
	return normalize(votes)
}

func (v *MajorityConfidence) String() string {
	return "MajorityConfidence"
}

// normalize scales votes to sum to 1, or makes them uniform when they sum to
// 0.
func normalize(votes []float64) []float64 {
	if len(votes) == 0 {
		return votes
	}
	sum := floats.Sum(votes)
	if sum <= 0 {
		for i := range votes {
			votes[i] = 1 / float64(len(votes))
		}
		return votes
	}
	floats.Scale(1/sum, votes)
	return votes
}
