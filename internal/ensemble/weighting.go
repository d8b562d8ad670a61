package ensemble

import (
	"fmt"
	"math"
	"strings"
)

// Weighting sets the posterior weights of every module from its train
// results. Test data is never consulted.
type Weighting interface {
	DefineWeightings(modules []*Module, numClasses int) error
	String() string
}

var (
	_ Weighting = Equal{}
	_ Weighting = TrainAcc{}
	_ Weighting = TrainAccByClass{}
	_ Weighting = MCC{}
	_ Weighting = TrainAccOrMCC{}
	_ Weighting = AUROC{}
)

const DefaultPower = 4

// WeightingFor returns the scheme named name. power applies to the schemes
// that raise a score to a power.
func WeightingFor(name string, power float64) (Weighting, error) {
	switch strings.ToUpper(name) {
	case "EQUAL":
		return Equal{}, nil
	case "TRAINACC", "":
		return TrainAcc{Power: power}, nil
	case "TRAINACCBYCLASS":
		return TrainAccByClass{}, nil
	case "MCC":
		return MCC{Power: power}, nil
	case "TRAINACCORMCC":
		return TrainAccOrMCC{Power: power}, nil
	case "AUROC":
		return AUROC{Power: power}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, name)
	}
}

func requireTrain(modules []*Module) error {
	for _, m := range modules {
		if m.TrainResults == nil {
			return fmt.Errorf("%w: %s", ErrNoTrainResults, m.Name)
		}
	}
	return nil
}

func uniformWeights(w float64, numClasses int) []float64 {
	weights := make([]float64, numClasses)
	for i := range weights {
		weights[i] = w
	}
	return weights
}

// pow raises a non-negative score to power, treating a zero power as 1.
func pow(score, power float64) float64 {
	if power == 0 {
		power = 1
	}
	return math.Pow(math.Max(score, 0), power)
}

type Equal struct{}

func (Equal) DefineWeightings(modules []*Module, numClasses int) error {
	for _, m := range modules {
		m.PosteriorWeights = uniformWeights(1, numClasses)
	}
	return nil
}

func (Equal) String() string {
	return "Equal"
}

// TrainAcc weights a module by its train accuracy raised to Power.
type TrainAcc struct {
	Power float64
}

func (w TrainAcc) DefineWeightings(modules []*Module, numClasses int) error {
	if err := requireTrain(modules); err != nil {
		return err
	}
	for _, m := range modules {
		m.PosteriorWeights = uniformWeights(pow(m.TrainResults.Accuracy(), w.Power), numClasses)
	}
	return nil
}

func (w TrainAcc) String() string {
	return fmt.Sprintf("TrainAcc(%g)", w.Power)
}

// TrainAccByClass weights each class of a module by the module's train
// recall of that class.
type TrainAccByClass struct{}

func (TrainAccByClass) DefineWeightings(modules []*Module, numClasses int) error {
	if err := requireTrain(modules); err != nil {
		return err
	}
	for _, m := range modules {
		byClass := m.TrainResults.AccuracyByClass()
		weights := make([]float64, numClasses)
		copy(weights, byClass)
		m.PosteriorWeights = weights
	}
	return nil
}

func (TrainAccByClass) String() string {
	return "TrainAccByClass"
}

// MCC weights a module by its train Matthews correlation raised to Power.
// Negative correlations give a zero weight.
type MCC struct {
	Power float64
}

func (w MCC) DefineWeightings(modules []*Module, numClasses int) error {
	if err := requireTrain(modules); err != nil {
		return err
	}
	for _, m := range modules {
		m.PosteriorWeights = uniformWeights(pow(m.TrainResults.MCC(), w.Power), numClasses)
	}
	return nil
}

func (w MCC) String() string {
	return fmt.Sprintf("MCC(%g)", w.Power)
}

// TrainAccOrMCC uses MCC when the largest class is at least UnevenProp times
// as frequent as the smallest one in the train data, and TrainAcc otherwise.
// A zero UnevenProp means 4.
type TrainAccOrMCC struct {
	UnevenProp float64
	Power      float64
}

// DefaultUnevenProp is the class count ratio from which TrainAccOrMCC
// switches to MCC.
const DefaultUnevenProp = 4

// Choose returns the scheme applied to modules.
func (w TrainAccOrMCC) Choose(modules []*Module, numClasses int) Weighting {
	prop := w.unevenProp()
	counts := make([]int, numClasses)
	for _, p := range modules[0].TrainResults.Predictions {
		if p.TrueClass >= 0 && p.TrueClass < numClasses {
			counts[p.TrueClass]++
		}
	}
	lo, hi := counts[0], counts[0]
	for _, c := range counts[1:] {
		if c > hi {
			hi = c
		}
		if c < lo {
			lo = c
		}
	}
	if float64(hi) >= float64(lo)*prop {
		return MCC{Power: w.Power}
	}
	return TrainAcc{Power: w.Power}
}

func (w TrainAccOrMCC) DefineWeightings(modules []*Module, numClasses int) error {
	if err := requireTrain(modules); err != nil {
		return err
	}
	if len(modules) == 0 || numClasses == 0 {
		return nil
	}
	return w.Choose(modules, numClasses).DefineWeightings(modules, numClasses)
}

func (w TrainAccOrMCC) String() string {
	return fmt.Sprintf("TrainAccOrMCC(uneven=%g,power=%g)", w.unevenProp(), w.Power)
}

func (w TrainAccOrMCC) unevenProp() float64 {
	if w.UnevenProp == 0 {
		return DefaultUnevenProp
	}
	return w.UnevenProp
}

// AUROC weights a module by its mean one-vs-rest train AUROC raised to Power.
type AUROC struct {
	Power float64
}

func (w AUROC) DefineWeightings(modules []*Module, numClasses int) error {
	if err := requireTrain(modules); err != nil {
		return err
	}
	for _, m := range modules {
		m.PosteriorWeights = uniformWeights(pow(m.TrainResults.AUROC(), w.Power), numClasses)
	}
	return nil
}

func (w AUROC) String() string {
	return fmt.Sprintf("AUROC(%g)", w.Power)
}
