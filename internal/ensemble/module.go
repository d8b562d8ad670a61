package ensemble

import (
	"fmt"

	"github.com/go-sod/elens/internal/predictor"
	"github.com/go-sod/elens/internal/results"
)

// Module is one member of an ensemble. PosteriorWeights holds one weight per
// class; schemes with a single weight repeat it for every class.
type Module struct {
	Name   string
	Params string

	Provide    predictor.ProvideFn
	Classifier predictor.Predictor

	TrainResults *results.Results
	TestResults  *results.Results

	PriorWeight      float64
	PosteriorWeights []float64
}

func NewModule(name string, provide predictor.ProvideFn) *Module {
	return &Module{Name: name, Provide: provide, PriorWeight: 1}
}

// FromResults returns a module that is combined from stored predictions
// only. test may be nil when only a train estimate is needed.
func FromResults(name string, train, test *results.Results) *Module {
	return &Module{
		Name:         name,
		Params:       train.Params,
		TrainResults: train,
		TestResults:  test,
		PriorWeight:  1,
	}
}

// Weight returns the posterior weight of class c scaled by the prior weight.
func (m *Module) Weight(c int) float64 {
	if c < 0 || c >= len(m.PosteriorWeights) {
		return 0
	}
	return m.PriorWeight * m.PosteriorWeights[c]
}

func (m *Module) String() string {
	if m.Params == "" {
		return m.Name
	}
	return fmt.Sprintf("%s[%s]", m.Name, m.Params)
}
