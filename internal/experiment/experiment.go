// Package experiment reads the description of an ensemble experiment from a
// TOML file.
//
//	resample = 1
//
//	[ensemble]
//	weighting = "TrainAcc"
//	power = 4
//
//	[[member]]
//	name = "DTW_1NN"
//	type = "NN"
//	measure = "DTW"
//	search = true
package experiment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-sod/elens/internal/distance"
	"github.com/go-sod/elens/internal/ensemble"
	"github.com/go-sod/elens/internal/predictor"
)

var (
	ErrNoMembers     = errors.New("experiment: no members")
	ErrUnnamedMember = errors.New("experiment: member without a name")
	ErrDuplicateName = errors.New("experiment: duplicate member name")
	ErrUnknownKey    = errors.New("experiment: unknown key")
)

type File struct {
	// Resample re-splits train and test with this seed; 0 keeps the
	// original split.
	Resample int64              `toml:"resample"`
	Ensemble ensemble.Config    `toml:"ensemble"`
	Members  []predictor.Config `toml:"member"`
}

// Default is the elastic ensemble used when no file is given.
func Default(base ensemble.Config) *File {
	return &File{
		Ensemble: base,
		Members: []predictor.Config{
			{Name: "ED_1NN", Type: predictor.AlgTypeNN, Measure: distance.TypeEuclidean},
			{Name: "DTW_R1_1NN", Type: predictor.AlgTypeNN, Measure: distance.TypeDTW, Param: 1},
			{Name: "DTW_Rn_1NN", Type: predictor.AlgTypeNN, Measure: distance.TypeDTW, Search: true},
			{Name: "WDTW_1NN", Type: predictor.AlgTypeNN, Measure: distance.TypeWDTW, Search: true},
			{Name: "ED_3NN", Type: predictor.AlgTypeKNN, K: 3, PointFunc: distance.PointTypeEuclidean},
		},
	}
}

// Load decodes path over base, so that keys absent from the file keep the
// values of base. Keys the file sets but File does not know are an error.
func Load(path string, base ensemble.Config) (*File, error) {
	f := &File{Ensemble: base}
	md, err := toml.DecodeFile(path, f)
	if err != nil {
		return nil, fmt.Errorf("experiment: decode %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, strings.Join(keys, ", "))
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) Validate() error {
	if len(f.Members) == 0 {
		return ErrNoMembers
	}
	seen := make(map[string]struct{}, len(f.Members))
	for i, m := range f.Members {
		if m.Name == "" {
			return fmt.Errorf("%w: member %d", ErrUnnamedMember, i)
		}
		if _, ok := seen[m.Name]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateName, m.Name)
		}
		seen[m.Name] = struct{}{}
	}
	return nil
}
