package distance

import "fmt"

type Type string

const (
	TypeEuclidean Type = "ED"
	TypeDTW       Type = "DTW"
	TypeWDTW      Type = "WDTW"
)

// ParamIDs is the number of parameter ids of a measure family. Id i gives a
// window fraction or a weight penalty of i/100.
const ParamIDs = 100

// MeasureFor builds a measure of type t. param is the warping window
// fraction for DTW and the penalty g for WDTW, and is ignored for ED.
func MeasureFor(t Type, param float64) (Measure, error) {
	switch t {
	case TypeEuclidean:
		return Euclidean{}, nil
	case TypeDTW:
		m, err := NewDTW(param)
		if err != nil {
			return nil, err
		}
		return m, nil
	case TypeWDTW:
		m, err := NewWDTW(param)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknown, t)
	}
}

// ParamFor returns the parameter value of a parameter id.
func ParamFor(id int) float64 {
	return float64(id) / ParamIDs
}
