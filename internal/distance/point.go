package distance

import (
	"fmt"
	"math"
)

// PointsDistanceFn is a plain distance between equally sized vectors.
type PointsDistanceFn func(vec, vec1 []float64) (float64, error)

type PointType string

const (
	PointTypeEuclidean PointType = "EUCLIDEAN"
	PointTypeChebyshev PointType = "CHEBYSHEV"
	PointTypeManhattan PointType = "MANHATTAN"
)

func PointFuncFor(t PointType) (PointsDistanceFn, error) {
	switch t {
	case PointTypeEuclidean:
		return EuclideanDistance, nil
	case PointTypeChebyshev:
		return ChebyshevDistance, nil
	case PointTypeManhattan:
		return ManhattanDistance, nil
	default:
		return nil, fmt.Errorf("%w: point function %q", ErrUnknown, t)
	}
}

func EuclideanDistance(vec, vec1 []float64) (float64, error) {
	var d float64
	if len(vec) != len(vec1) {
		return 0.0, ErrDimNotEqual
	}
	for i := 0; i < len(vec); i++ {
		diff := vec[i] - vec1[i]
		d += diff * diff
	}
	return math.Sqrt(d), nil
}

func ChebyshevDistance(vec, vec1 []float64) (float64, error) {
	var absDistance, distance float64
	if len(vec) != len(vec1) {
		return 0.0, ErrDimNotEqual
	}
	for i := 0; i < len(vec1); i++ {
		absDistance = math.Abs(vec[i] - vec1[i])
		if distance < absDistance {
			distance = absDistance
		}
	}
	return distance, nil
}

func ManhattanDistance(vec, vec1 []float64) (float64, error) {
	var distance float64
	if len(vec) != len(vec1) {
		return 0.0, ErrDimNotEqual
	}
	for i := 0; i < len(vec); i++ {
		distance += math.Abs(vec[i] - vec1[i])
	}
	return distance, nil
}
