package series

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyDataset    = errors.New("series: dataset is empty")
	ErrEmptySequence   = errors.New("series: sequence has no values")
	ErrLengthMismatch  = errors.New("series: sequence length differs from dataset length")
	ErrClassOutOfRange = errors.New("series: class label out of range")
	ErrMissingClass    = errors.New("series: class label is hidden")
	ErrMissingValue    = errors.New("series: sequence holds a missing or infinite value")
	ErrBadIndex        = errors.New("series: index out of range")
)

// InstanceError reports a data error on one instance of a dataset.
type InstanceError struct {
	Index int
	Err   error
}

func (e *InstanceError) Error() string {
	return fmt.Sprintf("instance %d: %v", e.Index, e.Err)
}

func (e *InstanceError) Unwrap() error {
	return e.Err
}
