package model

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by loading, fitting and metrics.
var (
	ErrFileNotFound        = errors.New("file not found")
	ErrMalformedInput      = errors.New("malformed input")
	ErrInsufficientHistory = errors.New("insufficient history")
	ErrDivisionByZero      = errors.New("division by zero")
	ErrModelDiverged       = errors.New("model produced non-finite values")
)

// SeriesError scopes an error to one category (or the total).
type SeriesError struct {
	Series string
	Err    error
}

func (e *SeriesError) Error() string {
	return fmt.Sprintf("%s: %v", e.Series, e.Err)
}

func (e *SeriesError) Unwrap() error { return e.Err }

// SeriesErr wraps err with its series name. A nil err stays nil.
func SeriesErr(series string, err error) error {
	if err == nil {
		return nil
	}
	return &SeriesError{Series: series, Err: err}
}
