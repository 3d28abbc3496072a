package model

import (
	"errors"
	"fmt"
)

// Sentinel error kinds shared across layers. Callers match them with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrStorage    = errors.New("storage failure")
)

// OpError attaches an operation name and a kind to an underlying error.
type OpError struct {
	Op   string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewKind returns an error of the given kind with no further cause.
func NewKind(op string, kind error) error {
	return &OpError{Op: op, Kind: kind}
}

// WrapKind classifies err under kind.
func WrapKind(op string, kind, err error) error {
	return &OpError{Op: op, Kind: kind, Err: err}
}

// Validationf builds a validation error with a formatted cause.
func Validationf(op, format string, args ...any) error {
	return &OpError{Op: op, Kind: ErrValidation, Err: fmt.Errorf(format, args...)}
}

// NotFoundf builds a not-found error with a formatted cause.
func NotFoundf(op, format string, args ...any) error {
	return &OpError{Op: op, Kind: ErrNotFound, Err: fmt.Errorf(format, args...)}
}

// Storage classifies err as a storage failure unless it already carries a
// validation or not-found kind.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrStorage) {
		return err
	}
	return &OpError{Op: op, Kind: ErrStorage, Err: err}
}
