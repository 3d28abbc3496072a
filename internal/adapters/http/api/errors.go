package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest       = errors.New("bad request")
	ErrUnauthorized     = errors.New("operator token required")
	ErrDuplicateRequest = errors.New("duplicate request")
)
