package models

import "errors"

// Domain specific errors shared by the spot, enrichment and view packages.
var (
	ErrNotFound    = errors.New("requested item not found")
	ErrBadRequest  = errors.New("bad request")
	ErrValidation  = errors.New("validation failed")
	ErrNoLocation  = errors.New("no location fix available")
	ErrUnavailable = errors.New("upstream unavailable")
	ErrSuperseded  = errors.New("render pass superseded by a newer one")
)
