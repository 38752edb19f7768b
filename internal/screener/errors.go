package screener

import "errors"

var (
	// ErrFilterFailed is returned when screening or export fails unexpectedly.
	// The cause is logged, not returned.
	ErrFilterFailed = errors.New("filter failed")
	// ErrInvalidParams marks a filter request with out-of-range parameters.
	ErrInvalidParams = errors.New("invalid filter parameters")
)
