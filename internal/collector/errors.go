package collector

import (
	"errors"
	"fmt"
)

// ErrUpstream matches any UpstreamError via errors.Is.
var ErrUpstream = errors.New("upstream reported failure")

// ErrInsufficientHistory is returned for symbols with fewer than two daily closes.
var ErrInsufficientHistory = errors.New("insufficient price history")

// ErrInvalidClose is returned for series holding a non-finite close.
var ErrInvalidClose = errors.New("non-finite close in price history")

// UpstreamError is returned when the provider answers with a non-success status.
type UpstreamError struct {
	Endpoint string
	Status   string
	Message  string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream %s: status %s: %s", e.Endpoint, e.Status, e.Message)
	}
	return fmt.Sprintf("upstream %s: status %s", e.Endpoint, e.Status)
}

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }
