package core

import (
	"errors"
	"fmt"
)

// Error kinds recovered at adapter and resolver boundaries.
var (
	ErrTransport   = errors.New("transport failure")
	ErrParse       = errors.New("parse failure")
	ErrResolution  = errors.New("resolution failure")
	ErrRateLimited = errors.New("rate limited")
)

// TransportError wraps err as a transport failure for the named operation.
func TransportError(op string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", op, ErrTransport)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
}

// StatusError reports a non-success HTTP status as a transport failure.
func StatusError(op string, status int) error {
	return fmt.Errorf("%s: %w: unexpected status %d", op, ErrTransport, status)
}

// ResolutionError reports that no active ingredient could be found.
func ResolutionError(detail string) error {
	return fmt.Errorf("%w: %s", ErrResolution, detail)
}

// ParseError wraps err as a parse failure for the named operation.
func ParseError(op string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", op, ErrParse)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrParse, err)
}
