package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownPlatform indicates a platform identifier outside the supported set.
	ErrUnknownPlatform = errors.New("unknown platform")

	// ErrUnsupportedScheme indicates a URL the host cannot open.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
)
