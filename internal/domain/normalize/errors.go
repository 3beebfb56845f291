package normalize

import "errors"

// Sentinel errors for this package. These allow errors.Is from callers.
var (
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrEmptySequence      = errors.New("empty sequence")
)
