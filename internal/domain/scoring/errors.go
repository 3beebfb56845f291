package scoring

import "errors"

// Sentinel errors for this package. These allow errors.Is from callers.
var (
	ErrInvalidWeights = errors.New("invalid weights")
	ErrUnknownMethod  = errors.New("unknown similarity method")
)
