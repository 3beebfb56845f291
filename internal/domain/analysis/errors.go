package analysis

import (
	"errors"
	"fmt"
)

// Sentinel errors for this package. These allow errors.Is from callers.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternal       = errors.New("internal failure")
)

// FailureError is a fatal run failure that is not a validation problem. It
// carries a diagnostic trace when one is available.
type FailureError struct {
	Message string
	Trace   string
	Err     error
}

func (e *FailureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *FailureError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrInternal) match any FailureError.
func (e *FailureError) Is(target error) bool { return target == ErrInternal }
