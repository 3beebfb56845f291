package extract

import "errors"

// Sentinel errors for this package. These allow errors.Is from callers.
var (
	ErrParse        = errors.New("parse record failed")
	ErrFieldMissing = errors.New("field missing")
)
