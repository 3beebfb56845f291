package analysis

import (
	"fmt"
	"strings"

	"github.com/okian/sketchmatch/internal/domain/extract"
	"github.com/okian/sketchmatch/internal/domain/model"
	"github.com/okian/sketchmatch/internal/domain/scoring"
)

// Config selects how candidates are compared.
type Config struct {
	// Resolution is the number of points every path is resampled to.
	Resolution int
	// Method combines the distances into a score.
	Method scoring.Method
}

// Request is everything one run needs. It is treated as immutable once
// handed to the controller: Start and the service keep their own Clone, so
// the caller may reuse its slices as soon as the call returns.
type Request struct {
	Reference model.Path
	Inputs    []extract.Input
	Fields    extract.Fields
	Config    Config
}

// Clone returns a copy of req that shares no slices with it.
func (req Request) Clone() Request {
	out := req
	out.Reference = req.Reference.Clone()
	if req.Inputs != nil {
		out.Inputs = append([]extract.Input(nil), req.Inputs...)
	}
	return out
}

// validate checks the request against the controller limits. Any error wraps
// ErrInvalidRequest.
func (c *Controller) validate(req Request) error {
	switch {
	case len(req.Reference) < 2:
		return fmt.Errorf("%w: reference path needs at least 2 points, got %d", ErrInvalidRequest, len(req.Reference))
	case len(req.Inputs) == 0:
		return fmt.Errorf("%w: candidate batch is empty", ErrInvalidRequest)
	case c.maxCandidates > 0 && len(req.Inputs) > c.maxCandidates:
		return fmt.Errorf("%w: %d candidates exceed the limit of %d", ErrInvalidRequest, len(req.Inputs), c.maxCandidates)
	case req.Config.Resolution < 1:
		return fmt.Errorf("%w: resolution must be positive, got %d", ErrInvalidRequest, req.Config.Resolution)
	case c.maxResolution > 0 && req.Config.Resolution > c.maxResolution:
		return fmt.Errorf("%w: resolution %d exceeds the limit of %d", ErrInvalidRequest, req.Config.Resolution, c.maxResolution)
	case strings.TrimSpace(req.Fields.Array) == "":
		return fmt.Errorf("%w: missing array field", ErrInvalidRequest)
	case strings.TrimSpace(req.Fields.Value) == "":
		return fmt.Errorf("%w: missing value field", ErrInvalidRequest)
	case req.Config.Method == nil:
		return fmt.Errorf("%w: missing similarity method", ErrInvalidRequest)
	}
	for i, p := range req.Reference {
		if !p.IsFinite() {
			return fmt.Errorf("%w: reference point %d is not finite", ErrInvalidRequest, i)
		}
	}
	if err := req.Config.Method.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}
