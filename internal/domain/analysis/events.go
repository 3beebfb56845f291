package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/sketchmatch/internal/domain/model"
)

// Event kinds as they appear on the wire.
const (
	KindProgress   = "progress"
	KindDiagnostic = "diagnostic"
	KindCompleted  = "completed"
	KindFailed     = "failed"
)

// Event is one message on a run's event stream: Progress, Diagnostic,
// Completed or Failed. Completed and Failed are terminal and at most one of
// them is delivered per run.
type Event interface {
	Kind() string
	isEvent()
}

// Progress reports the fraction of candidates processed so far.
type Progress struct {
	Fraction float64
	Status   string
}

// Diagnostic reports a candidate that was skipped.
type Diagnostic struct {
	Name    string
	Message string
}

// Completed carries the ranked results of a finished run.
type Completed struct {
	Results []model.Result
	// Skipped counts candidates that failed individually and were excluded.
	Skipped int
}

// Failed reports a fatal run failure. No results accompany it.
type Failed struct {
	Message string
	Trace   string
}

func (Progress) Kind() string   { return KindProgress }
func (Diagnostic) Kind() string { return KindDiagnostic }
func (Completed) Kind() string  { return KindCompleted }
func (Failed) Kind() string     { return KindFailed }

func (Progress) isEvent()   {}
func (Diagnostic) isEvent() {}
func (Completed) isEvent()  {}
func (Failed) isEvent()     {}

// Terminal converts the return values of Controller.Execute into the
// terminal event to deliver. It reports false when the run was cancelled, in
// which case nothing is delivered.
func Terminal(done Completed, err error) (Event, bool) {
	if err == nil {
		return done, true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, false
	}
	var fe *FailureError
	if errors.As(err, &fe) {
		return Failed{Message: fe.Error(), Trace: fe.Trace}, true
	}
	return Failed{Message: err.Error()}, true
}

func progressStatus(processed, total int) string {
	if processed == 0 {
		return fmt.Sprintf("starting analysis of %d candidates", total)
	}
	return fmt.Sprintf("scored %d of %d candidates", processed, total)
}
