package probe

import (
	"errors"
	"fmt"
)

// ErrMismatch is returned when a planted candidate did not rank first.
var ErrMismatch = errors.New("planted candidate not ranked first")

// Verify checks one report against its batch: the run completed, every
// candidate was ranked, ranks are dense and scores are non-increasing, the
// progress never went backwards and the planted match won.
func Verify(b Batch, rep *Report) error {
	if !rep.Completed {
		return fmt.Errorf("run failed: %s", rep.Failure)
	}
	if got, want := len(rep.Results)+rep.Skipped, len(b.Request.Inputs); got != want {
		return fmt.Errorf("accounted for %d of %d candidates", got, want)
	}
	for i := 1; i < len(rep.Progress); i++ {
		if rep.Progress[i] < rep.Progress[i-1] {
			return fmt.Errorf("progress went from %.3f to %.3f", rep.Progress[i-1], rep.Progress[i])
		}
	}
	for i, e := range rep.Results {
		if e.Rank != i+1 {
			return fmt.Errorf("entry %d has rank %d", i, e.Rank)
		}
		if i > 0 && e.Score > rep.Results[i-1].Score {
			return fmt.Errorf("entry %d scores higher than entry %d", i, i-1)
		}
	}
	if len(rep.Results) == 0 || rep.Results[0].Name != b.Expected {
		top := "<none>"
		if len(rep.Results) > 0 {
			top = rep.Results[0].Name
		}
		return fmt.Errorf("%w: expected %s, got %s", ErrMismatch, b.Expected, top)
	}
	return nil
}
