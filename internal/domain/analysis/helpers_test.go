package analysis

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/okian/sketchmatch/internal/domain/extract"
	"github.com/okian/sketchmatch/internal/domain/model"
	"github.com/okian/sketchmatch/internal/domain/scoring"
)

var testFields = extract.Fields{Array: "samples", Value: "v"}

// record builds a JSON record with one sample per value.
func record(values ...float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf(`{"t":%d,"v":%g}`, i, v)
	}
	return `{"samples":[` + strings.Join(parts, ",") + `]}`
}

func candidate(name string, values ...float64) extract.Input {
	return extract.Input{Name: name, Content: record(values...)}
}

func newRequest(inputs ...extract.Input) Request {
	return Request{
		Reference: model.Path{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 0}},
		Inputs:    inputs,
		Fields:    testFields,
		Config:    Config{Resolution: 3, Method: scoring.Frechet{}},
	}
}

// drain collects every event of r until its stream closes.
func drain(t *testing.T, r *Run) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-r.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("run %s did not finish", r.ID())
			return events
		}
	}
}

func terminalOf(events []Event) Event {
	for _, ev := range events {
		switch ev.(type) {
		case Completed, Failed:
			return ev
		}
	}
	return nil
}

func progressFractions(events []Event) []float64 {
	var out []float64
	for _, ev := range events {
		if p, ok := ev.(Progress); ok {
			out = append(out, p.Fraction)
		}
	}
	return out
}

// extractorFunc adapts a function to extract.Extractor.
type extractorFunc func(ctx context.Context, in extract.Input, fields extract.Fields) (model.Sequence, error)

func (f extractorFunc) Extract(ctx context.Context, in extract.Input, fields extract.Fields) (model.Sequence, error) {
	return f(ctx, in, fields)
}
