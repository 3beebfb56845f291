// Package probe exercises a running sketchmatch service end to end. It
// generates batches with one planted match each, submits them concurrently
// and checks that every analysis ranks the planted candidate first.
package probe

import "time"

// Config holds configuration for a probe run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Batches    int           // Number of analyses to submit
	Candidates int           // Candidates per analysis, including the planted match
	Points     int           // Samples in every reference and candidate
	Workers    int           // Number of concurrent submissions
	Timeout    time.Duration // Per-request HTTP timeout
	Method     string        // Scoring method sent with every request
	Resolution int           // Resample resolution; 0 lets the server decide
	Seed       uint64        // Seed for the data generator
	Verbose    bool          // Log every batch outcome
}

// Batch is one generated analysis and the candidate expected to win it.
type Batch struct {
	Key      string
	Request  AnalysisRequest
	Expected string
}

// Point is a reference vertex on the wire.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Input is one candidate on the wire.
type Input struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// AnalysisRequest is the body of POST /analyses.
type AnalysisRequest struct {
	Reference  []Point `json:"reference"`
	Inputs     []Input `json:"inputs"`
	ArrayField string  `json:"array_field"`
	ValueField string  `json:"value_field"`
	Resolution int     `json:"resolution,omitempty"`
	Method     string  `json:"method,omitempty"`
}

// Entry is one ranked result.
type Entry struct {
	Rank  int     `json:"rank"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Report is what one event stream added up to.
type Report struct {
	Progress    []float64
	Diagnostics []string
	Results     []Entry
	Skipped     int
	Completed   bool
	Failure     string
}

// Stats holds probe statistics.
type Stats struct {
	BatchesGenerated int
	BatchesSubmitted int
	BatchesMatched   int
	BatchesMismatch  int
	BatchesFailed    int
	BatchesRejected  int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
