package probe

import "time"

// Defaults applied by Normalize.
const (
	DefaultBaseURL    = "http://localhost:9080"
	DefaultBatches    = 20
	DefaultCandidates = 25
	DefaultPoints     = 48
	DefaultTimeout    = 30 * time.Second
	DefaultMethod     = "combined"
)

// Record layout of generated candidates.
const (
	arrayField = "samples"
	valueField = "v"
)

// Generator shape constants.
const (
	maxHarmonics  = 3
	decoyNoise    = 0.35
	amplitudeBase = 0.5
)
