package probe

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"
)

// Generator produces batches. A batch's reference is a short sum of
// sinusoids sampled at x = 0..points-1; the planted candidate carries the
// same values, so it shares the reference frame exactly. Decoys are
// different curves with noise on top.
type Generator struct {
	rng        *rand.Rand
	points     int
	candidates int
	method     string
	resolution int
}

// NewGenerator creates a generator for cfg. Equal seeds give equal curves.
func NewGenerator(cfg Config) *Generator {
	return &Generator{
		rng:        rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		points:     cfg.Points,
		candidates: cfg.Candidates,
		method:     cfg.Method,
		resolution: cfg.Resolution,
	}
}

// Batch generates the next batch. The planted candidate sits at a random
// position among the decoys.
func (g *Generator) Batch() (Batch, error) {
	ref := g.curve()
	reference := make([]Point, len(ref))
	for i, y := range ref {
		reference[i] = Point{X: float64(i), Y: y}
	}

	expected := "match-" + uuid.NewString()
	planted := g.rng.IntN(g.candidates)
	inputs := make([]Input, 0, g.candidates)
	for i := 0; i < g.candidates; i++ {
		name, values := "decoy-"+uuid.NewString(), g.decoy()
		if i == planted {
			name, values = expected, ref
		}
		content, err := encodeRecord(values)
		if err != nil {
			return Batch{}, fmt.Errorf("encode %s: %w", name, err)
		}
		inputs = append(inputs, Input{Name: name, Content: content})
	}

	return Batch{
		Key:      uuid.NewString(),
		Expected: expected,
		Request: AnalysisRequest{
			Reference:  reference,
			Inputs:     inputs,
			ArrayField: arrayField,
			ValueField: valueField,
			Resolution: g.resolution,
			Method:     g.method,
		},
	}, nil
}

// curve samples a random sum of sinusoids.
func (g *Generator) curve() []float64 {
	harmonics := 1 + g.rng.IntN(maxHarmonics)
	amps := make([]float64, harmonics)
	phases := make([]float64, harmonics)
	for h := range amps {
		amps[h] = amplitudeBase + g.rng.Float64()
		phases[h] = g.rng.Float64() * 2 * math.Pi
	}
	out := make([]float64, g.points)
	for i := range out {
		t := float64(i) / float64(g.points-1)
		for h := range amps {
			out[i] += amps[h] * math.Sin(2*math.Pi*float64(h+1)*t+phases[h])
		}
	}
	return out
}

func (g *Generator) decoy() []float64 {
	out := g.curve()
	for i := range out {
		out[i] += (g.rng.Float64()*2 - 1) * decoyNoise
	}
	return out
}

type sample struct {
	T int     `json:"t"`
	V float64 `json:"v"`
}

func encodeRecord(values []float64) (string, error) {
	samples := make([]sample, len(values))
	for i, v := range values {
		samples[i] = sample{T: i, V: v}
	}
	data, err := json.Marshal(map[string][]sample{arrayField: samples})
	if err != nil {
		return "", err
	}
	return string(data), nil
}
