package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	service "github.com/okian/sketchmatch/internal/app"
	"github.com/okian/sketchmatch/internal/domain/analysis"
	"github.com/okian/sketchmatch/internal/domain/extract"
	"github.com/okian/sketchmatch/internal/domain/model"
	"github.com/okian/sketchmatch/internal/domain/scoring"
	"github.com/okian/sketchmatch/internal/domain/types"
	"github.com/okian/sketchmatch/pkg/logger"
)

// Header names used by POST /analyses.
const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderRunID          = "X-Run-ID"
	contentTypeNDJSON    = "application/x-ndjson"
	defaultMethodWeight  = 0.5
)

// analysisRequest mirrors the OpenAPI schema for POST /analyses.
type analysisRequest struct {
	Reference     []model.Point   `json:"reference"`
	Inputs        []extract.Input `json:"inputs"`
	ArrayField    string          `json:"array_field"`
	ValueField    string          `json:"value_field"`
	Resolution    int             `json:"resolution"`
	Method        string          `json:"method"`
	FrechetWeight *float64        `json:"frechet_weight"`
	DTWWeight     *float64        `json:"dtw_weight"`
}

// toRequest builds the engine request. Only the method is checked here;
// everything else is validated by the controller and reported on the stream.
func (a *analysisRequest) toRequest(defaultResolution int) (analysis.Request, error) {
	fw, dw := defaultMethodWeight, defaultMethodWeight
	if a.FrechetWeight != nil {
		fw = *a.FrechetWeight
	}
	if a.DTWWeight != nil {
		dw = *a.DTWWeight
	}
	name := a.Method
	if strings.TrimSpace(name) == "" {
		name = scoring.MethodCombined
	}
	method, err := scoring.ParseMethod(name, fw, dw)
	if err != nil {
		return analysis.Request{}, err
	}
	resolution := a.Resolution
	if resolution == 0 {
		resolution = defaultResolution
	}
	return analysis.Request{
		Reference: model.Path(a.Reference),
		Inputs:    a.Inputs,
		Fields:    extract.Fields{Array: a.ArrayField, Value: a.ValueField},
		Config:    analysis.Config{Resolution: resolution, Method: method},
	}, nil
}

// Wire shapes of the NDJSON event stream.
type progressMessage struct {
	Type     string  `json:"type"`
	Fraction float64 `json:"fraction"`
	Status   string  `json:"status"`
}

type diagnosticMessage struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

type completedMessage struct {
	Type    string        `json:"type"`
	Results []types.Entry `json:"results"`
	Skipped int           `json:"skipped"`
}

type failedMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Trace   string `json:"trace,omitempty"`
}

func encodeEvent(ev analysis.Event) any {
	switch e := ev.(type) {
	case analysis.Progress:
		return progressMessage{Type: e.Kind(), Fraction: e.Fraction, Status: e.Status}
	case analysis.Diagnostic:
		return diagnosticMessage{Type: e.Kind(), Name: e.Name, Message: e.Message}
	case analysis.Completed:
		return completedMessage{Type: e.Kind(), Results: types.Ranked(e.Results), Skipped: e.Skipped}
	case analysis.Failed:
		return failedMessage{Type: e.Kind(), Message: e.Message, Trace: e.Trace}
	default:
		return failedMessage{Type: analysis.KindFailed, Message: "unknown event"}
	}
}

// AnalysesHandler handles analysis requests.
type AnalysesHandler struct {
	deps              Dependencies
	defaultResolution int
	logger            logger.Logger
}

// NewAnalysesHandler creates a new analyses handler.
func NewAnalysesHandler(deps Dependencies, defaultResolution int, l logger.Logger) *AnalysesHandler {
	return &AnalysesHandler{deps: deps, defaultResolution: defaultResolution, logger: l}
}

// HandlePostAnalysis handles POST /analyses requests. The response streams
// one JSON event per line until the run ends; the client closing the
// connection cancels the run.
func (h *AnalysesHandler) HandlePostAnalysis(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_analysis"
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var body analysisRequest
	if err := decodeJSON(op, r, &body); err != nil {
		writeDecodeError(w, err)
		return
	}
	req, err := body.toRequest(h.defaultResolution)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	ctx := r.Context()
	run, err := h.deps.Submit(ctx, strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey)), req)
	switch {
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
		return
	case errors.Is(err, service.ErrDuplicate):
		writeError(w, http.StatusConflict, "duplicate", WrapKind(op, ErrConflict, err))
		return
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	}

	w.Header().Set("Content-Type", contentTypeNDJSON)
	w.Header().Set(HeaderRunID, run.ID())
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	enc := json.NewEncoder(w)
	for ev := range run.Events() {
		if err := enc.Encode(encodeEvent(ev)); err != nil {
			h.logger.Debug(ctx, "client went away", logger.String("run", run.ID()), logger.Error(err))
			run.Cancel()
			continue
		}
		_ = rc.Flush()
	}
}
