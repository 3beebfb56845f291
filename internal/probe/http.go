package probe

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Headers understood by the service.
const (
	headerIdempotencyKey = "Idempotency-Key"
	maxEventLine         = 16 << 20
)

// ErrRejected marks a request the service refused before streaming.
var ErrRejected = errors.New("request rejected")

// HTTPClient wraps http.Client with a per-request timeout.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// NewHTTPClient creates a client for the service at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Health checks GET /healthz.
func (c *HTTPClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

// Analyze posts one analysis and reads its event stream to the end.
func (c *HTTPClient) Analyze(ctx context.Context, key string, body AnalysisRequest) (*Report, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyses", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(headerIdempotencyKey, key)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return ReadStream(resp.Body)
}

// streamLine is the union of every event shape on the stream.
type streamLine struct {
	Type     string  `json:"type"`
	Fraction float64 `json:"fraction"`
	Name     string  `json:"name"`
	Message  string  `json:"message"`
	Results  []Entry `json:"results"`
	Skipped  int     `json:"skipped"`
}

// ReadStream folds an NDJSON event stream into a Report. A stream that
// ends without a terminal event is an error.
func ReadStream(r io.Reader) (*Report, error) {
	rep := &Report{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxEventLine)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev streamLine
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		switch ev.Type {
		case "progress":
			rep.Progress = append(rep.Progress, ev.Fraction)
		case "diagnostic":
			rep.Diagnostics = append(rep.Diagnostics, ev.Name)
		case "completed":
			rep.Completed = true
			rep.Results = ev.Results
			rep.Skipped = ev.Skipped
			return rep, nil
		case "failed":
			rep.Failure = ev.Message
			return rep, nil
		default:
			return nil, fmt.Errorf("unknown event type %q", ev.Type)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read stream: %w", err)
	}
	return nil, errors.New("stream ended without a terminal event")
}
