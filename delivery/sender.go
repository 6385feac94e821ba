package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxResponseBody = 1024 // 1KB cap on captured response bodies

// DefaultTimeout bounds each outbound request.
const DefaultTimeout = 10 * time.Second

// Result holds the outcome of a single delivery attempt.
type Result struct {
	StatusCode int
	Error      string
	Response   string
	LatencyMs  int
}

// Sender performs HTTP requests. It is safe for concurrent use; all workers
// share its client and connection pool.
type Sender struct {
	client *http.Client
}

// NewSender creates a sender with the given HTTP timeout. A non-positive
// timeout uses DefaultTimeout.
func NewSender(timeout time.Duration) *Sender {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Sender{
		client: &http.Client{Timeout: timeout},
	}
}

// Send performs req and returns the result.
func (s *Sender) Send(ctx context.Context, req *Request) Result {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return Result{Error: fmt.Sprintf("create request: %v", err)}
	}

	httpReq.Header.Set("User-Agent", "resthook/1.0")
	if req.Event != "" {
		httpReq.Header.Set("X-Hook-Event", req.Event)
	}
	if !req.ID.IsNil() {
		httpReq.Header.Set("X-Hook-Delivery", req.ID.String())
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := s.client.Do(httpReq) //nolint:gosec // G704: the target is a subscriber-registered URL.
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return Result{
			Error:     err.Error(),
			LatencyMs: int(latency),
		}
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if readErr != nil {
		return Result{
			StatusCode: resp.StatusCode,
			Error:      fmt.Sprintf("read response: %v", readErr),
			LatencyMs:  int(latency),
		}
	}

	return Result{
		StatusCode: resp.StatusCode,
		Response:   string(respBody),
		LatencyMs:  int(latency),
	}
}
