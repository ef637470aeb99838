package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// DefaultTimeout bounds a single probe end to end.
const DefaultTimeout = 10 * time.Second

// maxBodyRead caps how much of a response body is drained before the clock
// stops.
const maxBodyRead = 1 << 20

type HTTPChecker struct {
	Client  *http.Client
	Timeout time.Duration
}

func NewHTTPChecker(timeout time.Duration) *HTTPChecker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPChecker{
		Client:  &http.Client{Timeout: timeout},
		Timeout: timeout,
	}
}

// Check issues one GET against target. Latency covers everything from just
// before the request is sent (DNS, connect and TLS included) until the body
// has been drained. Redirects are followed by the client.
func (h *HTTPChecker) Check(ctx context.Context, target string) Outcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Failure{Message: "request error: " + err.Error()}
	}

	start := time.Now()
	resp, err := h.Client.Do(req)
	if err != nil {
		return h.failure(err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyRead)); err != nil {
		return h.failure(err)
	}
	return Success{StatusCode: resp.StatusCode, Latency: time.Since(start)}
}

func (h *HTTPChecker) failure(err error) Failure {
	if isTimeout(err) {
		return Failure{Message: fmt.Sprintf("request timeout (> %s)", h.Timeout)}
	}
	return Failure{Message: "request error: " + err.Error()}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
