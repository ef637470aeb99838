package probe

import (
	"context"
	"time"

	"github.com/hamed0406/apimonitor/internal/domain"
)

// Outcome is the result of a single probe: either Success or Failure.
type Outcome interface {
	// Healthy applies the health rule to the outcome.
	Healthy() bool
	outcome()
}

// Success means an HTTP response was received, whatever its status.
type Success struct {
	StatusCode int
	Latency    time.Duration
}

// Failure means no response was received (DNS, connect, TLS, timeout,
// malformed URL).
type Failure struct {
	Message string
}

func (s Success) Healthy() bool { return domain.IsHealthyStatus(s.StatusCode) }
func (Failure) Healthy() bool   { return false }

func (Success) outcome() {}
func (Failure) outcome() {}

// LatencyMS is the latency as fractional milliseconds.
func (s Success) LatencyMS() float64 {
	return float64(s.Latency) / float64(time.Millisecond)
}

// Checker performs exactly one probe of the given URL.
type Checker interface {
	Check(ctx context.Context, target string) Outcome
}
