package domain

import "time"

// ProbeResult is one stored probe of a URL. Rows are written once and never
// updated.
type ProbeResult struct {
	ID             int64     `json:"id"`
	URL            string    `json:"url"`
	StatusCode     *int      `json:"status_code"`      // nil when no response was received
	ResponseTimeMS *float64  `json:"response_time_ms"` // nil when no response was received
	IsHealthy      bool      `json:"is_healthy"`
	ErrorMessage   *string   `json:"error_message"`
	CreatedAt      time.Time `json:"created_at"`
}

// IsHealthy reports whether a probe that ended with statusCode counts as
// healthy. A nil status code (transport failure) is never healthy.
func IsHealthy(statusCode *int) bool {
	return statusCode != nil && IsHealthyStatus(*statusCode)
}

// IsHealthyStatus is true for 2xx and 3xx.
func IsHealthyStatus(code int) bool {
	return code >= 200 && code < 400
}
