package domain

import "math"

// Aggregates are the raw numbers a store computes over all results.
// Response time figures only consider rows that have a response time.
type Aggregates struct {
	Total   int
	Healthy int
	AvgMS   *float64
	MinMS   *float64
	MaxMS   *float64
	TopURL  *string
}

type Stats struct {
	TotalChecks           int      `json:"total_checks"`
	HealthyCount          int      `json:"healthy_count"`
	UnhealthyCount        int      `json:"unhealthy_count"`
	UptimePercentage      float64  `json:"uptime_percentage"`
	AverageResponseTimeMS *float64 `json:"average_response_time_ms"`
	FastestResponseMS     *float64 `json:"fastest_response_ms"`
	SlowestResponseMS     *float64 `json:"slowest_response_ms"`
	MostMonitoredURL      *string  `json:"most_monitored_url"`
}

// NewStats derives the public statistics from store aggregates. Percentages
// and times are rounded to two decimals.
func NewStats(a Aggregates) Stats {
	if a.Total == 0 {
		return Stats{}
	}
	return Stats{
		TotalChecks:           a.Total,
		HealthyCount:          a.Healthy,
		UnhealthyCount:        a.Total - a.Healthy,
		UptimePercentage:      round2(float64(a.Healthy) / float64(a.Total) * 100),
		AverageResponseTimeMS: round2p(a.AvgMS),
		FastestResponseMS:     round2p(a.MinMS),
		SlowestResponseMS:     round2p(a.MaxMS),
		MostMonitoredURL:      a.TopURL,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round2p(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := round2(*v)
	return &r
}
