package repository

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	opListBuildings = "list_buildings"
	opListRequests  = "list_requests"
	opCreateRequest = "create_request"
	opDeleteRequest = "delete_request"
)

var (
	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "croissants",
		Subsystem: "upstream",
		Name:      "requests_total",
		Help:      "Total number of croissant API calls broken down by operation and result.",
	}, []string{"operation", "result"})

	upstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "croissants",
		Subsystem: "upstream",
		Name:      "latency_seconds",
		Help:      "Latency distribution for croissant API calls.",
		Buckets: []float64{
			0.005, 0.01, 0.02, 0.05,
			0.1, 0.2, 0.5,
			1, 2, 5, 10,
		},
	}, []string{"operation", "result"})
)

func observe(op string, err error, elapsed time.Duration) {
	result := resultLabel(err)
	upstreamRequests.WithLabelValues(op, result).Inc()
	upstreamLatency.WithLabelValues(op, result).Observe(elapsed.Seconds())
}

func resultLabel(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &apiErr):
		return "rejected"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	default:
		return "error"
	}
}
