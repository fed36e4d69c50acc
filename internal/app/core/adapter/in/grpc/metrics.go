package grpc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_grpc_requests_total",
			Help: "Total number of ledger RPCs by method and status code",
		},
		[]string{"method", "code"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_grpc_request_duration_seconds",
			Help:    "Duration of ledger RPCs",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 3},
		},
		[]string{"method"},
	)
)
