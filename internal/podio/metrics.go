package podio

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "podio_requests_total",
			Help: "Podio API calls by workspace, operation and HTTP status",
		},
		[]string{"workspace", "op", "status"},
	)
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "podio_request_duration_seconds",
			Help:    "Podio API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"workspace", "op"},
	)
	upsertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "podio_upserts_total",
			Help: "Podio item upserts by workspace and resulting action",
		},
		[]string{"workspace", "action"},
	)
	fieldsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "podio_fields_dropped_total",
			Help: "Canonical values left out of a Podio payload because the workspace could not encode them",
		},
		[]string{"workspace", "field", "reason"},
	)
)
