package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkcode_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "checkcode_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	rendersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkcode_renders_total",
			Help: "Total number of rendered codes",
		},
		[]string{"result"}, // ok, encoding_error, render_error, error
	)

	renderDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "checkcode_render_duration_seconds",
			Help:    "Time to render a styled code, including self-check",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	scansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkcode_scans_total",
			Help: "Total number of scans by mode and outcome",
		},
		[]string{"mode", "result"}, // mode: image, pdf, camera; result: verified, unverified, no_code, error
	)

	registryOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkcode_registry_operations_total",
			Help: "Registry operations served over HTTP",
		},
		[]string{"op", "result"},
	)

	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "checkcode_ws_connections_active",
			Help: "Number of open camera websocket sessions",
		},
	)

	rateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkcode_rate_limit_rejections_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"type"}, // minute, hour, requests, data
	)
)
