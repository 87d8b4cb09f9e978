package server

import (
	"errors"
	"time"

	"github.com/MeKo-Tech/ctcbeam/internal/ctc"
	"github.com/MeKo-Tech/ctcbeam/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ctcbeam_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ctcbeam_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Decode metrics
	decodeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ctcbeam_decode_requests_total",
			Help: "Total number of decoded matrices",
		},
		[]string{"type", "status"}, // type: single, batch, websocket
	)

	decodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ctcbeam_decode_duration_seconds",
			Help:    "Beam search duration in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 5},
		},
		[]string{"type"},
	)

	decodeTimesteps = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ctcbeam_decode_timesteps",
			Help:    "Number of timesteps per decoded matrix",
			Buckets: []float64{0, 10, 50, 100, 250, 500, 1000, 5000},
		},
	)

	decodeErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ctcbeam_decode_errors_total",
			Help: "Total number of failed decodes by error kind",
		},
		[]string{"kind"},
	)

	// Rate limiting metrics
	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ctcbeam_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"}, // type: minute, hour, requests, data
	)

	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ctcbeam_upload_size_bytes",
			Help:    "Size of request bodies in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024},
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ctcbeam_websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ctcbeam_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: received, sent
	)
)

// recordDecodeSuccess records a successful decode. A zero duration skips the
// latency histogram, which batch requests observe once for the whole batch.
func recordDecodeSuccess(kind string, d time.Duration, res *pipeline.DecodeResult) {
	decodeRequestsTotal.WithLabelValues(kind, "success").Inc()
	if d > 0 {
		decodeDuration.WithLabelValues(kind).Observe(d.Seconds())
	}
	decodeTimesteps.Observe(float64(res.Timesteps))
}

func recordDecodeFailure(kind string, err error) {
	decodeRequestsTotal.WithLabelValues(kind, "error").Inc()
	label := "other"
	var de *ctc.DecodeError
	if errors.As(err, &de) {
		label = de.Kind.String()
	}
	decodeErrorsTotal.WithLabelValues(label).Inc()
}
