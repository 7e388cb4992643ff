// Package metrics exposes Prometheus collectors for the reference server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the server collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// WSConnections is the number of open WebSocket connections.
	WSConnections prometheus.Gauge

	// WSAuthenticated is the number of connections that sent a valid token.
	WSAuthenticated prometheus.Gauge

	// FramesPushed counts frames queued for clients.
	// Labels: type (channelCreated|messageSent|error)
	FramesPushed *prometheus.CounterVec

	// FramesDropped counts frames dropped because a client was too slow.
	FramesDropped prometheus.Counter

	// HTTPRequestCounter counts REST requests.
	// Labels: method, route, status_code
	HTTPRequestCounter *prometheus.CounterVec

	// HTTPRequestDuration measures REST request latency in seconds.
	// Labels: method, route
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates the collectors on a private registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		WSConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "channelchat_ws_connections",
			Help: "Current number of open WebSocket connections",
		}),
		WSAuthenticated: factory.NewGauge(prometheus.GaugeOpts{
			Name: "channelchat_ws_authenticated",
			Help: "Current number of authenticated WebSocket connections",
		}),
		FramesPushed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "channelchat_ws_frames_pushed_total",
				Help: "Total number of frames queued for WebSocket clients by type",
			},
			[]string{"type"},
		),
		FramesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "channelchat_ws_frames_dropped_total",
			Help: "Total number of frames dropped for slow WebSocket clients",
		}),
		HTTPRequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "channelchat_http_requests_total",
				Help: "Total number of HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "channelchat_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"method", "route"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ConnectionOpened counts a newly accepted websocket.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

// ConnectionClosed releases a websocket counted by ConnectionOpened.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}

// Authenticated counts a websocket that passed authentication.
func (m *Metrics) Authenticated() {
	if m == nil {
		return
	}
	m.WSAuthenticated.Inc()
}

// AuthenticatedClosed releases a websocket counted by Authenticated.
func (m *Metrics) AuthenticatedClosed() {
	if m == nil {
		return
	}
	m.WSAuthenticated.Dec()
}

// FramePushed records one frame of frameType queued to a client.
func (m *Metrics) FramePushed(frameType string) {
	if m == nil {
		return
	}
	m.FramesPushed.WithLabelValues(frameType).Inc()
}

// FrameDropped records a frame dropped because the client queue was full.
func (m *Metrics) FrameDropped() {
	if m == nil {
		return
	}
	m.FramesDropped.Inc()
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestCounter.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
