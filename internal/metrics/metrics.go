package metrics

import (
	"net/http"
	"strconv"

	"toolgate/internal/oauthproxy"
	"toolgate/internal/router"
	"toolgate/internal/session"

	"github.com/felixge/httpsnoop"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "toolgate"

// Metrics holds the collectors of one server instance.
type Metrics struct {
	registry *prometheus.Registry

	activeSessions   *prometheus.GaugeVec
	sessionsOpened   *prometheus.CounterVec
	routingRejected  *prometheus.CounterVec
	upstreamCalls    *prometheus.CounterVec
	requestDurations *prometheus.HistogramVec
	requestsTotal    *prometheus.CounterVec
}

var (
	_ session.Observer            = (*Metrics)(nil)
	_ router.Observer             = (*Metrics)(nil)
	_ oauthproxy.UpstreamObserver = (*Metrics)(nil)
)

// New creates and registers all collectors, including the Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		activeSessions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of open sessions per binding.",
		}, []string{"binding"}),
		sessionsOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_opened_total",
			Help:      "Sessions opened per binding.",
		}, []string{"binding"}),
		routingRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routing_rejections_total",
			Help:      "Requests rejected by the session router.",
		}, []string{"binding", "reason"}),
		upstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oauth_upstream_calls_total",
			Help:      "Calls to the upstream identity provider by operation and outcome.",
		}, []string{"operation", "outcome"}),
		requestDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"handler", "method"}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by handler, method and status code.",
		}, []string{"handler", "method", "code"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.activeSessions,
		m.sessionsOpened,
		m.routingRejected,
		m.upstreamCalls,
		m.requestDurations,
		m.requestsTotal,
	)

	for _, b := range session.Bindings {
		m.activeSessions.WithLabelValues(string(b))
	}
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) SessionOpened(b session.Binding) {
	m.activeSessions.WithLabelValues(string(b)).Inc()
	m.sessionsOpened.WithLabelValues(string(b)).Inc()
}

func (m *Metrics) SessionClosed(b session.Binding) {
	m.activeSessions.WithLabelValues(string(b)).Dec()
}

func (m *Metrics) RoutingRejected(b session.Binding, reason string) {
	m.routingRejected.WithLabelValues(string(b), reason).Inc()
}

func (m *Metrics) UpstreamCall(operation, outcome string) {
	m.upstreamCalls.WithLabelValues(operation, outcome).Inc()
}

// Instrument records request counts and durations of next under the handler
// label name. Long-lived event streams are counted when they end.
func (m *Metrics) Instrument(name string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snoop := httpsnoop.CaptureMetrics(next, w, r)
		m.requestsTotal.WithLabelValues(name, r.Method, strconv.Itoa(snoop.Code)).Inc()
		m.requestDurations.WithLabelValues(name, r.Method).Observe(snoop.Duration.Seconds())
	})
}
