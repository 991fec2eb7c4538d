// Package metrics exposes Prometheus collectors for both transports.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/and161185/authcore/internal/errs"
)

const namespace = "authcore"

// Metrics owns a private registry so tests can create as many as they like.
type Metrics struct {
	reg      *prometheus.Registry
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	auth     *prometheus.CounterVec
}

// New builds the collectors and registers them together with Go and process stats.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Handled requests by transport, route and status.",
		}, []string{"transport", "route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Request latency by transport and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"transport", "route"}),
		auth: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_operations_total",
			Help:      "Session lifecycle operations by outcome.",
		}, []string{"op", "result"}),
	}
	m.reg.MustRegister(
		m.requests,
		m.latency,
		m.auth,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRequest records one finished request.
func (m *Metrics) ObserveRequest(transport, route, code string, d time.Duration) {
	m.requests.WithLabelValues(transport, route, code).Inc()
	m.latency.WithLabelValues(transport, route).Observe(d.Seconds())
}

// AuthOp records the outcome of a register/login/refresh/logout call.
func (m *Metrics) AuthOp(op string, err error) {
	m.auth.WithLabelValues(op, Result(err)).Inc()
}

// Result maps an error to a short, bounded label value.
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	switch errs.Kind(err) {
	case errs.ErrInvalidInput:
		return "input"
	case errs.ErrUnauthorized:
		return "auth"
	case errs.ErrAlreadyExists, errs.ErrVersionConflict:
		return "conflict"
	case errs.ErrNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
