package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics recorded by the gateway.
// A nil *Metrics records nothing.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ActiveExchanges prometheus.Gauge
	ExchangeBytes   *prometheus.CounterVec
	PolicyDenials   *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "packway",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "code"},
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "packway",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8), // 5ms to ~82s
			},
			[]string{"method"},
		),
		ActiveExchanges: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "packway",
				Name:      "active_exchanges",
				Help:      "Number of git processes currently serving a request",
			},
		),
		ExchangeBytes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "packway",
				Name:      "exchange_bytes_total",
				Help:      "Bytes relayed between clients and git",
			},
			[]string{"service", "direction"}, // direction=in/out
		),
		PolicyDenials: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "packway",
				Name:      "policy_denials_total",
				Help:      "Requests refused by the access policy",
			},
			[]string{"service"},
		),
	}
}

// MetricsMiddleware records request count and duration.
func MetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if metrics == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			metrics.RequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
			metrics.RequestsTotal.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
		})
	}
}

func (m *Metrics) exchangeStarted() {
	if m != nil {
		m.ActiveExchanges.Inc()
	}
}

func (m *Metrics) exchangeFinished(service string, in, out int64) {
	if m == nil {
		return
	}
	m.ActiveExchanges.Dec()
	m.ExchangeBytes.WithLabelValues(service, "in").Add(float64(in))
	m.ExchangeBytes.WithLabelValues(service, "out").Add(float64(out))
}

func (m *Metrics) denied(service string) {
	if m != nil {
		m.PolicyDenials.WithLabelValues(service).Inc()
	}
}
