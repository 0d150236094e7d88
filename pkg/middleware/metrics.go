package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics holds the per-route request collectors.
type HTTPMetrics struct {
	service  string
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	size     *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// NewHTTPMetrics creates the collectors and registers them with reg.
func NewHTTPMetrics(reg prometheus.Registerer, service string) (*HTTPMetrics, error) {
	m := &HTTPMetrics{
		service: service,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"service", "method", "path", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"service", "method", "path"}),
		// Image responses dominate the payload sizes.
		size: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response body size in bytes",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		}, []string{"service", "path"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "http_requests_in_flight",
			Help:        "Current number of HTTP requests being served",
			ConstLabels: prometheus.Labels{"service": service},
		}),
	}

	for _, c := range []prometheus.Collector{m.requests, m.duration, m.size, m.inFlight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler returns the middleware. Paths are labelled with the chi route
// pattern so ids do not explode cardinality.
func (m *HTTPMetrics) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		rec := newStatusRecorder(w)
		next.ServeHTTP(rec, r)

		route := "unknown"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}

		m.requests.WithLabelValues(m.service, r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.duration.WithLabelValues(m.service, r.Method, route).Observe(time.Since(start).Seconds())
		m.size.WithLabelValues(m.service, route).Observe(float64(rec.bytes))
	})
}
