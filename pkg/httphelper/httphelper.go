package httphelper

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
)

// TraceResponseWriter records the status and size of a response
type TraceResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	size        int
	wroteHeader bool
}

func NewTraceResponseWriter(w http.ResponseWriter) *TraceResponseWriter {
	return &TraceResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

// WriteHeader writes the header to the response. Only the first status is recorded.
func (w *TraceResponseWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.statusCode = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// Write writes the body of the response
func (w *TraceResponseWriter) Write(data []byte) (int, error) {
	w.wroteHeader = true
	size, err := w.ResponseWriter.Write(data)
	w.size += size
	return size, err
}

func (w *TraceResponseWriter) StatusCode() int { return w.statusCode }
func (w *TraceResponseWriter) Size() int       { return w.size }

// Metrics holds the request metrics of a server
type Metrics struct {
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec
	ErrorRate           *prometheus.CounterVec
}

// NewMetrics creates the metrics under namespace and registers them with registerer
func NewMetrics(namespace string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "http request duration in seconds",
				Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"status", "path"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_response_size_bytes",
				Help:      "http response size in bytes",
				Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
			},
			[]string{"status", "path"},
		),
		ErrorRate: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "error_rate",
				Help:      "number of errors, sorted by label/type",
			},
			[]string{"error"},
		),
	}
	registerer.MustRegister(m.HTTPRequestDuration, m.HTTPResponseSize, m.ErrorRate)
	return m
}

// RecordError counts an error of the given kind
func (m *Metrics) RecordError(label string) {
	if m == nil || m.ErrorRate == nil {
		return
	}
	m.ErrorRate.With(prometheus.Labels{"error": label}).Inc()
}

// HandleWithMetricsCustomTimer observes the duration and size of every response of h under the
// route label. timeSince is replaceable for tests.
func (m *Metrics) HandleWithMetricsCustomTimer(route string, h http.HandlerFunc, timeSince func(time.Time) time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			h(w, r)
			return
		}
		t := time.Now()
		trw := NewTraceResponseWriter(w)
		h(trw, r)
		latency := timeSince(t)
		labels := prometheus.Labels{"status": strconv.Itoa(trw.statusCode), "path": route}
		if m.HTTPRequestDuration != nil {
			m.HTTPRequestDuration.With(labels).Observe(latency.Seconds())
		}
		if m.HTTPResponseSize != nil {
			m.HTTPResponseSize.With(labels).Observe(float64(trw.size))
		}
	}
}

// HandleWithMetrics is HandleWithMetricsCustomTimer measuring wall time
func (m *Metrics) HandleWithMetrics(route string, h http.HandlerFunc) http.HandlerFunc {
	return m.HandleWithMetricsCustomTimer(route, h, time.Since)
}

// WithRequestLogging logs every response of h with a request ID. Server errors are logged at
// error level, everything else at debug.
func WithRequestLogging(logger logrus.FieldLogger, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := logger.WithFields(logrus.Fields{"UID": uuid.NewV1().String(), "path": r.URL.Path, "method": r.Method})
		trw := NewTraceResponseWriter(w)
		start := time.Now()
		h(trw, r)
		l = l.WithFields(logrus.Fields{
			"status":   trw.statusCode,
			"duration": time.Since(start).String(),
		})
		logFunc := l.Debug
		if trw.statusCode > 499 {
			logFunc = l.Error
		}
		logFunc("responded")
	}
}
