package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	retrievalRequestsTotal *prometheus.CounterVec
	retrievalHitTotal      *prometheus.CounterVec
	retrievalNoMatchTotal  *prometheus.CounterVec
	retrievalChunks        *prometheus.HistogramVec
	retrievalDuration      *prometheus.HistogramVec

	chatStreamsTotal   *prometheus.CounterVec
	chatToolRounds     *prometheus.HistogramVec
	chatToolCallsTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docchat",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docchat",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docchat",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	retrievalRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docchat",
			Subsystem: "retrieval",
			Name:      "requests_total",
			Help:      "Total hybrid retrieval runs.",
		},
		[]string{"service"},
	)
	retrievalHitTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docchat",
			Subsystem: "retrieval",
			Name:      "hit_total",
			Help:      "Total retrieval runs with at least one candidate.",
		},
		[]string{"service"},
	)
	retrievalNoMatchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docchat",
			Subsystem: "retrieval",
			Name:      "no_match_total",
			Help:      "Total retrieval runs without candidates.",
		},
		[]string{"service"},
	)
	retrievalChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docchat",
			Subsystem: "retrieval",
			Name:      "retrieved_chunks",
			Help:      "Distribution of retrieved chunks per run.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	retrievalDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docchat",
			Subsystem: "retrieval",
			Name:      "duration_seconds",
			Help:      "Hybrid retrieval duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	chatStreamsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docchat",
			Subsystem: "chat",
			Name:      "streams_total",
			Help:      "Total completed chat streams by status.",
		},
		[]string{"service", "status"},
	)
	chatToolRounds := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docchat",
			Subsystem: "chat",
			Name:      "tool_rounds",
			Help:      "Distribution of tool rounds per chat stream.",
			Buckets:   []float64{0, 1, 2, 3},
		},
		[]string{"service"},
	)
	chatToolCallsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docchat",
			Subsystem: "chat",
			Name:      "tool_calls_total",
			Help:      "Total executed tool calls by tool and status.",
		},
		[]string{"service", "tool", "status"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		retrievalRequestsTotal,
		retrievalHitTotal,
		retrievalNoMatchTotal,
		retrievalChunks,
		retrievalDuration,
		chatStreamsTotal,
		chatToolRounds,
		chatToolCallsTotal,
	)

	return &HTTPServerMetrics{
		registry:               registry,
		requestTotal:           requestTotal,
		requestDuration:        requestDuration,
		requestInFlight:        requestInFlight,
		retrievalRequestsTotal: retrievalRequestsTotal,
		retrievalHitTotal:      retrievalHitTotal,
		retrievalNoMatchTotal:  retrievalNoMatchTotal,
		retrievalChunks:        retrievalChunks,
		retrievalDuration:      retrievalDuration,
		chatStreamsTotal:       chatStreamsTotal,
		chatToolRounds:         chatToolRounds,
		chatToolCallsTotal:     chatToolCallsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	case strings.HasPrefix(path, "/v1/threads/") && strings.HasSuffix(path, "/messages"):
		return "/v1/threads/{thread_id}/messages"
	case strings.HasPrefix(path, "/v1/threads/") && strings.HasSuffix(path, "/chat"):
		return "/v1/threads/{thread_id}/chat"
	case strings.HasPrefix(path, "/v1/threads/"):
		return "/v1/threads/{thread_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordRetrieval(service string, candidateCount int, duration time.Duration) {
	m.retrievalRequestsTotal.WithLabelValues(service).Inc()
	m.retrievalChunks.WithLabelValues(service).Observe(float64(candidateCount))
	m.retrievalDuration.WithLabelValues(service).Observe(duration.Seconds())

	if candidateCount > 0 {
		m.retrievalHitTotal.WithLabelValues(service).Inc()
		return
	}
	m.retrievalNoMatchTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordChatStream(service, status string, toolRounds int) {
	if status == "" {
		status = "unknown"
	}
	m.chatStreamsTotal.WithLabelValues(service, status).Inc()
	m.chatToolRounds.WithLabelValues(service).Observe(float64(toolRounds))
}

func (m *HTTPServerMetrics) RecordToolCall(service, tool, status string) {
	if tool == "" {
		tool = "unknown"
	}
	if status == "" {
		status = "unknown"
	}
	m.chatToolCallsTotal.WithLabelValues(service, tool, status).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
