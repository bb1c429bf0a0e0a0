package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics live on a per-service registry so tests can build many services.
type metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	refreshes       *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	messages        *prometheus.CounterVec
	projectedNext   prometheus.Gauge
	conversations   prometheus.Gauge
	subscribers     prometheus.Gauge
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &metrics{
		registry: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "finassist_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "finassist_http_request_duration_seconds",
			Help:    "HTTP request latency by route, including streamed replies.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "finassist_forecast_refreshes_total",
			Help: "Background forecast refreshes by result.",
		}, []string{"result"}),
		refreshDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "finassist_forecast_refresh_duration_seconds",
			Help:    "Time to load, fit and score the expense history.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		messages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "finassist_chat_messages_total",
			Help: "Chat messages by classified intent.",
		}, []string{"intent"}),
		projectedNext: f.NewGauge(prometheus.GaugeOpts{
			Name: "finassist_projected_next_month_expense",
			Help: "Projected total expense for the next month.",
		}),
		conversations: f.NewGauge(prometheus.GaugeOpts{
			Name: "finassist_conversations",
			Help: "Conversations held in memory.",
		}),
		subscribers: f.NewGauge(prometheus.GaugeOpts{
			Name: "finassist_event_subscribers",
			Help: "Connected /v1/events subscribers.",
		}),
	}
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE handlers working behind the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// instrument is router middleware recording per-route counts and latency.
func (m *metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unmatched"
		if cr := mux.CurrentRoute(r); cr != nil {
			if tpl, err := cr.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		m.requests.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
