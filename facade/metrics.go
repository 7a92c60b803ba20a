package facade

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "userdetails",
		Name:      "http_requests_total",
		Help:      "HTTP requests served, by route, method and status code.",
	}, []string{"route", "method", "code"})

	latency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "userdetails",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency, by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	submissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "userdetails",
		Name:      "submissions_total",
		Help:      "storeDetails transactions, by outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(requests, latency, submissions)
}

// statusWriter remembers the status code written.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// instrument records requests and latency per route template.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		route := "unknown"
		if cr := mux.CurrentRoute(r); cr != nil {
			if tpl, err := cr.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		sw := &statusWriter{ResponseWriter: rw, code: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(sw, r)

		latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
		requests.WithLabelValues(route, r.Method, strconv.Itoa(sw.code)).Inc()
	})
}
