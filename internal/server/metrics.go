package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ChicagoDave/feasibility/pkg/optimizer"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

type metrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	solves          *prometheus.CounterVec
	repairs         prometheus.Histogram
	climbPasses     prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feasibility",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "feasibility",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		solves: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feasibility",
			Name:      "solves_total",
			Help:      "Completed solves by feasibility outcome.",
		}, []string{"feasible"}),
		repairs: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "feasibility",
			Name:      "repair_iterations",
			Help:      "Repair iterations used per solve.",
			Buckets:   prometheus.LinearBuckets(0, 5, 7),
		}),
		climbPasses: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "feasibility",
			Name:      "climb_passes",
			Help:      "Hill-climb passes used per solve.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 9),
		}),
	}
}

func (m *metrics) observeSolve(res *optimizer.Result) {
	m.solves.WithLabelValues(strconv.FormatBool(res.Feasible)).Inc()
	m.repairs.Observe(float64(res.RepairIterations))
	m.climbPasses.Observe(float64(res.ClimbIterations))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// handle registers h under pattern, recording request count and latency
// with the pattern as the route label.
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		s.metrics.requests.WithLabelValues(pattern, strconv.Itoa(rec.status)).Inc()
		s.metrics.requestDuration.WithLabelValues(pattern).Observe(time.Since(start).Seconds())
	})
}

// withRequestID assigns every request an ID, echoes it in the response and
// attaches a logger carrying it to the request context.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		log := s.log.WithValues("requestID", id, "method", r.Method, "path", r.URL.Path)
		log.V(1).Info("Request received")
		next.ServeHTTP(w, r.WithContext(logr.NewContext(r.Context(), log)))
	})
}
