package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors exported by the service. A nil *Metrics is
// valid and records nothing, which keeps tests free of registry setup.
type Metrics struct {
	Registry *prometheus.Registry

	Evaluations      *prometheus.CounterVec
	CandidateSkips   prometheus.Counter
	BulkOutcomes     *prometheus.CounterVec
	RoutingRequests  *prometheus.CounterVec
	RoutingFallbacks prometheus.Counter
	RoutingLatency   *prometheus.HistogramVec
	RouteCache       *prometheus.CounterVec
	TollMatches      prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_evaluations_total",
			Help: "Shipment evaluations by outcome.",
		}, []string{"outcome"}),
		CandidateSkips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_candidate_skips_total",
			Help: "Candidates skipped because no route could be obtained.",
		}),
		BulkOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_bulk_outcomes_total",
			Help: "Per-shipment outcomes of bulk processing.",
		}, []string{"status"}),
		RoutingRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "routing_requests_total",
			Help: "Routing provider requests by method and outcome.",
		}, []string{"method", "outcome"}),
		RoutingFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "routing_fallbacks_total",
			Help: "Routing lookups that fell back to the body-encoded request.",
		}),
		RoutingLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "routing_request_duration_seconds",
			Help:    "Routing provider request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		RouteCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "route_cache_lookups_total",
			Help: "Route cache lookups by result.",
		}, []string{"result"}),
		TollMatches: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "toll_matched_stations",
			Help:    "Toll stations attributed per route.",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32},
		}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Evaluations,
		m.CandidateSkips,
		m.BulkOutcomes,
		m.RoutingRequests,
		m.RoutingFallbacks,
		m.RoutingLatency,
		m.RouteCache,
		m.TollMatches,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) ObserveEvaluation(outcome string) {
	if m == nil {
		return
	}
	m.Evaluations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveSkip() {
	if m == nil {
		return
	}
	m.CandidateSkips.Inc()
}

func (m *Metrics) ObserveBulk(status string) {
	if m == nil {
		return
	}
	m.BulkOutcomes.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveRouting(method, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.RoutingRequests.WithLabelValues(method, outcome).Inc()
	m.RoutingLatency.WithLabelValues(method).Observe(seconds)
}

func (m *Metrics) ObserveFallback() {
	if m == nil {
		return
	}
	m.RoutingFallbacks.Inc()
}

func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.RouteCache.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveTollMatches(n int) {
	if m == nil {
		return
	}
	m.TollMatches.Observe(float64(n))
}
