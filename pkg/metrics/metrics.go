package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name
const Namespace = "medflow"

// Plan sources
const (
	SourceHTTP  = "http"
	SourceQueue = "queue"
)

// Outcomes
const (
	OutcomeSuccess     = "success"
	OutcomeInvalid     = "invalid"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

// Metrics holds the service's Prometheus collectors on a private registry
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Planner metrics
	PlansTotal          *prometheus.CounterVec
	PlanShortageLines   prometheus.Counter
	PlanRouteStops      prometheus.Histogram
	StockLookupDuration *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
}

// New creates the collectors and registers them, along with Go runtime and
// process collectors, on a fresh registry
func New(serviceName string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	constLabels := prometheus.Labels{"service": serviceName}

	m := &Metrics{
		serviceName: serviceName,
		registry:    registry,
	}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   Namespace,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: constLabels,
		},
		[]string{"method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   Namespace,
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			ConstLabels: constLabels,
			Buckets:     []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	m.PlansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   Namespace,
			Name:        "plans_total",
			Help:        "Picking plans requested, by source and outcome",
			ConstLabels: constLabels,
		},
		[]string{"source", "outcome"},
	)

	m.PlanShortageLines = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   Namespace,
			Name:        "plan_shortage_lines_total",
			Help:        "Picking lines that could not be fully allocated",
			ConstLabels: constLabels,
		},
	)

	m.PlanRouteStops = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   Namespace,
			Name:        "plan_route_stops",
			Help:        "Number of stops in generated picking routes",
			ConstLabels: constLabels,
			Buckets:     []float64{1, 2, 5, 10, 20, 50, 100, 200},
		},
	)

	m.StockLookupDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   Namespace,
			Name:        "stock_lookup_duration_seconds",
			Help:        "Stock lot lookup duration in seconds",
			ConstLabels: constLabels,
			Buckets:     []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"outcome"},
	)

	m.CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   Namespace,
			Name:        "circuit_breaker_state",
			Help:        "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			ConstLabels: constLabels,
		},
		[]string{"name"},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.PlansTotal,
		m.PlanShortageLines,
		m.PlanRouteStops,
		m.StockLookupDuration,
		m.CircuitBreakerState,
	)

	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler serving the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordPlan records a finished plan with its stop and shortage counts
func (m *Metrics) RecordPlan(source string, stops, shortageLines int) {
	m.PlansTotal.WithLabelValues(source, OutcomeSuccess).Inc()
	m.PlanRouteStops.Observe(float64(stops))
	m.PlanShortageLines.Add(float64(shortageLines))
}

// RecordPlanFailure records a plan that produced no result
func (m *Metrics) RecordPlanFailure(source, outcome string) {
	m.PlansTotal.WithLabelValues(source, outcome).Inc()
}

// RecordStockLookup records one stock lot lookup
func (m *Metrics) RecordStockLookup(outcome string, duration time.Duration) {
	m.StockLookupDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// SetCircuitBreakerState records circuit breaker state
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}
