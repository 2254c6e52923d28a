package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors holds the Prometheus metrics the service exports.
type Collectors struct {
	Registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	planMutationsTotal  *prometheus.CounterVec
	generationsTotal    *prometheus.CounterVec
	generationDuration  *prometheus.HistogramVec
	generationTokens    *prometheus.CounterVec
	plannedMeals        prometheus.Gauge
}

// NewCollectors registers the collectors on a fresh registry, together with
// the Go runtime and process collectors.
func NewCollectors() *Collectors {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collectors{
		Registry: reg,
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		planMutationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plan_mutations_total",
				Help: "Plan operations by kind and result (applied, noop, failed)",
			},
			[]string{"operation", "result"},
		),
		generationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ai_generations_total",
				Help: "AI generation requests by generator and status",
			},
			[]string{"agent", "status"},
		),
		generationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ai_generation_duration_seconds",
				Help:    "AI generation latency in seconds",
				Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
			},
			[]string{"agent"},
		),
		generationTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ai_generation_tokens_total",
				Help: "Tokens consumed by AI generation",
			},
			[]string{"agent", "kind"},
		),
		plannedMeals: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "planned_meals",
				Help: "Number of occupied slots in the saved plan",
			},
		),
	}
}

// ObserveHTTP records one served request.
func (c *Collectors) ObserveHTTP(method, route, status string, d time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	c.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObservePlanMutation counts a plan operation.
func (c *Collectors) ObservePlanMutation(operation, result string) {
	c.planMutationsTotal.WithLabelValues(operation, result).Inc()
}

// ObserveGeneration records a generator call.
func (c *Collectors) ObserveGeneration(agent string, err error, d time.Duration, promptTokens, completionTokens int) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.generationsTotal.WithLabelValues(agent, status).Inc()
	c.generationDuration.WithLabelValues(agent).Observe(d.Seconds())
	c.generationTokens.WithLabelValues(agent, "prompt").Add(float64(promptTokens))
	c.generationTokens.WithLabelValues(agent, "completion").Add(float64(completionTokens))
}

// SetPlannedMeals updates the planned meals gauge.
func (c *Collectors) SetPlannedMeals(n int) {
	c.plannedMeals.Set(float64(n))
}
