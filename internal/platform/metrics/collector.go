package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes de una llamada al oráculo.
const (
	OutcomeGranted = "granted"
	OutcomeDenied  = "denied"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)

// Collector agrupa las métricas del servicio en un registry propio
// (no usamos el registry global de prometheus).
// Todos los métodos aceptan receptor nil, así los componentes no tienen que chequear.
type Collector struct {
	registry *prometheus.Registry

	resolves        *prometheus.CounterVec
	partialResults  prometheus.Counter
	resolveDuration prometheus.Histogram
	oracleCalls     *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		resolves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tourify_capabilities_resolves_total",
				Help: "Capability resolutions by outcome (complete, partial, invalid)",
			},
			[]string{"outcome"},
		),
		partialResults: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tourify_capabilities_partial_results_total",
			Help: "Resolutions where at least one permission check failed and defaulted to false",
		}),
		resolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tourify_capabilities_resolve_duration_seconds",
			Help:    "Wall time of a full capability resolution",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		oracleCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tourify_permission_oracle_calls_total",
				Help: "Permission oracle calls by permission and outcome",
			},
			[]string{"permission", "outcome"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tourify_capabilities_cache_lookups_total",
				Help: "Capability cache lookups by result (hit, miss)",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.resolves,
		c.partialResults,
		c.resolveDuration,
		c.oracleCalls,
		c.cacheLookups,
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler expone el registry en formato Prometheus.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) ObserveResolve(d time.Duration, failed int) {
	if c == nil {
		return
	}
	c.resolveDuration.Observe(d.Seconds())
	if failed > 0 {
		c.resolves.WithLabelValues("partial").Inc()
		c.partialResults.Inc()
		return
	}
	c.resolves.WithLabelValues("complete").Inc()
}

func (c *Collector) ObserveInvalid() {
	if c == nil {
		return
	}
	c.resolves.WithLabelValues("invalid").Inc()
}

func (c *Collector) ObserveOracleCall(permission, outcome string) {
	if c == nil {
		return
	}
	c.oracleCalls.WithLabelValues(permission, outcome).Inc()
}

func (c *Collector) ObserveCacheLookup(hit bool) {
	if c == nil {
		return
	}
	if hit {
		c.cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	c.cacheLookups.WithLabelValues("miss").Inc()
}
