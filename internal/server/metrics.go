package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/concha/internal/engine"
	"github.com/roach88/concha/internal/tree"
)

const namespace = "concha"

// Metrics holds the Prometheus collectors. It implements
// engine.Observer. A nil *Metrics records nothing.
type Metrics struct {
	registry    *prometheus.Registry
	compiles    *prometheus.CounterVec
	links       *prometheus.CounterVec
	resolutions *prometheus.CounterVec
	parses      *prometheus.HistogramVec
	tricks      prometheus.Gauge
}

var _ engine.Observer = (*Metrics)(nil)

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		compiles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compiles_total",
			Help:      "Tricks applied, by method and resulting status.",
		}, []string{"method", "status"}),
		links: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_total",
			Help:      "Link calls, by nesting depth and winning status.",
		}, []string{"depth", "status"}),
		resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Documents answered, by status.",
		}, []string{"status"}),
		parses: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "parse_duration_seconds",
			Help:      "Time spent in the natural-language parser.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		tricks: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tricks",
			Help:      "Live tricks in the repository.",
		}),
	}
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Compiled implements engine.Observer.
func (m *Metrics) Compiled(trickID int, method, status string) {
	if m == nil {
		return
	}
	if method == "" {
		method = "ANSWER"
	}
	m.compiles.WithLabelValues(method, status).Inc()
}

// Linked implements engine.Observer.
func (m *Metrics) Linked(depth int, status string) {
	if m == nil {
		return
	}
	m.links.WithLabelValues(strconv.Itoa(depth), status).Inc()
}

func (m *Metrics) observeResolution(status string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(status).Inc()
}

func (m *Metrics) setTricks(n int) {
	if m == nil {
		return
	}
	m.tricks.Set(float64(n))
}

// InstrumentParser wraps p to record parse latency.
func (m *Metrics) InstrumentParser(p engine.Parser) engine.Parser {
	if m == nil {
		return p
	}
	return &timedParser{next: p, hist: m.parses}
}

type timedParser struct {
	next engine.Parser
	hist *prometheus.HistogramVec
}

func (p *timedParser) Parse(ctx context.Context, text string) (*tree.Tree, error) {
	start := time.Now()
	tr, err := p.next.Parse(ctx, text)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	p.hist.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	return tr, err
}
