package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics implements Metrics on top of dynamically registered
// Prometheus vectors, keyed by metric name. Label values are passed as
// alternating key/value pairs (label, value, label, value, ...) to match the
// variadic signature shared across all Metrics implementations; the label
// *names* are derived positionally ("l0", "l1", ...) since callers vary the
// label set per metric name.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	mu        sync.Mutex
	counters  map[string]*prometheus.CounterVec
	timers    map[string]*prometheus.HistogramVec
	gauges    map[string]*prometheus.GaugeVec
}

// NewPrometheusMetrics constructs a Metrics backend registered against reg.
// If reg is nil, prometheus.NewRegistry() is used.
func NewPrometheusMetrics(reg *prometheus.Registry) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &PrometheusMetrics{
		registry: reg,
		counters: make(map[string]*prometheus.CounterVec),
		timers:   make(map[string]*prometheus.HistogramVec),
		gauges:   make(map[string]*prometheus.GaugeVec),
	}
}

func labelNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = "l" + itoa(i)
	}
	return names
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := []byte{}
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}

func labelValues(labels []string) []string {
	vals := make([]string, 0, len(labels)/2)
	for i := 1; i < len(labels); i += 2 {
		vals = append(vals, labels[i])
	}
	return vals
}

func (p *PrometheusMetrics) IncCounter(name string, value float64, labels ...string) {
	p.mu.Lock()
	vec, ok := p.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{Name: sanitize(name)}, labelNames(len(labels)/2))
		p.registry.MustRegister(vec)
		p.counters[name] = vec
	}
	p.mu.Unlock()
	vec.WithLabelValues(labelValues(labels)...).Add(value)
}

func (p *PrometheusMetrics) RecordTimer(name string, ms float64, labels ...string) {
	p.mu.Lock()
	vec, ok := p.timers[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    sanitize(name),
			Buckets: prometheus.ExponentialBuckets(5, 2, 12),
		}, labelNames(len(labels)/2))
		p.registry.MustRegister(vec)
		p.timers[name] = vec
	}
	p.mu.Unlock()
	vec.WithLabelValues(labelValues(labels)...).Observe(ms)
}

func (p *PrometheusMetrics) RecordGauge(name string, value float64, labels ...string) {
	p.mu.Lock()
	vec, ok := p.gauges[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: sanitize(name)}, labelNames(len(labels)/2))
		p.registry.MustRegister(vec)
		p.gauges[name] = vec
	}
	p.mu.Unlock()
	vec.WithLabelValues(labelValues(labels)...).Set(value)
}

// sanitize converts "dispatcher.loop" style names into Prometheus-safe
// "dispatcher_loop" identifiers.
func sanitize(name string) string {
	out := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == '.' || c == '-' || c == ' ' {
			out[i] = '_'
		} else {
			out[i] = c
		}
	}
	return string(out)
}
