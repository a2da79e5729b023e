// Package metrics collects reader and store metrics with Prometheus and
// writes them in the node exporter textfile format.
package metrics

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements the MetricsCollector interfaces of the sierramarc
// reader and the catalog store. Metric vectors are registered on first use
// with the label names of that first call; later calls with other label
// names are dropped.
type Collector struct {
	namespace string
	reg       *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	gauges     map[string]*prometheus.GaugeVec
}

func New(namespace string) *Collector {
	return &Collector{
		namespace:  namespace,
		reg:        prometheus.NewRegistry(),
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
	}
}

// Registry returns the registry all metrics are registered with.
func (c *Collector) Registry() *prometheus.Registry {
	return c.reg
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

func help(metric string) string {
	return strings.ReplaceAll(metric, "_", " ")
}

func (c *Collector) IncrementCounter(metric string, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	vec, ok := c.counters[metric]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      metric,
			Help:      help(metric),
		}, labelNames(labels))
		if err := c.reg.Register(vec); err != nil {
			return
		}
		c.counters[metric] = vec
	}
	if counter, err := vec.GetMetricWith(labels); err == nil {
		counter.Inc()
	}
}

func (c *Collector) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	vec, ok := c.histograms[metric]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: c.namespace,
			Name:      metric,
			Help:      help(metric),
			Buckets:   prometheus.DefBuckets,
		}, labelNames(labels))
		if err := c.reg.Register(vec); err != nil {
			return
		}
		c.histograms[metric] = vec
	}
	if obs, err := vec.GetMetricWith(labels); err == nil {
		obs.Observe(duration.Seconds())
	}
}

func (c *Collector) RecordValue(metric string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	vec, ok := c.gauges[metric]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: c.namespace,
			Name:      metric,
			Help:      help(metric),
		}, labelNames(labels))
		if err := c.reg.Register(vec); err != nil {
			return
		}
		c.gauges[metric] = vec
	}
	if g, err := vec.GetMetricWith(labels); err == nil {
		g.Set(value)
	}
}

// WriteTextfile writes all metrics to path for the node exporter textfile
// collector.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.reg)
}
