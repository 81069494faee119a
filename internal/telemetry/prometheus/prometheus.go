package prometheus

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type counter struct {
	vec    *prometheus.CounterVec
	labels []string
}

type histogram struct {
	vec    *prometheus.HistogramVec
	labels []string
}

// Client records into its own registry so several clients can coexist in
// one process (tests, multiple servers).
type Client struct {
	registry         *prometheus.Registry
	CounterMetrics   map[string]*counter
	HistogramMetrics map[string]*histogram
}

func NewClient() *Client {
	c := &Client{
		registry:         prometheus.NewRegistry(),
		CounterMetrics:   make(map[string]*counter),
		HistogramMetrics: make(map[string]*histogram),
	}

	c.initMetrics()

	return c
}

func (c *Client) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Client) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Client) Incr(name string, tags []string, rate float64) {
	if c == nil {
		return
	}

	m, exists := c.CounterMetrics[name]
	if !exists {
		return
	}

	m.vec.WithLabelValues(labelValues(m.labels, tags)...).Inc()
}

func (c *Client) Timing(name string, value time.Duration, tags []string, rate float64) {
	if c == nil {
		return
	}

	m, exists := c.HistogramMetrics[name]
	if !exists {
		return
	}

	m.vec.WithLabelValues(labelValues(m.labels, tags)...).Observe(value.Seconds())
}

// metricName turns a dotted statsd name into a prometheus name.
func metricName(name string) string {
	return "chatrelay_" + strings.ReplaceAll(name, ".", "_")
}

// labelValues picks the value of each label from "label:value" tags, in label
// order. Missing labels get an empty value.
func labelValues(labels []string, tags []string) []string {
	values := make([]string, len(labels))
	for i, l := range labels {
		prefix := l + ":"
		for _, t := range tags {
			if strings.HasPrefix(t, prefix) {
				values[i] = strings.TrimPrefix(t, prefix)
				break
			}
		}
	}

	return values
}
