package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

var counterDefinitions = map[string][]string{
	"relay.chat_handler.requests":            {},
	"relay.chat_handler.success":             {},
	"relay.chat_handler.streaming_requests":  {},
	"relay.chat_handler.invalid_request":     {},
	"relay.chat_handler.configuration_error": {},
	"relay.chat_handler.upstream_error":      {"status"},
	"relay.chat_handler.empty_completion":    {},
	"relay.chat_handler.internal_error":      {},
	"relay.chat_handler.stream_interrupted":  {},
	"relay.middleware.responses":             {"status"},
	"relay.middleware.panics":                {},
}

var histogramDefinitions = map[string][]string{
	"relay.chat_handler.latency":           {},
	"relay.chat_handler.streaming_latency": {},
	"relay.middleware.latency":             {"path"},
}

func (c *Client) initMetrics() {
	for name, labels := range counterDefinitions {
		vec := prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricName(name),
			},
			labels,
		)
		c.registry.MustRegister(vec)
		c.CounterMetrics[name] = &counter{vec: vec, labels: labels}
	}

	for name, labels := range histogramDefinitions {
		vec := prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricName(name) + "_seconds",
				Buckets: prometheus.DefBuckets,
			},
			labels,
		)
		c.registry.MustRegister(vec)
		c.HistogramMetrics[name] = &histogram{vec: vec, labels: labels}
	}
}
