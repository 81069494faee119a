package telemetry

import (
	"errors"
	"sync"
	"time"

	"github.com/viabilitychat/chatrelay/internal/config"
	"github.com/viabilitychat/chatrelay/internal/telemetry/prometheus"
	"github.com/viabilitychat/chatrelay/internal/telemetry/stats"
)

type ProviderType string

const (
	PROVIDER_NONE       ProviderType = ""
	PROVIDER_DATADOG    ProviderType = "statsd"
	PROVIDER_PROMETHEUS ProviderType = "prometheus"
)

type Provider interface {
	Incr(name string, tags []string, rate float64)
	Timing(name string, value time.Duration, tags []string, rate float64)
}

type Client struct {
	Provider Provider
}

var (
	mu        sync.RWMutex
	singleton *Client
)

// Init selects the metrics backend. The returned Prometheus client is nil
// unless the prometheus provider was selected; callers mount its handler.
func Init(cfg *config.Config) (*prometheus.Client, error) {
	if cfg == nil {
		return nil, errors.New("config is empty")
	}

	switch ProviderType(cfg.TelemetryProvider) {
	case PROVIDER_NONE:
		set(nil)
		return nil, nil

	case PROVIDER_DATADOG:
		c, err := stats.NewClient(stats.Config{
			Enabled: true,
			Address: cfg.StatsAddress,
		})
		if err != nil {
			return nil, err
		}

		set(&Client{Provider: c})
		return nil, nil

	case PROVIDER_PROMETHEUS:
		p := prometheus.NewClient()
		set(&Client{Provider: p})
		return p, nil
	}

	return nil, errors.New("unsupported telemetry provider")
}

// SetProvider replaces the active backend. A nil provider disables metrics.
func SetProvider(p Provider) {
	if p == nil {
		set(nil)
		return
	}

	set(&Client{Provider: p})
}

func set(c *Client) {
	mu.Lock()
	defer mu.Unlock()
	singleton = c
}

func get() *Client {
	mu.RLock()
	defer mu.RUnlock()
	return singleton
}

func Incr(name string, tags []string, rate float64) {
	if c := get(); c != nil {
		c.Provider.Incr(name, tags, rate)
	}
}

func Timing(name string, value time.Duration, tags []string, rate float64) {
	if c := get(); c != nil {
		c.Provider.Timing(name, value, tags, rate)
	}
}
