package stats

import (
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
)

type Config struct {
	Enabled bool
	Address string
}

type Client struct {
	config  Config
	statsdc statsd.ClientInterface
}

func NewClient(cfg Config) (*Client, error) {
	c, err := statsd.New(cfg.Address, statsd.WithNamespace("chatrelay."))
	if err != nil {
		return nil, err
	}

	return &Client{
		config:  cfg,
		statsdc: c,
	}, nil
}

func (c *Client) Incr(name string, tags []string, rate float64) {
	if c.config.Enabled {
		c.statsdc.Incr(name, tags, rate)
	}
}

func (c *Client) Timing(name string, value time.Duration, tags []string, rate float64) {
	if c.config.Enabled {
		c.statsdc.Timing(name, value, tags, rate)
	}
}

func (c *Client) Close() error {
	return c.statsdc.Close()
}
