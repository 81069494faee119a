package prometheus

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient(t *testing.T) {
	c := NewClient()

	c.Incr("relay.chat_handler.requests", nil, 1)
	c.Incr("relay.chat_handler.requests", nil, 1)
	c.Incr("relay.chat_handler.upstream_error", []string{"status:502"}, 1)
	c.Incr("not.registered", nil, 1)
	c.Timing("relay.middleware.latency", 20*time.Millisecond, []string{"path:/api/chat"}, 1)

	assert.Equal(t, float64(2), testutil.ToFloat64(c.CounterMetrics["relay.chat_handler.requests"].vec))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.CounterMetrics["relay.chat_handler.upstream_error"].vec.WithLabelValues("502")))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "chatrelay_relay_chat_handler_requests 2")
	assert.Contains(t, rec.Body.String(), `chatrelay_relay_middleware_latency_seconds_count{path="/api/chat"} 1`)
}

func TestNilClient(t *testing.T) {
	var c *Client
	assert.NotPanics(t, func() {
		c.Incr("relay.chat_handler.requests", nil, 1)
		c.Timing("relay.chat_handler.latency", time.Second, nil, 1)
	})
}

func TestLabelValues(t *testing.T) {
	assert.Equal(t, []string{"200", ""}, labelValues([]string{"status", "path"}, []string{"status:200", "other:x"}))
	assert.Equal(t, []string{}, labelValues([]string{}, []string{"status:200"}))
}
