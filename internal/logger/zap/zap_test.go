package zap

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viabilitychat/chatrelay/internal/logger"
	"go.uber.org/zap"
)

func TestNewLogger(t *testing.T) {
	t.Run("production writes json at info level", func(t *testing.T) {
		out := &bytes.Buffer{}
		lg := newLogger("production", out)

		lg.Debug("hidden")
		lg.Info("relay started", zap.String("port", "8080"))
		require.NoError(t, lg.Sync())

		lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
		require.Len(t, lines, 1)

		entry := map[string]interface{}{}
		require.NoError(t, json.Unmarshal(lines[0], &entry))
		assert.Equal(t, "relay started", entry["message"])
		assert.Equal(t, "info", entry["level"])
		assert.Equal(t, "8080", entry["port"])
	})

	t.Run("dev writes prefixed console lines", func(t *testing.T) {
		out := &bytes.Buffer{}
		lg := newLogger("dev", out)

		lg.Debug("upstream call")
		lg.Sugar().Warnf("missing %s", "key")

		s := out.String()
		assert.Contains(t, s, prefix)
		assert.Contains(t, s, "DEBUG")
		assert.Contains(t, s, "upstream call")
		assert.Contains(t, s, "WARN")
		assert.Contains(t, s, "missing key")
	})

	t.Run("sugared logger satisfies the logger interface", func(t *testing.T) {
		var lg logger.Logger = newLogger("dev", &bytes.Buffer{}).Sugar()
		assert.NotNil(t, lg)
	})
}
