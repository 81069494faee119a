package relay

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/viabilitychat/chatrelay/internal/telemetry"
	"github.com/viabilitychat/chatrelay/internal/util"
	"go.uber.org/zap"
)

func getMiddleware(log *zap.Logger, prod bool, prefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c == nil || c.Request == nil {
			JSON(c, http.StatusInternalServerError, "request is empty", "")
			c.Abort()
			return
		}

		cid := util.NewUuid()
		c.Set(correlationId, cid)
		c.Header("X-Correlation-Id", cid)
		start := time.Now()

		defer func() {
			dur := time.Since(start)
			latency := int(dur.Milliseconds())
			path := c.FullPath()
			if len(path) == 0 {
				path = "unmatched"
			}

			if !prod {
				log.Sugar().Infof("%s | %d | %s | %s | %dms", prefix, c.Writer.Status(), c.Request.Method, path, latency)
			}

			if prod {
				log.Info("response to relay",
					zap.String(correlationId, cid),
					zap.String("model", c.GetString("model")),
					zap.Int("code", c.Writer.Status()),
					zap.String("method", c.Request.Method),
					zap.String("path", path),
					zap.Int("latencyInMs", latency),
				)
			}

			telemetry.Timing("relay.middleware.latency", dur, []string{"path:" + path}, 1)
			telemetry.Incr("relay.middleware.responses", []string{
				"status:" + strconv.Itoa(c.Writer.Status()),
			}, 1)
		}()

		c.Next()
	}
}

// getRecoveryMiddleware turns a panic in any handler into a 500 carrying the
// panic message.
func getRecoveryMiddleware(log *zap.Logger, prod bool) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		telemetry.Incr("relay.middleware.panics", nil, 1)

		msg := fmt.Sprint(recovered)
		if err, ok := recovered.(error); ok {
			msg = err.Error()
		}

		logError(log, "recovered from panic", prod, c.GetString(correlationId), errors.New(msg))

		// a streamed body has already committed its status
		if c.Writer.Written() {
			c.Abort()
			return
		}

		JSON(c, http.StatusInternalServerError, msg, "")
		c.Abort()
	})
}

func logError(log *zap.Logger, msg string, prod bool, id string, err error) {
	if prod {
		log.Debug(msg, zap.String(correlationId, id), zap.Error(err))
		return
	}

	log.Sugar().Debugf("correlationId:%s | %s | %v", id, msg, err)
}
