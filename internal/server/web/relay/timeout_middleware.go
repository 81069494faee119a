package relay

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// getTimeoutMiddleware sets the upstream deadline for the request. The
// x-request-timeout header may shorten the configured timeout but never
// extends it.
func getTimeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c == nil || c.Request == nil {
			JSON(c, http.StatusInternalServerError, "request is empty", "")
			c.Abort()
			return
		}

		timeoutHeader := c.GetHeader("x-request-timeout")
		parsedTimeout := timeout
		if len(timeoutHeader) != 0 {
			parsed, err := time.ParseDuration(timeoutHeader)
			if err != nil || parsed <= 0 {
				JSON(c, http.StatusBadRequest, "invalid timeout", "x-request-timeout must be a positive duration such as 30s")
				c.Abort()
				return
			}

			if parsed < timeout {
				parsedTimeout = parsed
			}
		}

		c.Set("requestTimeout", parsedTimeout)
	}
}
