package middleware

import (
	"errors"
	"io"
	"net/http"
	"runtime/debug"
	"syscall"

	"github.com/gin-gonic/gin"

	"rugsync/internal/logger"
)

// Recovery turns a panic into a 500. gin aborts broken client connections
// before the handler runs.
func Recovery(logger *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered interface{}) {
		if err, ok := recovered.(error); ok && (errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET)) {
			c.Abort()
			return
		}

		if gin.IsDebugging() {
			logger.Error("[Recovery] panic serving %s %s: %v\n%s", c.Request.Method, c.Request.URL.Path, recovered, debug.Stack())
		} else {
			logger.Error("[Recovery] panic serving %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered)
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	})
}
