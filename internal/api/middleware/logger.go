package middleware

import (
	"io"

	"github.com/gin-gonic/gin"

	"rugsync/internal/logger"
)

// Logger writes one line per request through the service logger.
func Logger(logger *logger.Logger) gin.HandlerFunc {
	return gin.LoggerWithConfig(gin.LoggerConfig{
		Output: io.Discard,
		Formatter: func(param gin.LogFormatterParams) string {
			log := logger.Info
			switch {
			case param.StatusCode >= 500:
				log = logger.Error
			case param.Request.URL.Path == "/healthz" || param.Request.URL.Path == "/metrics":
				log = logger.Debug
			}
			log("%s %s %d %s %s", param.Method, param.Path, param.StatusCode, param.Latency, param.ClientIP)
			return ""
		},
	})
}
