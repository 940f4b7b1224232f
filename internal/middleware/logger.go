package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/strainix/timetrack/internal/logging"
)

// RequestLogger logs one line per request through the shared leveled logger.
func RequestLogger(log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Infof("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
