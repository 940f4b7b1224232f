package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const deviceIDKey = "deviceID"

// DeviceIDFromContext returns the device id attached by DeviceID, or the
// fallback attribution for clients that omit the header.
func DeviceIDFromContext(c *gin.Context) string {
	if v, ok := c.Get(deviceIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return "unknown-device"
}

// DeviceID records the X-Device-ID header for attribution. It is not an
// authorization mechanism; the user code in the path scopes all access.
func DeviceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader("X-Device-ID"))
		if id == "" {
			id = "unknown-device"
		}
		c.Set(deviceIDKey, id)
		c.Next()
	}
}
