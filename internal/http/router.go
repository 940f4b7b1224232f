package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/strainix/timetrack/internal/handlers"
	"github.com/strainix/timetrack/internal/logging"
	"github.com/strainix/timetrack/internal/middleware"
)

// NewRouter wires the remote session service API. CORS is wide open: the
// user code is the only scoping mechanism and browsers on any origin must be
// able to sync.
func NewRouter(log *logging.Logger, h *handlers.SessionHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "X-Device-ID"},
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(middleware.DeviceID())
	{
		api.POST("/user-code", h.GenerateUserCode)
		api.GET("/sessions/:code", h.ListSessions)
		api.POST("/sessions/:code", h.CreateSession)
		api.PUT("/sessions/:code/:id", h.UpdateSession)
		api.DELETE("/sessions/:code/:id", h.DeleteSession)
		api.POST("/sync/:code", h.Sync)
	}
	return r
}
