// Package router provides advisor service routing.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/course-advisor/internal/advisor/handler"
)

// Register registers the advisor service routes.
func Register(engine *gin.Engine, h *handler.AdvisorHandler) {
	logger.Info("Registering advisor routes...")

	// Conversational endpoint, one session per connection.
	engine.GET("/ws", h.ChatWS)

	engine.GET("/healthz", h.Healthz)
	engine.GET("/metrics", h.Metrics)

	v1 := engine.Group("/v1")
	{
		v1.POST("/chat", h.Chat)

		catalog := v1.Group("/catalog")
		{
			catalog.POST("/index", h.Index)
			catalog.POST("/reindex", h.Reindex)
		}

		v1.GET("/stats", h.Stats)
	}

	logger.Info("HTTP routes registered")
}
