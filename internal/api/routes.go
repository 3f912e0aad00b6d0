package api

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/playmatatu/pinball/internal/api/handlers"
	"github.com/playmatatu/pinball/internal/config"
	"github.com/playmatatu/pinball/internal/middleware"
	"github.com/playmatatu/pinball/internal/pinball"
	"github.com/playmatatu/pinball/internal/ws"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, session *pinball.Session, hub *ws.Hub, cfg *config.Config) {
	router.Use(middleware.CORSMiddleware(cfg))

	if !cfg.IsProduction() {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] No-cache headers enabled for all routes")
	}

	authorize := func(token string) bool {
		_, err := middleware.ParseControllerToken(cfg.JWTSecret, token)
		return err == nil
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(session))
		v1.GET("/state", handlers.GetState(session))
		v1.POST("/controller/token", handlers.IssueControllerToken(cfg))
		v1.POST("/input", middleware.ControllerAuth(cfg.JWTSecret), handlers.PostInput(session))
		v1.GET("/ws", middleware.WebSocketCORSCheck(cfg), ws.HandleWebSocket(hub, authorize))
	}
}
