package middleware

import (
	"log"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/playmatatu/pinball/internal/config"
)

var devOrigins = []string{
	"http://localhost:5173", // Vite dev server
	"http://127.0.0.1:5173",
}

// allowedOrigins lists the browser origins the API accepts outside
// development.
func allowedOrigins(cfg *config.Config) []string {
	if cfg.FrontendURL == "" {
		return nil
	}
	return []string{cfg.FrontendURL}
}

// CORSMiddleware returns a CORS middleware configured for the environment
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	log.Printf("[CORS] Environment: %s, FrontendURL: %s", cfg.Environment, cfg.FrontendURL)

	corsConfig := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Length", "Content-Type", "Authorization",
			"Accept", "Cache-Control", "X-Requested-With",
		},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour, // Cache preflight responses
	}

	if cfg.Environment == "development" {
		corsConfig.AllowOrigins = append([]string{}, devOrigins...)
		if cfg.FrontendURL != "" && !contains(devOrigins, cfg.FrontendURL) {
			corsConfig.AllowOrigins = append(corsConfig.AllowOrigins, cfg.FrontendURL)
		}
	} else {
		corsConfig.AllowOrigins = allowedOrigins(cfg)
		log.Printf("[CORS] Allowed origins: %v", corsConfig.AllowOrigins)
	}
	if len(corsConfig.AllowOrigins) == 0 {
		// cors.New panics without at least one origin rule.
		corsConfig.AllowOrigins = []string{"http://localhost"}
	}

	return cors.New(corsConfig)
}

// WebSocketCORSCheck validates WebSocket upgrade origins. Requests without
// an Origin header (non-browser clients) are let through.
func WebSocketCORSCheck(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Only check for WebSocket upgrade requests
		if !strings.Contains(strings.ToLower(c.GetHeader("Connection")), "upgrade") ||
			strings.ToLower(c.GetHeader("Upgrade")) != "websocket" {
			c.Next()
			return
		}

		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		var allowed bool
		if cfg.Environment == "development" {
			// Allow localhost variants in dev
			allowed = strings.HasPrefix(origin, "http://localhost:") ||
				strings.HasPrefix(origin, "http://127.0.0.1:") ||
				origin == cfg.FrontendURL
		} else {
			allowed = contains(allowedOrigins(cfg), origin)
		}

		if !allowed {
			log.Printf("[CORS] Rejected websocket origin %s", origin)
			c.AbortWithStatusJSON(403, gin.H{"error": "WebSocket origin not allowed"})
			return
		}

		c.Next()
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
