package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/playmatatu/pinball/internal/pinball"
)

var startTime = time.Now()

const version = "1.0.0"

// HealthCheck reports server health together with the session's state. A
// failed session makes the service unhealthy.
func HealthCheck(session *pinball.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := session.Snapshot()
		body := gin.H{
			"status":  "ok",
			"service": "pinball-api",
			"version": version,
			"uptime":  time.Since(startTime).String(),
			"session": gin.H{
				"status": snap.Status,
				"tick":   snap.Tick,
				"lives":  snap.Lives,
			},
		}
		if snap.Status == pinball.StatusFailed {
			body["status"] = "degraded"
			body["error"] = snap.Error
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		c.JSON(http.StatusOK, body)
	}
}
