package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/playmatatu/pinball/internal/config"
	"github.com/playmatatu/pinball/internal/middleware"
)

// IssueControllerToken exchanges the controller PIN for a bearer token.
func IssueControllerToken(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			PIN string `json:"pin" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "pin required"})
			return
		}

		if cfg.ControllerPINHash == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "controller login is not configured"})
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(cfg.ControllerPINHash), []byte(req.PIN)); err != nil {
			log.Printf("[AUTH] Controller PIN rejected from %s", c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid pin"})
			return
		}

		ttl := time.Duration(cfg.ControllerTokenTTL) * time.Minute
		token, exp, err := middleware.IssueControllerToken(cfg.JWTSecret, ttl, time.Now())
		if err != nil {
			log.Printf("[AUTH] Failed to sign token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		log.Printf("[AUTH] Controller token issued to %s (expires %s)", c.ClientIP(), exp.Format(time.RFC3339))
		c.JSON(http.StatusOK, gin.H{"token": token, "expires_at": exp.Unix()})
	}
}
