package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/playmatatu/pinball/internal/pinball"
)

// GetState returns the session snapshot.
func GetState(session *pinball.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, session.Snapshot())
	}
}

// PostInput applies one controller input and returns the resulting
// snapshot.
func PostInput(session *pinball.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req pinball.InputEvent
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		if err := session.HandleInput(req); err != nil {
			switch {
			case errors.Is(err, pinball.ErrInvalidInput):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			case errors.Is(err, pinball.ErrSessionFailed):
				c.JSON(http.StatusConflict, gin.H{"error": "session failed", "detail": errString(session.Err())})
			default:
				log.Printf("[API] Input %s/%s failed: %v", req.Control, req.Action, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
			return
		}

		c.JSON(http.StatusOK, session.Snapshot())
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
