package middleware

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

// RoleController is the only role a token can carry: its holder may drive
// the flippers and plunger.
const RoleController = "controller"

var ErrInvalidToken = errors.New("invalid token")

// ControllerClaims are the claims of a controller token.
type ControllerClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueControllerToken signs an HS256 controller token valid for ttl.
func IssueControllerToken(secret string, ttl time.Duration, now time.Time) (string, time.Time, error) {
	exp := now.Add(ttl)
	claims := ControllerClaims{
		Role: RoleController,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ParseControllerToken verifies token and checks it carries the controller
// role.
func ParseControllerToken(secret, token string) (*ControllerClaims, error) {
	claims := &ControllerClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Role != RoleController {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ControllerAuth requires a bearer controller token.
func ControllerAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		claims, err := ParseControllerToken(secret, strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			log.Printf("[AUTH] Rejected controller token from %s: %v", c.ClientIP(), err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("role", claims.Role)
		c.Next()
	}
}
