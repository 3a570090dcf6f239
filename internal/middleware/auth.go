package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/noticias/core/internal/pkg/jwt"
	"github.com/noticias/core/internal/pkg/response"
)

const ContextKeyAdmin = "admin"

// Auth requires a valid admin bearer token.
func Auth(tokens *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := tokens.Parse(extractToken(c))
		if err != nil {
			response.Unauthorized(c)
			return
		}
		c.Set(ContextKeyAdmin, claims.Username)
		c.Next()
	}
}

// OptionalAuth records the admin when a valid token is present, but does
// not block the request.
func OptionalAuth(tokens *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tok := extractToken(c); tok != "" {
			if claims, err := tokens.Parse(tok); err == nil {
				c.Set(ContextKeyAdmin, claims.Username)
			}
		}
		c.Next()
	}
}

// CurrentAdmin returns the authenticated admin username.
func CurrentAdmin(c *gin.Context) string {
	return c.GetString(ContextKeyAdmin)
}

// IsAuthenticated returns true if the request carries a valid admin token.
func IsAuthenticated(c *gin.Context) bool {
	return CurrentAdmin(c) != ""
}

func extractToken(c *gin.Context) string {
	return NormalizeToken(c.GetHeader("Authorization"))
}

// NormalizeToken trims spaces and strips optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
