package middleware

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// defaultAdminKey is only for local development; deployments set
// ADMIN_API_KEY.
const defaultAdminKey = "admin-dev-key-change-in-production"

// AdminMiddleware guards the operational endpoints (cache control, cleanup)
// with a shared API key.
type AdminMiddleware struct {
	apiKey string
}

// NewAdminMiddleware reads the admin key from ADMIN_API_KEY, falling back to
// the development default.
func NewAdminMiddleware() *AdminMiddleware {
	apiKey := os.Getenv("ADMIN_API_KEY")
	if apiKey == "" {
		apiKey = defaultAdminKey
	}
	return &AdminMiddleware{apiKey: apiKey}
}

// RequireAdminAuth accepts the key as a Bearer token, an X-API-Key header or
// an api_key query parameter, in that order.
func (am *AdminMiddleware) RequireAdminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if am.ValidateAdminKey(adminKeyFromRequest(c)) {
			c.Next()
			return
		}

		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Unauthorized",
			"message": "Valid admin API key required for this endpoint",
		})
		c.Abort()
	}
}

// ValidateAdminKey reports whether the given key matches the configured one.
func (am *AdminMiddleware) ValidateAdminKey(key string) bool {
	return key != "" && key == am.apiKey
}

func adminKeyFromRequest(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		parts := strings.Split(auth, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}
	if key := c.GetHeader("X-API-Key"); key != "" {
		return key
	}
	return c.Query("api_key")
}
