// Package middlewares holds the gin middleware shared by the management
// API routes.
package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIKey guards a route group with the shared service key carried in the
// X-Api-Key header. An empty configured key disables the check, which is
// the local development mode.
func APIKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		if c.GetHeader("X-Api-Key") != key {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing api key"})
			c.Abort()
			return
		}
		c.Next()
	}
}
