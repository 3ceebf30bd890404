package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextKeyBearer is the gin context key for the caller's bearer token
const ContextKeyBearer = "bearer"

// RequireBearer extracts the caller's bearer credential. The token is
// pre-validated by the boundary layer; here it is only carried along
// to scope vector store access.
func RequireBearer() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer credential"})
			c.Abort()
			return
		}

		c.Set(ContextKeyBearer, strings.TrimPrefix(auth, "Bearer "))
		c.Next()
	}
}

// ProcessSecret guards the ingest webhook with a shared secret header.
func ProcessSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "process secret not configured"})
			c.Abort()
			return
		}

		if c.GetHeader("X-Process-Secret") != secret {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		c.Next()
	}
}
