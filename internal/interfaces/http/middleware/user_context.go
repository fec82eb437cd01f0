// internal/interfaces/http/middleware/user_context.go
package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// UserContext resolves the caller's user id from the X-User-ID header set by
// the upstream auth gateway. Session mechanics live outside this service.
func UserContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := c.GetHeader("X-User-ID"); raw != "" {
			if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
				c.Set("user_id", uint(id))
			}
		}
		c.Next()
	}
}

// GetUserIDFromContext extracts the user id set by UserContext
func GetUserIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok
}

// RequireUser aborts with 401 when no user id is present
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetUserIDFromContext(c); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
