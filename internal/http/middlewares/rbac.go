package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (m *AuthMiddleware) RequireRole(required string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := RoleFromContext(c)

		if !ok || role == "" {
			abortUnauthorized(c, "unauthorized", "Missing identity context")
			return
		}
		if role != required {
			abortForbidden(c, "Insufficient role")
			return
		}
		c.Next()
	}
}

// RequireSelfOrRole lets a caller act on the resource named by the route
// param when it is their own id, or when they hold the given role.
func (m *AuthMiddleware) RequireSelfOrRole(param, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserIDFromContext(c)
		if !ok || userID == "" {
			abortUnauthorized(c, "unauthorized", "Missing identity context")
			return
		}

		if userID == c.Param(param) {
			c.Next()
			return
		}

		if r, _ := RoleFromContext(c); r == role {
			c.Next()
			return
		}

		abortForbidden(c, "You can only manage your own account")
	}
}

func abortForbidden(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"error": gin.H{
			"code":      "forbidden",
			"message":   message,
			"requestId": c.GetString(CtxRequestID),
		},
	})
}
