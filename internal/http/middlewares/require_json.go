package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func RequireJSON() gin.HandlerFunc {
	return RequireContentType("application/json")
}

// RequireContentType rejects bodies on write methods whose Content-Type
// does not start with one of the allowed media types.
func RequireContentType(allowed ...string) gin.HandlerFunc {
	msg := "Content-Type must be " + strings.Join(allowed, " or ")

	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			// allow "application/json; charset=utf-8"
			ct := strings.ToLower(c.GetHeader("Content-Type"))
			if !hasAnyPrefix(ct, allowed) {
				c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{
					"error": gin.H{
						"code":      "unsupported_media_type",
						"message":   msg,
						"requestId": c.GetString(CtxRequestID),
					},
				})
				return
			}
		}
		c.Next()
	}
}

func hasAnyPrefix(s string, prefixes []string) bool {
	if s == "" {
		return false
	}
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
