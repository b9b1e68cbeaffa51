package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/geocoder89/civichub/internal/actorctx"
	"github.com/geocoder89/civichub/internal/auth"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	jwt TokenVerifier
}

func NewAuthMiddleware(jwt TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, "unauthorized", "Missing or invalid Authorization header")
			return
		}

		if !m.authenticate(c, raw) {
			return
		}

		c.Next()
	}
}

// OptionalAuth attaches the caller identity when a bearer token is sent and
// lets anonymous requests through. A token that is present but invalid is
// still rejected.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}

		raw, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, "unauthorized", "Missing or invalid Authorization header")
			return
		}

		if !m.authenticate(c, raw) {
			return
		}

		c.Next()
	}
}

func (m *AuthMiddleware) authenticate(c *gin.Context, raw string) bool {
	claims, err := m.jwt.Verify(raw)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			abortUnauthorized(c, "token_expired", "Access token expired")
			return false
		}
		abortUnauthorized(c, "unauthorized", "Invalid access token")
		return false
	}

	// Stash useful bits of identity on the context
	c.Set(CtxUserID, claims.UserID)
	c.Set(CtxRole, claims.Role)
	c.Request = c.Request.WithContext(actorctx.With(c.Request.Context(), actorctx.Actor{
		UserID: claims.UserID,
		Role:   claims.Role,
	}))

	return true
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}

	raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return raw, raw != ""
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":      code,
			"message":   message,
			"requestId": c.GetString(CtxRequestID),
		},
	})
}

// Optional helpers so handlers don't need to know the magic keys.

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxUserID)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

func RoleFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxRole)
	if !ok {
		return "", false
	}
	role, ok := v.(string)
	return role, ok
}
