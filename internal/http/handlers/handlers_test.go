package handlers_test

import (
	"github.com/geocoder89/civichub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Make sure Gin does not spam the console during the test

func init() {
	gin.SetMode(gin.TestMode)
}

func newUUID() string {
	return uuid.NewString()
}

// small helper function which returns the gin engine to mount one handler per test

func setupRouter(method, path string, h ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Handle(method, path, h...)

	return r
}

// asRole fakes what the auth middleware leaves on the context.
func asRole(userID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middlewares.CtxUserID, userID)
		c.Set(middlewares.CtxRole, role)
		c.Next()
	}
}
