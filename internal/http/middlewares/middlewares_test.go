package middlewares

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/civichub/internal/actorctx"
	"github.com/geocoder89/civichub/internal/auth"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct {
	verifyFn func(token string) (*auth.Claims, error)
}

func (f fakeVerifier) Verify(token string) (*auth.Claims, error) {
	return f.verifyFn(token)
}

func verifierFor(tokens map[string]*auth.Claims) fakeVerifier {
	return fakeVerifier{verifyFn: func(token string) (*auth.Claims, error) {
		if token == "expired" {
			return nil, auth.ErrTokenExpired
		}
		c, ok := tokens[token]
		if !ok {
			return nil, auth.ErrTokenSignatureInvalid
		}
		return c, nil
	}}
}

func do(r http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	m := NewAuthMiddleware(verifierFor(map[string]*auth.Claims{
		"good": {UserID: "u1", Role: "regular"},
	}))

	r := gin.New()
	r.GET("/me", m.RequireAuth(), func(c *gin.Context) {
		id, _ := UserIDFromContext(c)
		actor, ok := actorctx.From(c.Request.Context())
		if !ok || actor.UserID != id {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, id)
	})

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantBody string
	}{
		{name: "valid", header: "Bearer good", wantCode: http.StatusOK, wantBody: "u1"},
		{name: "missing", header: "", wantCode: http.StatusUnauthorized, wantBody: `"unauthorized"`},
		{name: "wrong_scheme", header: "Basic abc", wantCode: http.StatusUnauthorized, wantBody: `"unauthorized"`},
		{name: "bad_token", header: "Bearer forged", wantCode: http.StatusUnauthorized, wantBody: `"unauthorized"`},
		{name: "expired", header: "Bearer expired", wantCode: http.StatusUnauthorized, wantBody: `"token_expired"`},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodGet, "/me", map[string]string{"Authorization": tt.header})

			if w.Code != tt.wantCode {
				t.Fatalf("status got %d want %d body=%s", w.Code, tt.wantCode, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Fatalf("body %s missing %s", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	m := NewAuthMiddleware(verifierFor(map[string]*auth.Claims{
		"admin": {UserID: "a1", Role: "admin"},
	}))

	r := gin.New()
	r.GET("/who", m.OptionalAuth(), func(c *gin.Context) {
		role, _ := RoleFromContext(c)
		c.String(http.StatusOK, "role="+role)
	})

	if w := do(r, http.MethodGet, "/who", nil); w.Code != http.StatusOK || w.Body.String() != "role=" {
		t.Fatalf("anonymous: %d %s", w.Code, w.Body.String())
	}
	if w := do(r, http.MethodGet, "/who", map[string]string{"Authorization": "Bearer admin"}); w.Body.String() != "role=admin" {
		t.Fatalf("admin: %d %s", w.Code, w.Body.String())
	}
	if w := do(r, http.MethodGet, "/who", map[string]string{"Authorization": "Bearer junk"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("invalid token should be rejected, got %d", w.Code)
	}
}

func TestRBAC(t *testing.T) {
	m := NewAuthMiddleware(verifierFor(map[string]*auth.Claims{
		"alice": {UserID: "alice", Role: "regular"},
		"root":  {UserID: "root", Role: "admin"},
	}))

	r := gin.New()
	r.GET("/admin", m.RequireAuth(), m.RequireRole("admin"), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/users/:id", m.RequireAuth(), m.RequireSelfOrRole("id", "admin"), func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		name     string
		path     string
		token    string
		wantCode int
	}{
		{name: "admin_route_regular", path: "/admin", token: "alice", wantCode: http.StatusForbidden},
		{name: "admin_route_admin", path: "/admin", token: "root", wantCode: http.StatusOK},
		{name: "self", path: "/users/alice", token: "alice", wantCode: http.StatusOK},
		{name: "other_user", path: "/users/bob", token: "alice", wantCode: http.StatusForbidden},
		{name: "admin_other_user", path: "/users/bob", token: "root", wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodGet, tt.path, map[string]string{"Authorization": "Bearer " + tt.token})
			if w.Code != tt.wantCode {
				t.Fatalf("status got %d want %d", w.Code, tt.wantCode)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)

	r := gin.New()
	r.POST("/login", rl.RateLimiterMiddleware(KeyByIP), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		if w := do(r, http.MethodPost, "/login", nil); w.Code != http.StatusOK {
			t.Fatalf("request %d got %d", i, w.Code)
		}
	}

	w := do(r, http.MethodPost, "/login", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("third request got %d want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After header")
	}
}

func TestRequireContentType(t *testing.T) {
	r := gin.New()
	r.POST("/json", RequireJSON(), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/either", RequireContentType("application/json", "multipart/form-data"), func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		path     string
		ct       string
		wantCode int
	}{
		{path: "/json", ct: "application/json; charset=utf-8", wantCode: http.StatusOK},
		{path: "/json", ct: "text/plain", wantCode: http.StatusUnsupportedMediaType},
		{path: "/json", ct: "", wantCode: http.StatusUnsupportedMediaType},
		{path: "/either", ct: "multipart/form-data; boundary=x", wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		w := do(r, http.MethodPost, tt.path, map[string]string{"Content-Type": tt.ct})
		if w.Code != tt.wantCode {
			t.Fatalf("%s %q: got %d want %d", tt.path, tt.ct, w.Code, tt.wantCode)
		}
	}
}

func TestRequestIDAndSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(CtxRequestID)) })

	w := do(r, http.MethodGet, "/", map[string]string{"X-Request-Id": "req-123"})
	if w.Header().Get("X-Request-Id") != "req-123" || w.Body.String() != "req-123" {
		t.Fatalf("request id not propagated: header=%q body=%q", w.Header().Get("X-Request-Id"), w.Body.String())
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing nosniff")
	}

	w = do(r, http.MethodGet, "/", nil)
	if w.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected generated request id")
	}
}

func TestBearerToken(t *testing.T) {
	tests := map[string]bool{
		"Bearer abc": true,
		"Bearer ":    false,
		"bearer abc": false,
		"":           false,
	}

	for header, want := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.Header.Set("Authorization", header)

		if _, ok := bearerToken(c); ok != want {
			t.Fatalf("bearerToken(%q) ok=%v want %v", header, ok, want)
		}
	}
}
