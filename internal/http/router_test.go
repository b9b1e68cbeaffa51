package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/civichub/internal/accounts"
	"github.com/geocoder89/civichub/internal/auth"
	"github.com/geocoder89/civichub/internal/cache"
	"github.com/geocoder89/civichub/internal/domain/user"
	"github.com/geocoder89/civichub/internal/repo/memory"
	"github.com/geocoder89/civichub/internal/security"
	"github.com/geocoder89/civichub/internal/storage"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const (
	selfID  = "11111111-1111-4111-8111-111111111111"
	otherID = "22222222-2222-4222-8222-222222222222"
	someID  = "33333333-3333-4333-8333-333333333333"
)

func newTestRouter(t *testing.T) (*gin.Engine, *auth.Manager) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	tokens, err := auth.NewManager("router-secret-0123456789abcdef", time.Hour)
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}

	dir := t.TempDir()
	docs, err := storage.NewLocal(dir, "/uploads")
	if err != nil {
		t.Fatalf("NewLocal error: %v", err)
	}

	terms := memory.NewTermsRepo()
	hasher := security.NewPool(security.NewHasher(bcrypt.MinCost), 1)

	r := NewRouter(Deps{
		Env:             "test",
		Log:             log,
		Accounts:        accounts.NewService(memory.NewUsersRepo(), hasher, tokens, log),
		Activities:      memory.NewActivitiesRepo(terms),
		Terms:           terms,
		Documents:       docs,
		Cache:           cache.NewMemory(time.Minute),
		Tokens:          tokens,
		UploadDir:       dir,
		UploadMaxBytes:  1 << 20,
		LoginRateLimit:  100,
		LoginRateWindow: time.Minute,
	})

	return r, tokens
}

func issue(t *testing.T, tokens *auth.Manager, id, role string) string {
	t.Helper()

	tok, _, err := tokens.Issue(id, role)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	return tok
}

func TestRouter_Guards(t *testing.T) {
	r, tokens := newTestRouter(t)

	regular := issue(t, tokens, selfID, user.RoleRegular)
	admin := issue(t, tokens, otherID, user.RoleAdmin)

	tests := []struct {
		name        string
		method      string
		path        string
		token       string
		contentType string
		wantStatus  int
		wantCode    string
	}{
		{name: "get_user_anonymous", method: http.MethodGet, path: "/users/" + selfID, wantStatus: http.StatusUnauthorized, wantCode: "unauthorized"},
		{name: "update_user_anonymous", method: http.MethodPut, path: "/users/" + selfID, contentType: "application/json", wantStatus: http.StatusUnauthorized, wantCode: "unauthorized"},
		{name: "delete_user_anonymous", method: http.MethodDelete, path: "/users/" + selfID, wantStatus: http.StatusUnauthorized, wantCode: "unauthorized"},
		{name: "get_other_user_as_regular", method: http.MethodGet, path: "/users/" + otherID, token: regular, wantStatus: http.StatusForbidden, wantCode: "forbidden"},
		{name: "update_self_wrong_content_type", method: http.MethodPut, path: "/users/" + selfID, token: regular, contentType: "text/plain", wantStatus: http.StatusUnsupportedMediaType, wantCode: "unsupported_media_type"},

		{name: "create_user_wrong_content_type", method: http.MethodPost, path: "/users", contentType: "text/plain", wantStatus: http.StatusUnsupportedMediaType, wantCode: "unsupported_media_type"},
		{name: "login_wrong_content_type", method: http.MethodPost, path: "/users/login", contentType: "text/plain", wantStatus: http.StatusUnsupportedMediaType, wantCode: "unsupported_media_type"},

		{name: "list_activities_public", method: http.MethodGet, path: "/activities", wantStatus: http.StatusOK},
		{name: "create_activity_anonymous", method: http.MethodPost, path: "/activities", contentType: "application/json", wantStatus: http.StatusUnauthorized, wantCode: "unauthorized"},
		{name: "update_activity_anonymous", method: http.MethodPut, path: "/activities/" + someID, contentType: "application/json", wantStatus: http.StatusUnauthorized, wantCode: "unauthorized"},
		{name: "delete_activity_anonymous", method: http.MethodDelete, path: "/activities/" + someID, wantStatus: http.StatusUnauthorized, wantCode: "unauthorized"},
		{name: "create_activity_as_regular", method: http.MethodPost, path: "/activities", token: regular, contentType: "application/json", wantStatus: http.StatusForbidden, wantCode: "forbidden"},
		{name: "delete_activity_as_regular", method: http.MethodDelete, path: "/activities/" + someID, token: regular, wantStatus: http.StatusForbidden, wantCode: "forbidden"},
		{name: "create_activity_wrong_content_type", method: http.MethodPost, path: "/activities", token: admin, contentType: "text/plain", wantStatus: http.StatusUnsupportedMediaType, wantCode: "unsupported_media_type"},

		{name: "list_terms_public", method: http.MethodGet, path: "/terms", wantStatus: http.StatusOK},
		{name: "create_term_anonymous", method: http.MethodPost, path: "/terms", contentType: "application/json", wantStatus: http.StatusUnauthorized, wantCode: "unauthorized"},
		{name: "create_term_as_regular", method: http.MethodPost, path: "/terms", token: regular, contentType: "application/json", wantStatus: http.StatusForbidden, wantCode: "forbidden"},
		{name: "create_term_wrong_content_type", method: http.MethodPost, path: "/terms", token: admin, contentType: "text/plain", wantStatus: http.StatusUnsupportedMediaType, wantCode: "unsupported_media_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.contentType != "" {
				body = strings.NewReader(`{}`)
			}

			req := httptest.NewRequest(tt.method, tt.path, body)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d body=%s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantCode != "" && !strings.Contains(rec.Body.String(), `"code":"`+tt.wantCode+`"`) {
				t.Fatalf("expected code %q, got body=%s", tt.wantCode, rec.Body.String())
			}
		})
	}
}
