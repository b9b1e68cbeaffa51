package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/civichub/internal/accounts"
	"github.com/geocoder89/civichub/internal/auth"
	"github.com/geocoder89/civichub/internal/cache"
	apphttp "github.com/geocoder89/civichub/internal/http"
	"github.com/geocoder89/civichub/internal/http/handlers"
	"github.com/geocoder89/civichub/internal/security"
	"github.com/geocoder89/civichub/internal/storage"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret    = "integration-secret-0123456789abcdef"
	adminEmail    = "admin@example.com"
	adminPassword = "admin-password"
)

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

type stores struct {
	users      accounts.UserStore
	activities handlers.ActivitiesStore
	terms      handlers.TermsStore
	ping       func(ctx context.Context) error
}

type testApp struct {
	router    *gin.Engine
	tokens    *auth.Manager
	uploadDir string
}

func newTestApp(t *testing.T, s stores) *testApp {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tokens, err := auth.NewManager(testSecret, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}

	hasher := security.NewPool(security.NewHasher(bcrypt.MinCost), 2)
	svc := accounts.NewService(s.users, hasher, tokens, log)

	if err := svc.EnsureAdmin(context.Background(), adminEmail, adminPassword, "Test Admin"); err != nil {
		t.Fatalf("EnsureAdmin error: %v", err)
	}

	dir := t.TempDir()
	docs, err := storage.NewLocal(dir, "/uploads")
	if err != nil {
		t.Fatalf("NewLocal error: %v", err)
	}

	router := apphttp.NewRouter(apphttp.Deps{
		Env:             "test",
		Log:             log,
		Accounts:        svc,
		Activities:      s.activities,
		Terms:           s.terms,
		Documents:       docs,
		Cache:           cache.NewMemory(time.Minute),
		Tokens:          tokens,
		Ping:            s.ping,
		UploadDir:       dir,
		UploadMaxBytes:  1 << 20,
		LoginRateLimit:  100,
		LoginRateWindow: time.Minute,
	})

	return &testApp{router: router, tokens: tokens, uploadDir: dir}
}

func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) doJSON(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	req := a.doJSONRequest(t, method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return a.do(req)
}

func (a *testApp) doJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req
}

type loginResponse struct {
	Token string `json:"token"`
	User  struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
}

func (a *testApp) login(t *testing.T, email, password string) loginResponse {
	t.Helper()

	rec := a.doJSON(t, http.MethodPost, "/users/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", email, rec.Code, rec.Body.String())
	}

	return mustReadJSON[loginResponse](t, rec)
}

func mustReadJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}

	return out
}

type errorEnvelope struct {
	Error handlers.APIError `json:"error"`
}

func multipartRequest(t *testing.T, method, path, token string, fields map[string]string, file []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}

	if file != nil {
		fw, err := mw.CreateFormFile("readMore", "minutes.pdf")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(file); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}

	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}
