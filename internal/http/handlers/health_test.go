package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geocoder89/civichub/internal/http/handlers"
)

func TestReadyz(t *testing.T) {
	tests := []struct {
		name         string
		ping         func(ctx context.Context) error
		shuttingDown func() bool
		wantStatus   int
		wantBody     string
	}{
		{name: "no_deps", wantStatus: http.StatusOK, wantBody: `"ready"`},
		{
			name:       "ping_ok",
			ping:       func(ctx context.Context) error { return nil },
			wantStatus: http.StatusOK,
			wantBody:   `"ready"`,
		},
		{
			name:       "ping_fails",
			ping:       func(ctx context.Context) error { return errors.New("db down") },
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `"not_ready"`,
		},
		{
			name:         "shutting_down",
			ping:         func(ctx context.Context) error { return nil },
			shuttingDown: func() bool { return true },
			wantStatus:   http.StatusServiceUnavailable,
			wantBody:     `"shutting_down"`,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewHealthHandler(tt.ping, tt.shuttingDown)
			r := setupRouter("GET", "/readyz", h.Readyz)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status got %d want %d", rec.Code, tt.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Fatalf("body %s missing %s", rec.Body.String(), tt.wantBody)
			}
		})
	}
}
