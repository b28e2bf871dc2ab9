package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/userhub/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		store  handlers.Pinger
		path   string
		status int
	}{
		{"liveness ignores store", pingFunc(func(context.Context) error { return errors.New("down") }), "/healthz", http.StatusOK},
		{"ready", pingFunc(func(context.Context) error { return nil }), "/readyz", http.StatusOK},
		{"store down", pingFunc(func(context.Context) error { return errors.New("down") }), "/readyz", http.StatusServiceUnavailable},
		{"no store", nil, "/readyz", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewHealthHandler(tt.store)

			r := gin.New()
			r.GET("/healthz", h.Healthz)
			r.GET("/readyz", h.Readyz)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if w.Code != tt.status {
				t.Fatalf("got status %d want %d", w.Code, tt.status)
			}
		})
	}
}
