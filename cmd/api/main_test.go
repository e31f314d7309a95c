package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"tutorregister/internal/attendance"
	"tutorregister/internal/config"
	"tutorregister/internal/handler"
	"tutorregister/internal/live"
	"tutorregister/internal/metrics"
	"tutorregister/internal/queue"
	"tutorregister/internal/store"
)

func TestNewRouter_ObservesEveryRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gin.DefaultWriter = io.Discard

	db, err := store.NewDB(context.Background(), store.DriverSQLite, filepath.Join(t.TempDir(), "register.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	h := handler.New(handler.Deps{
		Service: attendance.NewService(attendance.NewRepository(db.Client)),
		Queue:   queue.NewInMemory(1),
		Hub:     live.NewHub(log, m),
		Metrics: m,
		Log:     log,
		Auth:    handler.AuthConfig{Issuer: "test", SigningKey: "k", AccessTTL: time.Hour, RefreshTTL: time.Hour},
	})
	r := newRouter(config.App{FrontendDir: t.TempDir()}, h, reg)

	get := func(path string) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w.Code
	}

	if code := get("/metrics"); code != http.StatusOK {
		t.Fatalf("/metrics: %d", code)
	}
	if got := testutil.CollectAndCount(m.HTTPDuration); got != 1 {
		t.Fatalf("series after /metrics = %d, want 1", got)
	}
	if code := get("/healthz"); code != http.StatusOK {
		t.Fatalf("/healthz: %d", code)
	}
	if got := testutil.CollectAndCount(m.HTTPDuration); got != 2 {
		t.Errorf("series after /healthz = %d, want 2", got)
	}
	if code := get("/v1/ws"); code != http.StatusUnauthorized {
		t.Errorf("anonymous /v1/ws: %d, want 401", code)
	}
}
