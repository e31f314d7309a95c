package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"tutorregister/internal/attendance"
	"tutorregister/internal/config"
	"tutorregister/internal/handler"
	"tutorregister/internal/httpmiddleware"
	"tutorregister/internal/live"
	"tutorregister/internal/metrics"
	"tutorregister/internal/notify"
	"tutorregister/internal/queue"
	"tutorregister/internal/store"
	"tutorregister/pkg/sl"
)

func main() {
	cfg := config.MustLoad()
	log := sl.NewLogger(cfg.Env, os.Stdout)

	if cfg.Env == sl.EnvProd {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, log); err != nil {
		log.Error("api stopped", sl.Err(err))
		os.Exit(1)
	}
}

func run(cfg config.App, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewDB(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("store ready", slog.String("driver", db.Driver))

	var (
		redisClient *store.Redis
		rc          *redis.Client
	)
	if cfg.QueueBackend == "redis" {
		redisClient = store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
		rc = redisClient.Client
	}
	q, err := queue.New(cfg.QueueBackend, rc)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	svc := attendance.NewService(attendance.NewRepository(db.Client), attendance.WithDebounce(cfg.ScanDebounce))
	if n, err := svc.SeedIfEmpty(ctx, cfg.SeedCSV); err != nil {
		log.Warn("roster seed failed", slog.String("path", cfg.SeedCSV), sl.Err(err))
	} else if n > 0 {
		log.Info("roster seeded", slog.String("path", cfg.SeedCSV), slog.Int("learners", n))
	}
	if learners, err := svc.Learners(ctx); err == nil {
		m.SetRosterSize(len(learners))
	}

	// The in-memory queue only lives in this process, so its consumer runs here too.
	if cfg.QueueBackend != "redis" && cfg.ReportWebhookURL != "" {
		reporter := notify.NewReporter(svc, notify.New(cfg.ReportWebhookURL), log, m)
		msgs, err := q.Consume(ctx)
		if err != nil {
			return err
		}
		go reporter.Run(ctx, msgs)
		if cfg.AutoSendAt != "" {
			go notify.Schedule(ctx, q, cfg.AutoSendCheck, time.Now, cfg.AutoSendTime, log)
		}
		log.Info("in-process report sender started")
	}

	hub := live.NewHub(log, m)
	h := handler.New(handler.Deps{
		Service: svc,
		Queue:   q,
		Redis:   redisClient,
		Hub:     hub,
		Metrics: m,
		Log:     log,
		Auth: handler.AuthConfig{
			Issuer:     cfg.JWTIssuer,
			SigningKey: cfg.JWTSigningKey,
			AccessTTL:  cfg.AccessTTL,
			RefreshTTL: cfg.RefreshTTL,
			EnrollKey:  cfg.EnrollKey,
			AdminKey:   cfg.AdminKey,
			OpenEnroll: cfg.Env != sl.EnvProd,
		},
	})

	r := newRouter(cfg, h, reg)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", slog.String("addr", srv.Addr), slog.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced shutdown", sl.Err(err))
	}
	log.Info("server exited")
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// newRouter installs the middleware chain, then /metrics, the API and the optional frontend.
func newRouter(cfg config.App, h *handler.Handler, reg *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(httpmiddleware.RequestID())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization", httpmiddleware.RequestIDHeader},
		ExposeHeaders:   []string{"Content-Disposition", httpmiddleware.RequestIDHeader},
		MaxAge:          12 * time.Hour,
	}))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())
	r.Use(h.Observe())

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	h.Register(r)

	if index := filepath.Join(cfg.FrontendDir, "index.html"); fileExists(index) {
		r.StaticFile("/", index)
		r.Static("/static", filepath.Join(cfg.FrontendDir, "static"))
	}
	return r
}
