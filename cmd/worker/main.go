package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tutorregister/internal/attendance"
	"tutorregister/internal/config"
	"tutorregister/internal/notify"
	"tutorregister/internal/queue"
	"tutorregister/internal/store"
	"tutorregister/pkg/sl"
)

// Worker consumes report requests from the queue, posts them to the webhook and
// schedules the daily auto-send.
func main() {
	cfg := config.MustLoad()
	log := sl.NewLogger(cfg.Env, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.ReportWebhookURL == "" {
		log.Error("REPORT_WEBHOOK_URL is required for the worker")
		os.Exit(1)
	}
	if _, _, err := cfg.AutoSendTime(time.Now()); err != nil {
		log.Error("invalid auto-send time", sl.Err(err))
		os.Exit(1)
	}

	db, err := store.NewDB(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", sl.Err(err))
		os.Exit(1)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	q, err := queue.New(cfg.QueueBackend, redisClient.Client)
	if err != nil {
		log.Error("queue init failed", sl.Err(err))
		os.Exit(1)
	}
	if cfg.QueueBackend == "redis" && !redisClient.Healthy(ctx) {
		log.Warn("redis not reachable yet, consumer will keep retrying", slog.String("addr", cfg.RedisAddr))
	}

	svc := attendance.NewService(attendance.NewRepository(db.Client))
	reporter := notify.NewReporter(svc, notify.New(cfg.ReportWebhookURL), log, nil)

	if cfg.AutoSendAt != "" {
		go notify.Schedule(ctx, q, cfg.AutoSendCheck, time.Now, cfg.AutoSendTime, log)
		log.Info("auto-send scheduled", slog.String("at", cfg.AutoSendAt))
	}

	msgs, err := q.Consume(ctx)
	if err != nil {
		log.Error("queue consume init failed", sl.Err(err))
		os.Exit(1)
	}

	log.Info("worker started, waiting for messages", slog.String("queue", cfg.QueueBackend))
	reporter.Run(ctx, msgs)
	log.Info("worker stopped")
}
