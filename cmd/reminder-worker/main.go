package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/appointment"
	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/config"
	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/db"
	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/logger"
	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/notify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		panic("logger init error: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("reminder-worker starting up",
		zap.String("env", cfg.Env),
		zap.Duration("interval", cfg.WorkerInterval),
		zap.Duration("window", cfg.ReminderWindow),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	log.Info("connected to Postgres")

	repo := appointment.NewPgRepository(pgPool)
	notifier := notify.NewStore(pgPool, log, nil)
	svc := appointment.NewService(repo, nil, notifier, log, nil)

	// Run once at startup
	runOnce(rootCtx, svc, cfg.ReminderWindow, log)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info("shutdown signal received, stopping reminder worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, cfg.ReminderWindow, log)
		}
	}
}

func runOnce(ctx context.Context, svc *appointment.Service, window time.Duration, log *zap.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	if err := svc.SendDueReminders(runCtx, window); err != nil {
		log.Warn("reminder run error", zap.Error(err))
		return
	}
	log.Info("reminder run complete", zap.Duration("took", time.Since(start)))
}
