package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/api"
	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/appointment"
	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/config"
	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/db"
	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/logger"
	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/metrics"
	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/notify"
	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/payment"
	redisclient "github.com/AmiTtiwari43/The-DocVerse-sub000/internal/redis"
)

const version = "1.0.0"

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

	log.Info("api-server starting up", zap.String("env", cfg.Env), zap.String("http_port", cfg.HTTPPort))

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

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn("error closing redis", zap.Error(err))
		}
	}()
	log.Info("connected to Redis")

	m := metrics.New(prometheus.DefaultRegisterer)
	notifier := notify.NewStore(pgPool, log, m)
	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)

	apptRepo := appointment.NewPgRepository(pgPool)
	payRepo := payment.NewPgRepository(pgPool)

	booking := appointment.NewService(apptRepo, locker, notifier, log, m)
	availability := appointment.NewAvailabilityResolver(apptRepo)
	ledger := payment.NewLedger(payRepo, apptRepo, log, m)
	approval := payment.NewApproval(payRepo, apptRepo, notifier, log, m)

	router := api.NewRouter(api.RouterConfig{
		Booking:        booking,
		Availability:   availability,
		Ledger:         ledger,
		Approval:       approval,
		PgPool:         pgPool,
		Redis:          rdb,
		Logger:         log,
		JWTSecret:      cfg.JWTSecret,
		RequestsPerMin: cfg.RequestsPerMin,
		Env:            cfg.Env,
		Version:        version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server error", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	log.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", zap.Error(err))
	}
}
