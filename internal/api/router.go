package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/appointment"
	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/payment"
)

type RouterConfig struct {
	Booking        *appointment.Service
	Availability   *appointment.AvailabilityResolver
	Ledger         *payment.Ledger
	Approval       *payment.Approval
	PgPool         *pgxpool.Pool
	Redis          *redis.Client
	Logger         *zap.Logger
	JWTSecret      string
	RequestsPerMin int
	Env            string
	Version        string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if cfg.RequestsPerMin > 0 {
		r.Use(httprate.LimitByIP(cfg.RequestsPerMin, time.Minute))
	}

	// Health and metrics endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Public availability read
	r.Get("/appointments/available-slots", availableSlotsHandler(cfg.Availability))

	// Authenticated surface
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.JWTSecret))

		r.Post("/appointments", bookAppointmentHandler(cfg.Booking))
		r.Get("/appointments", listAppointmentsHandler(cfg.Booking))
		r.Get("/appointments/{id}", getAppointmentHandler(cfg.Booking))
		r.Patch("/appointments/{id}", updateStatusHandler(cfg.Booking))
		r.Patch("/appointments/{id}/complete", completeAppointmentHandler(cfg.Booking))
		r.Patch("/appointments/{id}/reschedule", rescheduleAppointmentHandler(cfg.Booking))

		r.Post("/payments/upi/get-details", paymentDetailsHandler(cfg.Ledger))
		r.Post("/payments/upi/confirm", confirmPaymentHandler(cfg.Ledger))

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Patch("/payments/{id}/approve", approvePaymentHandler(cfg.Approval))
			r.Patch("/payments/{id}/reject", rejectPaymentHandler(cfg.Approval))
		})
	})

	return r
}
