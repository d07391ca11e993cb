package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"roombooking/internal/api"
	"roombooking/internal/claims"
	"roombooking/internal/dashboard"
	"roombooking/internal/scheduling"
	"roombooking/pkg/config"
)

type Dependencies struct {
	Cfg       config.Config
	Scheduler *scheduling.Service
	Verifier  claims.Verifier
	Logger    *slog.Logger
}

func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(api.RequestID)
	r.Use(api.RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID", "X-User-Id", "X-User-Name", "X-User-Role"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           600,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	bookingHandlers := scheduling.NewHandlers(deps.Scheduler, deps.Logger)
	dashboardHandlers := dashboard.Handlers{Service: deps.Scheduler, Logger: deps.Logger}
	limiter := api.NewRateLimiter(api.RateLimitConfig{
		RequestsPerSecond: deps.Cfg.RateLimitRPS,
		Burst:             deps.Cfg.RateLimitBurst,
	})

	// v1
	r.Route("/v1", func(r chi.Router) {
		// Production: bearer tokens from the identity service.
		// Dev: falls back to X-User-* headers if Authorization is missing.
		r.Use(api.ClaimsAuth(deps.Cfg, deps.Verifier))
		r.Use(limiter.Middleware)

		r.Get("/rooms", bookingHandlers.Rooms)

		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", bookingHandlers.Submit)
			r.With(api.RequireApprover).Get("/", bookingHandlers.List)
			r.Get("/mine", bookingHandlers.Mine)

			r.Get("/room/{roomId}", bookingHandlers.ByRoom)
			r.With(api.RequireApprover).Get("/room/{roomId}/logs", bookingHandlers.RoomLogs)
			r.Get("/requester/{requesterId}", bookingHandlers.ByRequester)

			r.Get("/{id}", bookingHandlers.Get)
			r.Get("/{id}/logs", bookingHandlers.Logs)
			r.Put("/{id}/status", bookingHandlers.PutStatus)
			r.With(api.RequireApprover).Delete("/{id}", bookingHandlers.Delete)
		})

		r.Get("/dashboard/student", dashboardHandlers.Student)
	})

	return r
}
