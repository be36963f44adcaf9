package handlers

import (
	"net/http"

	"closer-backend/internal/metrics"
	"closer-backend/internal/middleware"
	"closer-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// RouterDeps is everything the HTTP surface needs
type RouterDeps struct {
	Users    *services.UserService
	Pairs    *services.PairService
	Daily    *services.DailyService
	Memories *services.MemoryService
	Accounts *services.AccountService

	// Metrics records per-route request counts. Nil disables recording.
	Metrics metrics.Recorder
	// MetricsHandler serves /metrics when set
	MetricsHandler http.Handler
	// AuthLimiter throttles /api/auth/* when set
	AuthLimiter *middleware.RateLimiter
}

// NewRouter builds the chi router with every route mounted under /api
func NewRouter(d RouterDeps) http.Handler {
	authHandler := NewAuthHandler(d.Users)
	pairHandler := NewPairHandler(d.Pairs)
	dailyHandler := NewDailyHandler(d.Daily)
	memoryHandler := NewMemoryHandler(d.Memories)
	userHandler := NewUserHandler(d.Accounts)

	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	if d.Metrics != nil {
		r.Use(middleware.HTTPMetrics(d.Metrics))
	}
	r.Use(middleware.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", d.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Route("/auth", func(r chi.Router) {
			if d.AuthLimiter != nil {
				r.Use(d.AuthLimiter.Middleware)
			}
			r.Post("/signup", authHandler.Signup)
			r.Get("/verify/{token}", authHandler.Verify)
			r.Post("/login", authHandler.Login)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(d.Users))

			r.Post("/invite/generate", pairHandler.GenerateInvite)
			r.Post("/invite/use", pairHandler.UseInvite)

			r.Post("/mood", dailyHandler.SetMood)
			r.Get("/mood/partner", dailyHandler.PartnerMood)
			r.Get("/question/today", dailyHandler.TodaysQuestion)
			r.Post("/question/answer", dailyHandler.SubmitAnswer)
			r.Get("/question/partner", dailyHandler.PartnerAnswer)

			r.Post("/memoryfeed", memoryHandler.PostMemory)
			r.Get("/memoryfeed", memoryHandler.ListMemories)
			r.Post("/memoryfeed/photo-upload", memoryHandler.PhotoUpload)
			r.Delete("/memoryfeed/{id}", memoryHandler.DeleteMemory)

			r.Delete("/user", userHandler.DeleteUser)
		})
	})

	return r
}
