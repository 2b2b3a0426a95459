package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/minhvu/schedly-be/internal/api/handlers"
	"github.com/minhvu/schedly-be/internal/auth"
	"github.com/minhvu/schedly-be/internal/config"
	"github.com/minhvu/schedly-be/internal/services"
	"github.com/minhvu/schedly-be/internal/websocket"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(
	cfg *config.Config,
	tokens *auth.TokenService,
	hub *websocket.Hub,
	userService services.UserServiceProvider,
	scheduleService services.ScheduleServiceProvider,
	notificationService services.NotificationServiceProvider,
	eventService services.EventServiceProvider,
) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService, tokens, eventService)
	scheduleHandler := handlers.NewScheduleHandler(scheduleService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	eventHandler := handlers.NewEventHandler(eventService)
	healthHandler := handlers.NewHealthHandler()
	wsHandler := handlers.NewWebSocketHandler(hub)

	requireAuth := auth.Middleware(tokens)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.Get)

		// Public authentication endpoints
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", userHandler.Register)
			r.Post("/login", userHandler.Login)
			r.Post("/forgot-password", userHandler.ForgotPassword)
			r.Post("/reset-password", userHandler.ResetPassword)
			r.Post("/change-password", userHandler.ChangePasswordByBody)
		})

		// Everything below requires a valid bearer token.
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Route("/users/{id}", func(r chi.Router) {
				r.Get("/", userHandler.Get)
				r.Put("/", userHandler.Update)
				r.Put("/password", userHandler.ChangePassword)
			})

			r.Route("/schedules", func(r chi.Router) {
				r.Get("/", scheduleHandler.List)
				r.Post("/", scheduleHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Put("/", scheduleHandler.Update)
					r.Delete("/", scheduleHandler.Delete)
				})
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notificationHandler.List)
				r.Post("/", notificationHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Put("/", notificationHandler.Update)
					r.Patch("/read", notificationHandler.MarkRead)
					r.Delete("/", notificationHandler.Delete)
				})
			})

			r.Get("/events", eventHandler.GetRecent)
		})
	})

	// WebSocket connection endpoint (token via header or ?token=)
	r.With(requireAuth).Get("/ws", wsHandler.Serve)

	return r
}
