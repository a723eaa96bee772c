package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/websqlsentinel/sentinel/internal/auth"
	"github.com/websqlsentinel/sentinel/internal/handlers"
	"github.com/websqlsentinel/sentinel/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	activityHandler *handlers.ActivityHandler,
	blocklistHandler *handlers.BlocklistHandler,
	tokenManager *auth.TokenManager,
) {
	// Rate limiting config for auth endpoints
	rateLimitConfig := middleware.DefaultAuthRateLimit()

	// Public routes - no authentication required
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/login", authHandler.Login)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/register", authHandler.Register)

	// Registry contents are public; amending the registry is not
	router.Get("/blocked", blocklistHandler.List)

	// Protected routes - session required
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(tokenManager))

		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/activity", activityHandler.GetActivity)

		r.Post("/blocked", blocklistHandler.Block)
		r.Delete("/blocked", blocklistHandler.Unblock)
	})
}
