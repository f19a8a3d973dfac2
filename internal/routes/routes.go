package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/ovasylenko/contactbook-backend/internal/config"
	"github.com/ovasylenko/contactbook-backend/internal/handlers"
	"github.com/ovasylenko/contactbook-backend/internal/middleware"
)

func SetupRoutes(r *chi.Mux, cfg *config.Config) {
	// Auth routes
	r.With(middleware.RateLimit("register", cfg.RateLimitMax, cfg.RateLimitWindow)).
		Post("/auth/register", handlers.Register)
	r.Post("/auth/login", handlers.Login)
	r.Get("/auth/verify-email", handlers.VerifyEmail)
	r.With(middleware.RateLimit("me", cfg.RateLimitMax, cfg.RateLimitWindow)).
		Get("/auth/me", handlers.GetMe)
	r.Patch("/auth/avatar", handlers.UpdateAvatar)
	r.Patch("/auth/avatar/default", handlers.SetDefaultAvatar)
	r.Post("/auth/request-password-reset", handlers.RequestPasswordReset)
	r.Post("/auth/reset-password", handlers.ResetPassword)

	// Contact routes (bearer-authorized, owner-scoped)
	r.Route("/contacts", func(r chi.Router) {
		r.Post("/", handlers.CreateContact)
		r.Get("/", handlers.GetContacts)
		r.Get("/find", handlers.FindContacts)
		r.Get("/birthdays/next7days", handlers.UpcomingBirthdays)
		r.Get("/{contactID}", handlers.GetContact)
		r.Put("/{contactID}", handlers.UpdateContact)
		r.Delete("/{contactID}", handlers.DeleteContact)
	})
}
