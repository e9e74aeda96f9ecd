// Package api exposes the JSON request/response surface of the messenger.
// Handlers stay thin: decode, call the service, map errors to statuses.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fluent-messenger/services"
)

// NewRouter wires the HTTP routes to the services.
func NewRouter(log *slog.Logger, authSvc services.IAuthService, userSvc services.IUserService, chatSvc services.IChatService) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	authHandler := &AuthHandler{log: log, service: authSvc}
	userHandler := &UserHandler{log: log, service: userSvc}
	chatHandler := &ChatHandler{log: log, service: chatSvc}

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/register", authHandler.Register)
		api.Post("/auth/login", authHandler.Login)

		api.Get("/users", userHandler.List)
		api.Get("/users/{id}", userHandler.Get)
		api.Put("/users/{id}", userHandler.Update)

		api.Get("/chats", chatHandler.List)
		api.Post("/chats", chatHandler.Create)
		api.Get("/chats/{chatID}", chatHandler.Get)
		api.Post("/chats/{chatID}/read", chatHandler.MarkRead)
		api.Get("/chats/{chatID}/messages", chatHandler.ListMessages)
		api.Post("/chats/{chatID}/messages", chatHandler.SendMessage)
	})

	return r
}
