package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-service/internal/api/http/handlers"
	"github.com/spec-kit/account-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Queue          *handlers.QueueHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/request-password-reset", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/reset-password", cfg.Auth.ResetPassword)
	authGroup.Post("/change-password", cfg.AuthMiddleware.Handle, cfg.Auth.ChangePassword)

	users := app.Group("/users", cfg.AuthMiddleware.Handle)
	users.Get("/profile", cfg.Users.GetProfile)
	users.Patch("/profile", cfg.Users.UpdateProfile)
	users.Patch("/email", cfg.Users.ChangeEmail)

	queue := app.Group("/test-queue")
	queue.Post("/add", cfg.Queue.AddMessage)
	queue.Get("/job/:id", cfg.Queue.GetJobStatus)
	queue.Get("/stats", cfg.Queue.GetQueueStats)
}
