package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/rental-session/internal/api/http/handlers"
	"github.com/spec-kit/rental-session/internal/auth"
	"github.com/spec-kit/rental-session/internal/config"
	"github.com/spec-kit/rental-session/internal/mockapi"
	"github.com/spec-kit/rental-session/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Notifications  *handlers.NotificationsHandler
	Socket         *handlers.SocketHandler
	SocketPath     string
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)

	protected := cfg.AuthMiddleware.Handle

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh", cfg.Auth.Refresh)
	authGroup.Post("/reset-otp", cfg.Auth.RequestResetOTP)
	authGroup.Post("/reset-password/:otp", cfg.Auth.ResetPassword)
	authGroup.Post("/logout", protected, cfg.Auth.Logout)
	authGroup.Get("/profile", protected, cfg.Auth.Profile)
	authGroup.Put("/profile", protected, cfg.Auth.UpdateProfile)
	authGroup.Put("/change-password", protected, cfg.Auth.ChangePassword)
	authGroup.Post("/upload-picture", protected, cfg.Auth.UploadPicture)

	users := app.Group("/users")
	users.Post("/signup", cfg.Auth.Signup)
	users.Post("/enable-2fa", protected, cfg.Auth.Enable2FA)

	notes := app.Group("/notifications", protected, auth.RequireRole())
	notes.Get("", cfg.Notifications.List)
	notes.Post("", cfg.Notifications.Create)
	notes.Patch("/mark-all-as-read", cfg.Notifications.MarkAllAsRead)
	notes.Patch("/mark-as-read/:id", cfg.Notifications.MarkAsRead)
	notes.Get("/preference/:userId", cfg.Notifications.Preferences)
	notes.Patch("/preferences", cfg.Notifications.SavePreferences)
	notes.Delete("/:id", cfg.Notifications.Delete)

	path := cfg.SocketPath
	if path == "" {
		path = "/socket"
	}
	app.Get(path, cfg.Socket.Upgrade, cfg.Socket.Serve())
}

// NewApp assembles the fiber app serving backend.
func NewApp(cfg *config.Config, backend *mockapi.Backend, logger *zap.Logger, metrics *observability.Metrics) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
		BodyLimit:             8 * 1024 * 1024,
	})
	RegisterMiddlewares(app, logger, metrics, 30*time.Second)

	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version),
		Auth:           handlers.NewAuthHandler(backend.Accounts),
		Notifications:  handlers.NewNotificationsHandler(backend.Notifications),
		Socket:         handlers.NewSocketHandler(backend.Tokens, backend.Hub, logger.Named("socket")),
		SocketPath:     cfg.Socket.Path,
		AuthMiddleware: auth.NewAuthMiddleware(backend.Tokens, backend.Users),
	})
	return app
}
