package app

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vidorahq/vidora/internal/auth"
	"github.com/vidorahq/vidora/internal/mail"
	"github.com/vidorahq/vidora/internal/response"
	"github.com/vidorahq/vidora/internal/token"
	"github.com/vidorahq/vidora/internal/users"
)

// RegisterRoutes wires up all feature packages and mounts their routes
// under /api/v1.
func (a *App) RegisterRoutes() {
	// Shared services.
	tokens := token.New(a.Config.Auth.JWTSecret, a.Config.Auth.SessionTokenTTL)
	mailer := mail.NewSMTPSender(a.Config.Mail)

	// Auth.
	authRepo := auth.NewRepository(a.DB)
	sessionCache := auth.NewSessionCache(a.Redis)
	authService := auth.NewService(authRepo, sessionCache, tokens, mailer,
		a.Config.ClientURL, a.Config.Auth.ActionTokenTTL)
	authHandler := auth.NewHandler(authService)

	// Users.
	usersRepo := users.NewRepository(a.DB)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(usersService)

	// Health check -- used by the load balancer and container orchestrator.
	a.Echo.GET("/healthz", a.healthCheck)

	api := a.Echo.Group("/api/v1")
	auth.RegisterRoutes(api, authHandler, authService)
	users.RegisterRoutes(api, usersHandler, authService)
}

// healthCheck reports liveness of the API and its backing stores. A failing
// dependency returns 503 so the orchestrator can stop routing traffic here.
func (a *App) healthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{
		"database": "ok",
		"redis":    "ok",
	}
	healthy := true

	if err := a.DB.PingContext(ctx); err != nil {
		checks["database"] = "unreachable"
		healthy = false
	}
	if err := a.Redis.Ping(ctx).Err(); err != nil {
		checks["redis"] = "unreachable"
		healthy = false
	}

	if !healthy {
		return response.Error(c, http.StatusServiceUnavailable, "Service degraded", checks)
	}
	return response.JSON(c, http.StatusOK, "OK", checks)
}
