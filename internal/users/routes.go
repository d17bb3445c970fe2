package users

import (
	"github.com/labstack/echo/v4"

	"github.com/vidorahq/vidora/internal/auth"
)

// RegisterRoutes sets up the account routes on the given group (mounted
// at /api/v1). Profile requires a verified email; change-password only
// requires a live session, since it proves the current password itself.
func RegisterRoutes(g *echo.Group, h *Handler, authService auth.AuthService) {
	u := g.Group("/users")

	u.GET("/profile", h.Profile, auth.RequireAuth(authService), auth.RequireVerified(authService))
	u.PUT("/change-password", h.ChangePassword, auth.RequireAuth(authService))
}
