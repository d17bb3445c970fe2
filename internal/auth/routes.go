package auth

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all auth routes on the given group (mounted at
// /api/v1). The flow endpoints are public; /auth/user requires a live,
// verified session. Logout checks its own bearer token so it can report
// a missing token as 400 rather than the middleware's 403.
func RegisterRoutes(g *echo.Group, h *Handler, service AuthService) {
	a := g.Group("/auth")

	a.POST("/register", h.Register)
	a.POST("/login", h.Login)
	a.POST("/send-magic", h.SendMagic)
	a.GET("/verify-email", h.VerifyEmail)
	a.POST("/forget-password", h.ForgotPassword)
	a.POST("/reset-password/:token", h.ResetPassword)
	a.POST("/logout", h.Logout)

	a.GET("/user", h.CurrentUser, RequireAuth(service), RequireVerified(service))
}
