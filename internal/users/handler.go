package users

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vidorahq/vidora/internal/apperror"
	"github.com/vidorahq/vidora/internal/auth"
	"github.com/vidorahq/vidora/internal/response"
)

// ChangePasswordRequest holds the data submitted to PUT /users/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Handler handles HTTP requests for account operations.
type Handler struct {
	service Service
}

// NewHandler creates a users handler with the given service.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Profile returns the caller's own record (GET /users/profile).
// Guarded by RequireVerified.
func (h *Handler) Profile(c echo.Context) error {
	userID := auth.GetUserID(c)
	if userID == "" {
		return apperror.NewUnauthorized("Something went wrong")
	}

	user, err := h.service.GetProfile(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	return response.JSON(c, http.StatusOK, "User fetched successfully", user)
}

// ChangePassword rotates the caller's password (PUT /users/change-password).
// Guarded by RequireAuth.
func (h *Handler) ChangePassword(c echo.Context) error {
	userID := auth.GetUserID(c)
	if userID == "" {
		return apperror.NewUnauthorized("Something went wrong")
	}

	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return apperror.NewValidation("Current password and new password are required")
	}

	if err := h.service.ChangePassword(c.Request().Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}

	return response.JSON(c, http.StatusOK, "Password changed successfully", nil)
}
