package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/vidorahq/vidora/internal/apperror"
	"github.com/vidorahq/vidora/internal/response"
)

// Handler handles HTTP requests for authentication. Handlers are thin:
// they bind and validate the request, call the service, and write the
// response envelope. No business logic lives here.
type Handler struct {
	service AuthService
}

// NewHandler creates a new auth handler with the given service.
func NewHandler(service AuthService) *Handler {
	return &Handler{service: service}
}

// Register creates a new account (POST /auth/register).
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	if missing := missingFields(
		field{"name", req.Name},
		field{"email", req.Email},
		field{"password", req.Password},
	); len(missing) > 0 {
		return apperror.NewValidation("Missing Fields: " + strings.Join(missing, ", "))
	}
	if len(req.Password) < MinPasswordLength {
		return apperror.NewValidation(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	input := RegisterInput{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
	}

	_, tok, err := h.service.Register(c.Request().Context(), input, clientMeta(c))
	if err != nil {
		return err
	}

	return response.JSON(c, http.StatusCreated, "User registered successfully", echo.Map{
		"token": tok,
	})
}

// Login authenticates an account (POST /auth/login). Unverified accounts
// get a 200 with no token and a "verification email sent" message.
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	if missing := missingFields(
		field{"email", req.Email},
		field{"password", req.Password},
	); len(missing) > 0 {
		return apperror.NewValidation("Missing Fields: " + strings.Join(missing, ", "))
	}
	if len(req.Password) < MinPasswordLength {
		return apperror.NewValidation(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	input := LoginInput{
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
	}

	tok, resent, err := h.service.Login(c.Request().Context(), input, clientMeta(c))
	if err != nil {
		return err
	}

	if resent {
		return response.JSON(c, http.StatusOK, "Verification email sent", echo.Map{})
	}

	return response.JSON(c, http.StatusOK, "Login successful", echo.Map{
		"token": tok,
	})
}

// SendMagic dispatches a verification magic link (POST /auth/send-magic).
func (h *Handler) SendMagic(c echo.Context) error {
	var req SendMagicRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if req.Email == "" {
		return apperror.NewValidation("Email is required")
	}

	if err := h.service.SendVerification(c.Request().Context(), strings.TrimSpace(req.Email)); err != nil {
		return err
	}

	return response.JSON(c, http.StatusOK, "Magic link sent!", nil)
}

// VerifyEmail consumes a magic-link token (GET /auth/verify-email?token=).
func (h *Handler) VerifyEmail(c echo.Context) error {
	tok := c.QueryParam("token")
	if tok == "" {
		return apperror.NewValidation("Token is required")
	}

	email, err := h.service.VerifyEmail(c.Request().Context(), tok)
	if err != nil {
		return err
	}

	return response.JSON(c, http.StatusOK, "Token verified", echo.Map{
		"email": email,
	})
}

// ForgotPassword emails a password reset link (POST /auth/forget-password).
func (h *Handler) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if req.Email == "" {
		return apperror.NewValidation("Email is required")
	}

	if err := h.service.ForgotPassword(c.Request().Context(), strings.TrimSpace(req.Email)); err != nil {
		return err
	}

	return response.JSON(c, http.StatusOK, "Password reset email sent", nil)
}

// ResetPassword sets a new password via a reset token
// (POST /auth/reset-password/:token).
func (h *Handler) ResetPassword(c echo.Context) error {
	tok := c.Param("token")
	if tok == "" {
		return apperror.NewValidation("Token is required")
	}

	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if req.Password == "" {
		return apperror.NewValidation("Missing Fields: password")
	}

	if err := h.service.ResetPassword(c.Request().Context(), tok, req.Password); err != nil {
		return err
	}

	return response.JSON(c, http.StatusOK, "Password reset successfully", nil)
}

// Logout invalidates the caller's session (POST /auth/logout).
func (h *Handler) Logout(c echo.Context) error {
	bearer := BearerToken(c)
	if bearer == "" {
		return apperror.NewBadRequest("No token found")
	}

	if err := h.service.Logout(c.Request().Context(), bearer); err != nil {
		return err
	}

	return response.JSON(c, http.StatusOK, "Logged out successfully", nil)
}

// CurrentUser returns the authenticated user's record (GET /auth/user).
// Guarded by RequireVerified.
func (h *Handler) CurrentUser(c echo.Context) error {
	userID := GetUserID(c)
	if userID == "" {
		return apperror.NewUnauthorized("Something went wrong")
	}

	user, err := h.service.GetUser(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	return response.JSON(c, http.StatusOK, "User fetched successfully", user)
}

// --- Helpers ---

// field pairs a request field name with its submitted value.
type field struct {
	name  string
	value string
}

// missingFields returns the names of fields whose values are empty.
func missingFields(fields ...field) []string {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// clientMeta captures the request's client details for the session row.
func clientMeta(c echo.Context) ClientMeta {
	return ClientMeta{
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
}
