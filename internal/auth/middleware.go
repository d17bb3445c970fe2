package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/vidorahq/vidora/internal/apperror"
	"github.com/vidorahq/vidora/internal/token"
)

// Context keys for storing the authenticated identity in Echo context.
// Other packages access these via the exported getter functions below.
const (
	contextKeyClaims = "auth_claims"
	contextKeyUserID = "auth_user_id"
)

// bearerPrefix is stripped from the Authorization header.
const bearerPrefix = "Bearer "

// RequireAuth returns middleware that walks a request from bearer header
// to authorized identity: token present, signature valid, session live in
// the cache. On success the claims and user id are stored in the request
// context for downstream handlers.
//
// Failure mapping: no token 403, malformed/bad-signature 400, expired
// token or dead session 401.
func RequireAuth(service AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			bearer := BearerToken(c)
			if bearer == "" {
				return apperror.NewForbidden("Access denied")
			}

			claims, err := service.Authenticate(c.Request().Context(), bearer)
			if err != nil {
				return err
			}

			c.Set(contextKeyClaims, claims)
			c.Set(contextKeyUserID, claims.UserID)

			return next(c)
		}
	}
}

// RequireVerified returns middleware that additionally requires the
// identity's email to be verified. It is self-contained: it re-runs the
// full token and liveness checks rather than assuming RequireAuth ran
// before it, so it can guard a route on its own. The verified flag is
// read live from the credential store, not from the token snapshot.
func RequireVerified(service AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			bearer := BearerToken(c)
			if bearer == "" {
				return apperror.NewForbidden("Access denied")
			}

			claims, err := service.Authenticate(c.Request().Context(), bearer)
			if err != nil {
				return err
			}

			c.Set(contextKeyClaims, claims)
			c.Set(contextKeyUserID, claims.UserID)

			verified, err := service.IsEmailVerified(c.Request().Context(), claims.UserID)
			if err != nil {
				return apperror.NewInternal(err)
			}
			if !verified {
				return apperror.NewUnauthorized("Email not Verified")
			}

			return next(c)
		}
	}
}

// --- Exported getters for other packages ---

// GetClaims retrieves the authenticated session claims from the Echo
// context. Returns nil if the request is not authenticated (middleware
// not applied).
func GetClaims(c echo.Context) *token.SessionClaims {
	claims, ok := c.Get(contextKeyClaims).(*token.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}

// GetUserID retrieves the authenticated user's ID from the Echo context.
// Returns empty string if the request is not authenticated.
func GetUserID(c echo.Context) string {
	id, ok := c.Get(contextKeyUserID).(string)
	if !ok {
		return ""
	}
	return id
}

// BearerToken extracts the token from the Authorization header. Returns
// empty string when the header is absent or not a bearer credential.
func BearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(header, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
}
