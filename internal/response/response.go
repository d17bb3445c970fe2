// Package response builds the JSON envelope every endpoint returns. All
// success responses flow through JSON and all failures through the app's
// error handler, so the body statusCode can never diverge from the HTTP
// status line.
package response

import (
	"github.com/labstack/echo/v4"
)

// Envelope is the wire shape of every API response. Data is omitted for
// responses that carry no payload, Details only appears on errors.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	OK         bool   `json:"ok"`
	Message    string `json:"message"`
	Data       any    `json:"data,omitempty"`
	Details    any    `json:"details,omitempty"`
}

// JSON writes a success envelope with the given status, message, and
// optional payload. The HTTP status line always mirrors the body.
func JSON(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, Envelope{
		StatusCode: status,
		OK:         true,
		Message:    message,
		Data:       data,
	})
}

// Error writes a failure envelope. Used only by the central error handler;
// handlers return errors instead of calling this directly.
func Error(c echo.Context, status int, message string, details any) error {
	return c.JSON(status, Envelope{
		StatusCode: status,
		OK:         false,
		Message:    message,
		Details:    details,
	})
}
