package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
)

// RequireWebhookToken returns a middleware that checks the shared webhook
// token when WEBHOOK_TOKEN is set. Most providers cannot send custom headers
// on their callbacks, so when the variable is unset the check is a no-op and
// dedup plus strict correlation remain the defense.
func RequireWebhookToken() echo.MiddlewareFunc {
	token := os.Getenv("WEBHOOK_TOKEN")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token == "" {
				return next(c)
			}

			got := c.Request().Header.Get("X-Webhook-Token")
			if got == "" {
				got = c.QueryParam("token")
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid webhook token")
			}

			return next(c)
		}
	}
}
