package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// JSONErrorHandler creates a custom error handler for Echo that renders
// every error as a JSON body the storefront can consume.
func JSONErrorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	message := "Something went wrong. Please try again later."

	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if msg, ok := he.Message.(string); ok && msg != "" {
			message = msg
		}
	}

	c.Logger().Error(err)

	if c.Response().Committed {
		return
	}

	if jsonErr := c.JSON(code, map[string]string{"error": message}); jsonErr != nil {
		c.Logger().Error(jsonErr)
	}
}
