package handlers

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"caovalente_app_echo/internal/gateway"
	"caovalente_app_echo/internal/services"
)

type WebhookHandler struct {
	registry   *gateway.Registry
	reconciler *services.Reconciler
}

func NewWebhookHandler(registry *gateway.Registry, reconciler *services.Reconciler) *WebhookHandler {
	return &WebhookHandler{registry: registry, reconciler: reconciler}
}

// Handle processes POST /api/webhooks/:provider. Providers redeliver on any
// non-2xx response, so logical failures are logged inside the reconciler and
// the callback is acknowledged with 200 regardless; only a request for a
// provider we do not serve at all gets a 404.
func (h *WebhookHandler) Handle(c echo.Context) error {
	gw, err := h.registry.GetByName(c.Param("provider"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Unknown webhook provider")
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusOK, map[string]bool{"received": true})
	}

	h.reconciler.HandleWebhook(c.Request().Context(), gw, body)

	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}
