package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"caovalente_app_echo/internal/models"
	"caovalente_app_echo/internal/services"
)

type CampaignHandler struct {
	ledger CampaignFinder
	cache  *services.RedisCache
}

func NewCampaignHandler(ledger CampaignFinder, cache *services.RedisCache) *CampaignHandler {
	return &CampaignHandler{ledger: ledger, cache: cache}
}

// GetCampaign handles GET /api/campaigns/:id. The public view strips the
// attribution access token; totals are cached briefly because the storefront
// refreshes them on every page view.
func (h *CampaignHandler) GetCampaign(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid campaign id")
	}

	fetch := func() (models.CampaignPublicView, error) {
		campaign, err := h.ledger.FindCampaign(c.Request().Context(), id)
		if err != nil {
			return models.CampaignPublicView{}, err
		}
		return campaign.PublicView(), nil
	}

	var view models.CampaignPublicView
	var err error
	if h.cache != nil {
		view, err = services.GetOrSet(h.cache, c.Request().Context(), "campaign:"+id, 30*time.Second, fetch)
	} else {
		view, err = fetch()
	}

	if err != nil {
		if errors.Is(err, services.ErrCampaignNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Campaign not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load campaign")
	}

	return c.JSON(http.StatusOK, view)
}
