package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"caovalente_app_echo/internal/gateway"
	"caovalente_app_echo/internal/models"
	"caovalente_app_echo/internal/services"
)

// CampaignFinder is the slice of the ledger the payment handlers need.
type CampaignFinder interface {
	FindCampaign(ctx context.Context, id string) (*models.Campaign, error)
}

type PaymentHandler struct {
	chargeService *services.ChargeService
	ledger        CampaignFinder
}

func NewPaymentHandler(chargeService *services.ChargeService, ledger CampaignFinder) *PaymentHandler {
	return &PaymentHandler{chargeService: chargeService, ledger: ledger}
}

// CreatePayment handles POST /api/create-payment: validates the checkout
// payload, resolves the campaign, and returns the normalized charge result.
func (h *PaymentHandler) CreatePayment(c echo.Context) error {
	var req CreatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}

	if req.Amount <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Amount must be greater than zero")
	}
	if strings.TrimSpace(req.CampaignID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Campaign id is required")
	}

	campaign, err := h.ledger.FindCampaign(c.Request().Context(), req.CampaignID)
	if err != nil {
		if errors.Is(err, services.ErrCampaignNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Campaign not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load campaign")
	}
	if !campaign.IsActive {
		return echo.NewHTTPError(http.StatusBadRequest, "Campaign is not accepting donations")
	}

	chargeReq := &models.ChargeRequest{
		Amount:  req.Amount,
		Gateway: req.Gateway,
		Payer: models.Payer{
			Name:     req.Name,
			Email:    req.Email,
			Phone:    req.Phone,
			Document: req.Document,
		},
	}

	result, err := h.chargeService.CreatePixCharge(c.Request().Context(), campaign, chargeReq)
	if err != nil {
		return chargeError(err)
	}

	return c.JSON(http.StatusOK, result)
}

// CheckPayment handles POST /api/check-payment: one status observation for
// the client's polling loop. A paid observation also fires the Purchase
// conversion event with the charge id as event id, mirroring the
// server-webhook path so the attribution API can deduplicate the two.
func (h *PaymentHandler) CheckPayment(c echo.Context) error {
	var req CheckPaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	if req.PaymentID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Payment id is required")
	}

	result, err := h.chargeService.CheckCharge(c.Request().Context(), req.Gateway, req.PaymentID)
	if err != nil {
		// The poll loop treats any failure as "not paid yet"; the reason is
		// for the operator, not the donor.
		log.Printf("check-payment: %s charge %s: %v", req.Gateway, req.PaymentID, err)
		return c.JSON(http.StatusOK, CheckPaymentResponse{Paid: false, Error: "status check failed"})
	}

	return c.JSON(http.StatusOK, CheckPaymentResponse{
		Paid:      result.Paid,
		RawStatus: result.RawStatus,
	})
}

// AbandonPayment handles POST /api/abandon-payment: the checkout modal was
// closed before confirmation, so the charge's watcher must stop polling.
func (h *PaymentHandler) AbandonPayment(c echo.Context) error {
	var req AbandonPaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	if req.PaymentID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Payment id is required")
	}

	h.chargeService.TeardownWatcher(req.Gateway, req.PaymentID)
	return c.JSON(http.StatusOK, map[string]bool{"abandoned": true})
}

// chargeError maps the gateway error taxonomy onto HTTP statuses the
// checkout UI can show.
func chargeError(err error) error {
	var unknownErr *gateway.UnknownProviderError
	if errors.As(err, &unknownErr) {
		return echo.NewHTTPError(http.StatusBadRequest, unknownErr.Error())
	}

	var confErr *gateway.ConfigurationError
	if errors.As(err, &confErr) {
		return echo.NewHTTPError(http.StatusBadRequest, confErr.Error())
	}

	var gwErr *gateway.GatewayError
	if errors.As(err, &gwErr) {
		return echo.NewHTTPError(http.StatusBadGateway, gwErr.Error())
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return echo.NewHTTPError(http.StatusGatewayTimeout, "Provider did not respond in time")
	}

	return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create payment: "+err.Error())
}
