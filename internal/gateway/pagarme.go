package gateway

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"

	"caovalente_app_echo/internal/models"
)

// Pagarme covers Stone / Pagar.me v5. Basic auth where the username is the
// secret key and the password is empty. Orders carry our campaign id in the
// metadata map; the order.paid webhook echoes it back.
type Pagarme struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

func NewPagarme() *Pagarme {
	return &Pagarme{
		baseURL:   envOr("PAGARME_BASE_URL", "https://api.pagar.me/core/v5"),
		secretKey: os.Getenv("PAGARME_SECRET_KEY"),
		client:    newHTTPClient(),
	}
}

func (g *Pagarme) Name() Provider { return ProviderPagarme }

func (g *Pagarme) credentials() (map[string]string, error) {
	if g.secretKey == "" {
		return nil, &ConfigurationError{Provider: ProviderPagarme, Missing: "PAGARME_SECRET_KEY"}
	}
	auth := base64.StdEncoding.EncodeToString([]byte(g.secretKey + ":"))
	return map[string]string{"Authorization": "Basic " + auth}, nil
}

type pagarmeOrder struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Charges []struct {
		ID              string `json:"id"`
		Status          string `json:"status"`
		LastTransaction struct {
			QRCode    string `json:"qr_code"`
			QRCodeURL string `json:"qr_code_url"`
		} `json:"last_transaction"`
	} `json:"charges"`
}

func (g *Pagarme) CreateCharge(ctx context.Context, req *models.ChargeRequest) (*models.ChargeResult, error) {
	headers, err := g.credentials()
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"items": []map[string]interface{}{
			{
				"amount":      centavos(req.Amount),
				"description": fmt.Sprintf("Doação para: %s", req.CampaignTitle),
				"quantity":    1,
			},
		},
		"customer": map[string]interface{}{
			"name":     req.Payer.Name,
			"email":    req.Payer.Email,
			"document": req.Payer.Document,
			"type":     "individual",
		},
		"payments": []map[string]interface{}{
			{
				"payment_method": "pix",
				"pix": map[string]interface{}{
					"expires_in": 3600,
				},
			},
		},
		"metadata": map[string]string{
			"campaignId": req.CampaignID,
		},
	}

	body, err := doRequest(ctx, g.client, ProviderPagarme, http.MethodPost, g.baseURL+"/orders", headers, payload)
	if err != nil {
		return nil, err
	}

	var order pagarmeOrder
	if err := decodeInto(ProviderPagarme, body, &order); err != nil {
		return nil, err
	}
	if len(order.Charges) == 0 || order.Charges[0].LastTransaction.QRCode == "" {
		return nil, &GatewayError{Provider: ProviderPagarme, Message: "order created without a PIX transaction"}
	}

	tx := order.Charges[0].LastTransaction
	return &models.ChargeResult{
		Provider: string(ProviderPagarme),
		ChargeID: order.ID,
		Pix: &models.PixData{
			QRImageURL:    tx.QRCodeURL,
			CopyPasteCode: tx.QRCode,
		},
	}, nil
}

func (g *Pagarme) CheckStatus(ctx context.Context, chargeID string) (*models.StatusResult, error) {
	headers, err := g.credentials()
	if err != nil {
		return nil, err
	}

	body, err := doRequest(ctx, g.client, ProviderPagarme, http.MethodGet, g.baseURL+"/orders/"+chargeID, headers, nil)
	if err != nil {
		return nil, err
	}

	var order pagarmeOrder
	if err := decodeInto(ProviderPagarme, body, &order); err != nil {
		return nil, err
	}

	status := pagarmeStatus(order.Status)
	return &models.StatusResult{
		Paid:      status == models.ChargeStatusPaid,
		Status:    status,
		RawStatus: order.Status,
	}, nil
}

type pagarmeWebhook struct {
	Type string `json:"type"`
	Data struct {
		ID       string `json:"id"`
		Status   string `json:"status"`
		Amount   int64  `json:"amount"`
		Metadata struct {
			CampaignID string `json:"campaignId"`
		} `json:"metadata"`
		Customer struct {
			Name     string `json:"name"`
			Email    string `json:"email"`
			Document string `json:"document"`
			Phones   struct {
				MobilePhone struct {
					FullNumber string `json:"full_number"`
				} `json:"mobile_phone"`
			} `json:"phones"`
		} `json:"customer"`
	} `json:"data"`
}

func (g *Pagarme) ParseWebhook(ctx context.Context, body []byte) (*models.WebhookEvent, error) {
	var hook pagarmeWebhook
	if err := decodeInto(ProviderPagarme, body, &hook); err != nil {
		return nil, err
	}

	status := pagarmeStatus(hook.Data.Status)
	if hook.Type != "order.paid" {
		// Only order.paid confirms settled money; every other event type is
		// informational here.
		if status == models.ChargeStatusPaid {
			status = models.ChargeStatusPending
		}
	}

	return &models.WebhookEvent{
		Provider:   string(ProviderPagarme),
		ChargeID:   hook.Data.ID,
		Status:     status,
		RawStatus:  hook.Type,
		Amount:     float64(hook.Data.Amount) / 100,
		CampaignID: hook.Data.Metadata.CampaignID,
		Payer: models.Payer{
			Name:     hook.Data.Customer.Name,
			Email:    hook.Data.Customer.Email,
			Phone:    hook.Data.Customer.Phones.MobilePhone.FullNumber,
			Document: hook.Data.Customer.Document,
		},
	}, nil
}

func pagarmeStatus(s string) models.ChargeStatus {
	switch s {
	case "paid":
		return models.ChargeStatusPaid
	case "pending", "processing":
		return models.ChargeStatusPending
	case "failed", "canceled", "payment_failed":
		return models.ChargeStatusFailed
	default:
		return models.ChargeStatusPending
	}
}
