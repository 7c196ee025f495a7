package gateway

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"caovalente_app_echo/internal/models"
)

// SigiloPay authenticates every call with a public/secret key header pair and
// returns the PIX payload inline on charge creation.
type SigiloPay struct {
	baseURL   string
	publicKey string
	secretKey string
	client    *http.Client
}

func NewSigiloPay() *SigiloPay {
	return &SigiloPay{
		baseURL:   envOr("SIGILOPAY_BASE_URL", "https://app.sigilopay.com.br/api/v1"),
		publicKey: os.Getenv("SIGILOPAY_PUBLIC_KEY"),
		secretKey: os.Getenv("SIGILOPAY_SECRET_KEY"),
		client:    newHTTPClient(),
	}
}

func (g *SigiloPay) Name() Provider { return ProviderSigiloPay }

func (g *SigiloPay) credentials() (map[string]string, error) {
	if g.publicKey == "" {
		return nil, &ConfigurationError{Provider: ProviderSigiloPay, Missing: "SIGILOPAY_PUBLIC_KEY"}
	}
	if g.secretKey == "" {
		return nil, &ConfigurationError{Provider: ProviderSigiloPay, Missing: "SIGILOPAY_SECRET_KEY"}
	}
	return map[string]string{
		"x-public-key": g.publicKey,
		"x-secret-key": g.secretKey,
	}, nil
}

type sigiloPayCharge struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Pix    struct {
		QRCode       string `json:"qrcode"`
		QRCodeBase64 string `json:"qrcode_base64"`
	} `json:"pix"`
}

func (g *SigiloPay) CreateCharge(ctx context.Context, req *models.ChargeRequest) (*models.ChargeResult, error) {
	headers, err := g.credentials()
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"amount":         centavos(req.Amount),
		"payment_method": "pix",
		"description":    fmt.Sprintf("Doação para: %s", req.CampaignTitle),
		"customer": map[string]string{
			"name":     req.Payer.Name,
			"email":    req.Payer.Email,
			"document": req.Payer.Document,
		},
		"metadata": map[string]string{
			"campaignId": req.CampaignID,
		},
	}
	if appURL := os.Getenv("APP_URL"); appURL != "" {
		payload["postbackUrl"] = appURL + "/api/webhooks/sigilopay"
	}

	body, err := doRequest(ctx, g.client, ProviderSigiloPay, http.MethodPost, g.baseURL+"/payments", headers, payload)
	if err != nil {
		return nil, err
	}

	var charge sigiloPayCharge
	if err := decodeInto(ProviderSigiloPay, body, &charge); err != nil {
		return nil, err
	}
	if charge.Pix.QRCode == "" {
		return nil, &GatewayError{Provider: ProviderSigiloPay, Message: "charge created without a PIX code"}
	}

	return &models.ChargeResult{
		Provider: string(ProviderSigiloPay),
		ChargeID: charge.ID,
		Pix: &models.PixData{
			QRImageBase64: charge.Pix.QRCodeBase64,
			CopyPasteCode: charge.Pix.QRCode,
		},
	}, nil
}

func (g *SigiloPay) CheckStatus(ctx context.Context, chargeID string) (*models.StatusResult, error) {
	headers, err := g.credentials()
	if err != nil {
		return nil, err
	}

	body, err := doRequest(ctx, g.client, ProviderSigiloPay, http.MethodGet, g.baseURL+"/payments/"+chargeID, headers, nil)
	if err != nil {
		return nil, err
	}

	var charge sigiloPayCharge
	if err := decodeInto(ProviderSigiloPay, body, &charge); err != nil {
		return nil, err
	}

	status := sigiloPayStatus(charge.Status)
	return &models.StatusResult{
		Paid:      status == models.ChargeStatusPaid,
		Status:    status,
		RawStatus: charge.Status,
	}, nil
}

type sigiloPayWebhook struct {
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
	} `json:"customer"`
}

func (g *SigiloPay) ParseWebhook(ctx context.Context, body []byte) (*models.WebhookEvent, error) {
	var hook sigiloPayWebhook
	if err := decodeInto(ProviderSigiloPay, body, &hook); err != nil {
		return nil, err
	}

	return &models.WebhookEvent{
		Provider:   string(ProviderSigiloPay),
		ChargeID:   hook.ID,
		Status:     sigiloPayStatus(hook.Status),
		RawStatus:  hook.Status,
		Amount:     float64(hook.Amount) / 100,
		CampaignID: hook.Metadata.CampaignID,
		Payer: models.Payer{
			Name:     hook.Customer.Name,
			Email:    hook.Customer.Email,
			Document: hook.Customer.Document,
		},
	}, nil
}

// sigiloPayStatus maps the SigiloPay status vocabulary onto the canonical
// set. Both "paid" and "completed" mean a settled PIX transfer.
func sigiloPayStatus(s string) models.ChargeStatus {
	switch s {
	case "paid", "completed":
		return models.ChargeStatusPaid
	case "pending", "waiting_payment", "processing":
		return models.ChargeStatusPending
	case "refused", "canceled", "cancelled", "expired", "refunded", "chargeback":
		return models.ChargeStatusFailed
	default:
		return models.ChargeStatusPending
	}
}
