package gateway

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"caovalente_app_echo/internal/models"
)

// SimPay is a bearer-token PIX gateway. Postbacks are loosely shaped: the
// charge id may arrive as "id" or "transaction_id", and a paid charge may be
// signaled by status "PAID", "paid", or a bare paid flag. The campaign id
// rides in external_id.
type SimPay struct {
	baseURL  string
	apiToken string
	client   *http.Client
}

func NewSimPay() *SimPay {
	return &SimPay{
		baseURL:  envOr("SIMPAY_BASE_URL", "https://api.simpay.com.br/v1"),
		apiToken: os.Getenv("SIMPAY_API_TOKEN"),
		client:   newHTTPClient(),
	}
}

func (g *SimPay) Name() Provider { return ProviderSimPay }

func (g *SimPay) credentials() (map[string]string, error) {
	if g.apiToken == "" {
		return nil, &ConfigurationError{Provider: ProviderSimPay, Missing: "SIMPAY_API_TOKEN"}
	}
	return map[string]string{"Authorization": "Bearer " + g.apiToken}, nil
}

type simPayCharge struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Paid         bool   `json:"paid"`
	QRCode       string `json:"qrcode"`
	QRCodeBase64 string `json:"qrcode_base64"`
}

func (g *SimPay) CreateCharge(ctx context.Context, req *models.ChargeRequest) (*models.ChargeResult, error) {
	headers, err := g.credentials()
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"amount":      centavos(req.Amount),
		"description": fmt.Sprintf("Doação para: %s", req.CampaignTitle),
		"external_id": req.CampaignID,
		"payer": map[string]string{
			"name":     req.Payer.Name,
			"email":    req.Payer.Email,
			"document": req.Payer.Document,
		},
	}

	body, err := doRequest(ctx, g.client, ProviderSimPay, http.MethodPost, g.baseURL+"/pix", headers, payload)
	if err != nil {
		return nil, err
	}

	var charge simPayCharge
	if err := decodeInto(ProviderSimPay, body, &charge); err != nil {
		return nil, err
	}
	if charge.QRCode == "" {
		return nil, &GatewayError{Provider: ProviderSimPay, Message: "charge created without a PIX code"}
	}

	return &models.ChargeResult{
		Provider: string(ProviderSimPay),
		ChargeID: charge.ID,
		Pix: &models.PixData{
			QRImageBase64: charge.QRCodeBase64,
			CopyPasteCode: charge.QRCode,
		},
	}, nil
}

func (g *SimPay) CheckStatus(ctx context.Context, chargeID string) (*models.StatusResult, error) {
	headers, err := g.credentials()
	if err != nil {
		return nil, err
	}

	body, err := doRequest(ctx, g.client, ProviderSimPay, http.MethodGet, g.baseURL+"/pix/"+chargeID, headers, nil)
	if err != nil {
		return nil, err
	}

	var charge simPayCharge
	if err := decodeInto(ProviderSimPay, body, &charge); err != nil {
		return nil, err
	}

	status := simPayStatus(charge.Status, charge.Paid)
	return &models.StatusResult{
		Paid:      status == models.ChargeStatusPaid,
		Status:    status,
		RawStatus: charge.Status,
	}, nil
}

type simPayWebhook struct {
	ID            string  `json:"id"`
	TransactionID string  `json:"transaction_id"`
	Status        string  `json:"status"`
	Paid          bool    `json:"paid"`
	Amount        float64 `json:"amount"`
	ExternalID    string  `json:"external_id"`
	Payer         struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Document string `json:"document"`
	} `json:"payer"`
}

func (g *SimPay) ParseWebhook(ctx context.Context, body []byte) (*models.WebhookEvent, error) {
	var hook simPayWebhook
	if err := decodeInto(ProviderSimPay, body, &hook); err != nil {
		return nil, err
	}

	chargeID := hook.ID
	if chargeID == "" {
		chargeID = hook.TransactionID
	}

	return &models.WebhookEvent{
		Provider:   string(ProviderSimPay),
		ChargeID:   chargeID,
		Status:     simPayStatus(hook.Status, hook.Paid),
		RawStatus:  hook.Status,
		Amount:     hook.Amount,
		CampaignID: hook.ExternalID,
		Payer: models.Payer{
			Name:     hook.Payer.Name,
			Email:    hook.Payer.Email,
			Document: hook.Payer.Document,
		},
	}, nil
}

func simPayStatus(s string, paid bool) models.ChargeStatus {
	if paid {
		return models.ChargeStatusPaid
	}
	switch s {
	case "PAID", "paid", "COMPLETED", "completed":
		return models.ChargeStatusPaid
	case "PENDING", "pending", "WAITING", "waiting":
		return models.ChargeStatusPending
	case "EXPIRED", "expired", "CANCELED", "canceled", "REFUSED", "refused":
		return models.ChargeStatusFailed
	default:
		return models.ChargeStatusPending
	}
}
