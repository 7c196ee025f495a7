package gateway

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/google/uuid"

	"caovalente_app_echo/internal/models"
)

// MercadoPago uses a bearer access token plus a per-request idempotency key.
// The PIX payload arrives nested under point_of_interaction.transaction_data.
// Webhook notifications only carry the payment id, so ParseWebhook completes
// the event with a payment fetch.
type MercadoPago struct {
	baseURL     string
	accessToken string
	client      *http.Client
}

func NewMercadoPago() *MercadoPago {
	return &MercadoPago{
		baseURL:     envOr("MERCADOPAGO_BASE_URL", "https://api.mercadopago.com"),
		accessToken: os.Getenv("MERCADOPAGO_ACCESS_TOKEN"),
		client:      newHTTPClient(),
	}
}

func (g *MercadoPago) Name() Provider { return ProviderMercadoPago }

func (g *MercadoPago) credentials() (map[string]string, error) {
	if g.accessToken == "" {
		return nil, &ConfigurationError{Provider: ProviderMercadoPago, Missing: "MERCADOPAGO_ACCESS_TOKEN"}
	}
	return map[string]string{"Authorization": "Bearer " + g.accessToken}, nil
}

type mercadoPagoPayment struct {
	ID                int64   `json:"id"`
	Status            string  `json:"status"`
	TransactionAmount float64 `json:"transaction_amount"`
	Metadata          struct {
		CampaignID string `json:"campaign_id"`
	} `json:"metadata"`
	Payer struct {
		Email          string `json:"email"`
		FirstName      string `json:"first_name"`
		Identification struct {
			Number string `json:"number"`
		} `json:"identification"`
	} `json:"payer"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
			TicketURL    string `json:"ticket_url"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

func (g *MercadoPago) CreateCharge(ctx context.Context, req *models.ChargeRequest) (*models.ChargeResult, error) {
	headers, err := g.credentials()
	if err != nil {
		return nil, err
	}
	headers["X-Idempotency-Key"] = uuid.NewString()

	payload := map[string]interface{}{
		"transaction_amount": req.Amount,
		"payment_method_id":  "pix",
		"description":        fmt.Sprintf("Doação para: %s", req.CampaignTitle),
		"payer": map[string]interface{}{
			"email":      req.Payer.Email,
			"first_name": req.Payer.Name,
			"identification": map[string]string{
				"type":   "CPF",
				"number": req.Payer.Document,
			},
		},
		"metadata": map[string]string{
			"campaign_id": req.CampaignID,
		},
	}

	body, err := doRequest(ctx, g.client, ProviderMercadoPago, http.MethodPost, g.baseURL+"/v1/payments", headers, payload)
	if err != nil {
		return nil, err
	}

	var payment mercadoPagoPayment
	if err := decodeInto(ProviderMercadoPago, body, &payment); err != nil {
		return nil, err
	}
	data := payment.PointOfInteraction.TransactionData
	if data.QRCode == "" {
		return nil, &GatewayError{Provider: ProviderMercadoPago, Message: "payment created without PIX transaction data"}
	}

	return &models.ChargeResult{
		Provider: string(ProviderMercadoPago),
		ChargeID: strconv.FormatInt(payment.ID, 10),
		Pix: &models.PixData{
			QRImageBase64: data.QRCodeBase64,
			CopyPasteCode: data.QRCode,
		},
	}, nil
}

func (g *MercadoPago) CheckStatus(ctx context.Context, chargeID string) (*models.StatusResult, error) {
	payment, err := g.fetchPayment(ctx, chargeID)
	if err != nil {
		return nil, err
	}

	status := mercadoPagoStatus(payment.Status)
	return &models.StatusResult{
		Paid:      status == models.ChargeStatusPaid,
		Status:    status,
		RawStatus: payment.Status,
	}, nil
}

type mercadoPagoWebhook struct {
	Action string `json:"action"`
	Type   string `json:"type"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (g *MercadoPago) ParseWebhook(ctx context.Context, body []byte) (*models.WebhookEvent, error) {
	var hook mercadoPagoWebhook
	if err := decodeInto(ProviderMercadoPago, body, &hook); err != nil {
		return nil, err
	}
	if hook.Data.ID == "" {
		return nil, &GatewayError{Provider: ProviderMercadoPago, Message: "notification without a payment id"}
	}

	payment, err := g.fetchPayment(ctx, hook.Data.ID)
	if err != nil {
		return nil, err
	}

	return &models.WebhookEvent{
		Provider:   string(ProviderMercadoPago),
		ChargeID:   strconv.FormatInt(payment.ID, 10),
		Status:     mercadoPagoStatus(payment.Status),
		RawStatus:  payment.Status,
		Amount:     payment.TransactionAmount,
		CampaignID: payment.Metadata.CampaignID,
		Payer: models.Payer{
			Name:     payment.Payer.FirstName,
			Email:    payment.Payer.Email,
			Document: payment.Payer.Identification.Number,
		},
	}, nil
}

func (g *MercadoPago) fetchPayment(ctx context.Context, id string) (*mercadoPagoPayment, error) {
	headers, err := g.credentials()
	if err != nil {
		return nil, err
	}

	body, err := doRequest(ctx, g.client, ProviderMercadoPago, http.MethodGet, g.baseURL+"/v1/payments/"+id, headers, nil)
	if err != nil {
		return nil, err
	}

	var payment mercadoPagoPayment
	if err := decodeInto(ProviderMercadoPago, body, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

func mercadoPagoStatus(s string) models.ChargeStatus {
	switch s {
	case "approved", "accredited":
		return models.ChargeStatusPaid
	case "pending", "in_process", "authorized":
		return models.ChargeStatusPending
	case "rejected", "cancelled", "refunded", "charged_back":
		return models.ChargeStatusFailed
	default:
		return models.ChargeStatusPending
	}
}
