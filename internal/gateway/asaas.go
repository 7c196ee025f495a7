package gateway

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"caovalente_app_echo/internal/models"
)

// Asaas authenticates with a single access_token header. Charge creation is a
// three-step dance: create a customer, create the payment against it, then
// fetch the PIX QR code from a separate endpoint. The originating campaign id
// travels in the externalReference field.
type Asaas struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewAsaas() *Asaas {
	return &Asaas{
		baseURL: envOr("ASAAS_BASE_URL", "https://api.asaas.com/v3"),
		apiKey:  os.Getenv("ASAAS_API_KEY"),
		client:  newHTTPClient(),
	}
}

func (g *Asaas) Name() Provider { return ProviderAsaas }

func (g *Asaas) credentials() (map[string]string, error) {
	if g.apiKey == "" {
		return nil, &ConfigurationError{Provider: ProviderAsaas, Missing: "ASAAS_API_KEY"}
	}
	return map[string]string{"access_token": g.apiKey}, nil
}

func (g *Asaas) CreateCharge(ctx context.Context, req *models.ChargeRequest) (*models.ChargeResult, error) {
	headers, err := g.credentials()
	if err != nil {
		return nil, err
	}

	custBody, err := doRequest(ctx, g.client, ProviderAsaas, http.MethodPost, g.baseURL+"/customers", headers, map[string]string{
		"name":    req.Payer.Name,
		"email":   req.Payer.Email,
		"cpfCnpj": req.Payer.Document,
	})
	if err != nil {
		return nil, err
	}
	var customer struct {
		ID string `json:"id"`
	}
	if err := decodeInto(ProviderAsaas, custBody, &customer); err != nil {
		return nil, err
	}

	payBody, err := doRequest(ctx, g.client, ProviderAsaas, http.MethodPost, g.baseURL+"/payments", headers, map[string]interface{}{
		"customer":          customer.ID,
		"billingType":       "PIX",
		"value":             req.Amount,
		"description":       fmt.Sprintf("Doação para: %s", req.CampaignTitle),
		"externalReference": req.CampaignID,
	})
	if err != nil {
		return nil, err
	}
	var payment struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := decodeInto(ProviderAsaas, payBody, &payment); err != nil {
		return nil, err
	}

	qrBody, err := doRequest(ctx, g.client, ProviderAsaas, http.MethodGet, g.baseURL+"/payments/"+payment.ID+"/pixQrCode", headers, nil)
	if err != nil {
		return nil, err
	}
	var qr struct {
		EncodedImage string `json:"encodedImage"`
		Payload      string `json:"payload"`
	}
	if err := decodeInto(ProviderAsaas, qrBody, &qr); err != nil {
		return nil, err
	}
	if qr.Payload == "" {
		return nil, &GatewayError{Provider: ProviderAsaas, Message: "payment created without a PIX payload"}
	}

	return &models.ChargeResult{
		Provider: string(ProviderAsaas),
		ChargeID: payment.ID,
		Pix: &models.PixData{
			QRImageBase64: qr.EncodedImage,
			CopyPasteCode: qr.Payload,
		},
	}, nil
}

func (g *Asaas) CheckStatus(ctx context.Context, chargeID string) (*models.StatusResult, error) {
	headers, err := g.credentials()
	if err != nil {
		return nil, err
	}

	body, err := doRequest(ctx, g.client, ProviderAsaas, http.MethodGet, g.baseURL+"/payments/"+chargeID, headers, nil)
	if err != nil {
		return nil, err
	}

	var payment struct {
		Status string `json:"status"`
	}
	if err := decodeInto(ProviderAsaas, body, &payment); err != nil {
		return nil, err
	}

	status := asaasStatus(payment.Status)
	return &models.StatusResult{
		Paid:      status == models.ChargeStatusPaid,
		Status:    status,
		RawStatus: payment.Status,
	}, nil
}

type asaasWebhook struct {
	Event   string `json:"event"`
	Payment struct {
		ID                string  `json:"id"`
		Value             float64 `json:"value"`
		Status            string  `json:"status"`
		ExternalReference string  `json:"externalReference"`
		Customer          string  `json:"customer"`
	} `json:"payment"`
}

func (g *Asaas) ParseWebhook(ctx context.Context, body []byte) (*models.WebhookEvent, error) {
	var hook asaasWebhook
	if err := decodeInto(ProviderAsaas, body, &hook); err != nil {
		return nil, err
	}

	status := models.ChargeStatusPending
	switch hook.Event {
	case "PAYMENT_RECEIVED", "PAYMENT_CONFIRMED":
		status = models.ChargeStatusPaid
	case "PAYMENT_OVERDUE", "PAYMENT_DELETED", "PAYMENT_REFUNDED":
		status = models.ChargeStatusFailed
	}

	ev := &models.WebhookEvent{
		Provider:   string(ProviderAsaas),
		ChargeID:   hook.Payment.ID,
		Status:     status,
		RawStatus:  hook.Event,
		Amount:     hook.Payment.Value,
		CampaignID: hook.Payment.ExternalReference,
	}

	// The webhook itself carries no payer identity; fetch the customer's
	// CPF/CNPJ for attribution advanced matching. Best effort only.
	if status == models.ChargeStatusPaid && hook.Payment.Customer != "" {
		if doc, err := g.fetchCustomerDocument(ctx, hook.Payment.Customer); err != nil {
			log.Printf("asaas: failed to fetch customer %s: %v", hook.Payment.Customer, err)
		} else {
			ev.Payer.Document = doc
		}
	}

	return ev, nil
}

func (g *Asaas) fetchCustomerDocument(ctx context.Context, customerID string) (string, error) {
	headers, err := g.credentials()
	if err != nil {
		return "", err
	}

	body, err := doRequest(ctx, g.client, ProviderAsaas, http.MethodGet, g.baseURL+"/customers/"+customerID, headers, nil)
	if err != nil {
		return "", err
	}

	var customer struct {
		CpfCnpj string `json:"cpfCnpj"`
	}
	if err := decodeInto(ProviderAsaas, body, &customer); err != nil {
		return "", err
	}
	return customer.CpfCnpj, nil
}

// asaasStatus maps the Asaas payment status vocabulary. RECEIVED and
// CONFIRMED are both settled money; CONFIRMED precedes the funds clearing.
func asaasStatus(s string) models.ChargeStatus {
	switch s {
	case "RECEIVED", "CONFIRMED", "RECEIVED_IN_CASH":
		return models.ChargeStatusPaid
	case "PENDING", "AWAITING_RISK_ANALYSIS":
		return models.ChargeStatusPending
	case "OVERDUE", "REFUNDED", "REFUND_REQUESTED", "CHARGEBACK_REQUESTED", "CHARGEBACK_DISPUTE":
		return models.ChargeStatusFailed
	default:
		return models.ChargeStatusPending
	}
}
