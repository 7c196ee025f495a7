package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"caovalente_app_echo/internal/models"
)

// Stripe speaks form-encoded requests with a bearer secret key. A PIX charge
// is a customer plus a payment intent; the QR payload arrives inside the
// next_action.pix_display_qr_code descriptor, with the image as a hosted SVG
// URL rather than embedded base64.
type Stripe struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

func NewStripe() *Stripe {
	return &Stripe{
		baseURL:   envOr("STRIPE_BASE_URL", "https://api.stripe.com/v1"),
		secretKey: os.Getenv("STRIPE_SECRET_KEY"),
		client:    newHTTPClient(),
	}
}

func (g *Stripe) Name() Provider { return ProviderStripe }

func (g *Stripe) credentials() (map[string]string, error) {
	if g.secretKey == "" {
		return nil, &ConfigurationError{Provider: ProviderStripe, Missing: "STRIPE_SECRET_KEY"}
	}
	return map[string]string{"Authorization": "Bearer " + g.secretKey}, nil
}

type stripeIntent struct {
	ID         string            `json:"id"`
	Status     string            `json:"status"`
	Amount     int64             `json:"amount"`
	Metadata   map[string]string `json:"metadata"`
	NextAction struct {
		PixDisplayQRCode struct {
			Data        string `json:"data"`
			ImageURLSVG string `json:"image_url_svg"`
		} `json:"pix_display_qr_code"`
	} `json:"next_action"`
}

func (g *Stripe) CreateCharge(ctx context.Context, req *models.ChargeRequest) (*models.ChargeResult, error) {
	headers, err := g.credentials()
	if err != nil {
		return nil, err
	}

	custForm := url.Values{}
	custForm.Set("name", req.Payer.Name)
	custForm.Set("email", req.Payer.Email)
	custBody, err := doFormRequest(ctx, g.client, ProviderStripe, http.MethodPost, g.baseURL+"/customers", headers, custForm.Encode())
	if err != nil {
		return nil, err
	}
	var customer struct {
		ID string `json:"id"`
	}
	if err := decodeInto(ProviderStripe, custBody, &customer); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("amount", fmt.Sprintf("%d", centavos(req.Amount)))
	form.Set("currency", "brl")
	form.Set("customer", customer.ID)
	form.Set("description", fmt.Sprintf("Doação para: %s", req.CampaignTitle))
	form.Add("payment_method_types[]", "pix")
	form.Set("payment_method_options[pix][expires_in]", "3600")
	form.Set("metadata[campaign_id]", req.CampaignID)

	body, err := doFormRequest(ctx, g.client, ProviderStripe, http.MethodPost, g.baseURL+"/payment_intents", headers, form.Encode())
	if err != nil {
		return nil, err
	}

	var intent stripeIntent
	if err := decodeInto(ProviderStripe, body, &intent); err != nil {
		return nil, err
	}
	qr := intent.NextAction.PixDisplayQRCode
	if qr.Data == "" {
		return nil, &GatewayError{Provider: ProviderStripe, Message: "payment intent created without a PIX QR code"}
	}

	return &models.ChargeResult{
		Provider: string(ProviderStripe),
		ChargeID: intent.ID,
		Pix: &models.PixData{
			QRImageURL:    qr.ImageURLSVG,
			CopyPasteCode: qr.Data,
		},
	}, nil
}

func (g *Stripe) CheckStatus(ctx context.Context, chargeID string) (*models.StatusResult, error) {
	headers, err := g.credentials()
	if err != nil {
		return nil, err
	}

	body, err := doRequest(ctx, g.client, ProviderStripe, http.MethodGet, g.baseURL+"/payment_intents/"+chargeID, headers, nil)
	if err != nil {
		return nil, err
	}

	var intent stripeIntent
	if err := decodeInto(ProviderStripe, body, &intent); err != nil {
		return nil, err
	}

	status := stripeStatus(intent.Status)
	return &models.StatusResult{
		Paid:      status == models.ChargeStatusPaid,
		Status:    status,
		RawStatus: intent.Status,
	}, nil
}

type stripeWebhook struct {
	Type string `json:"type"`
	Data struct {
		Object stripeIntent `json:"object"`
	} `json:"data"`
}

func (g *Stripe) ParseWebhook(ctx context.Context, body []byte) (*models.WebhookEvent, error) {
	var hook stripeWebhook
	if err := decodeInto(ProviderStripe, body, &hook); err != nil {
		return nil, err
	}

	intent := hook.Data.Object
	status := stripeStatus(intent.Status)
	if hook.Type != "payment_intent.succeeded" && status == models.ChargeStatusPaid {
		status = models.ChargeStatusPending
	}

	return &models.WebhookEvent{
		Provider:   string(ProviderStripe),
		ChargeID:   intent.ID,
		Status:     status,
		RawStatus:  hook.Type,
		Amount:     float64(intent.Amount) / 100,
		CampaignID: intent.Metadata["campaign_id"],
	}, nil
}

// stripeStatus maps payment-intent statuses. requires_action is the normal
// waiting-for-scan state of a PIX intent.
func stripeStatus(s string) models.ChargeStatus {
	switch s {
	case "succeeded":
		return models.ChargeStatusPaid
	case "requires_action", "requires_confirmation", "processing", "requires_capture":
		return models.ChargeStatusPending
	case "canceled", "requires_payment_method":
		return models.ChargeStatusFailed
	default:
		return models.ChargeStatusPending
	}
}
