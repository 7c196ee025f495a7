package gateway

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"caovalente_app_echo/internal/models"
)

// PagBank (PagSeguro) uses a plain bearer token. A PIX charge is an order
// with a qr_codes entry; the QR image comes back as a hosted PNG link rather
// than embedded base64. The campaign id rides in reference_id.
type PagBank struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewPagBank() *PagBank {
	return &PagBank{
		baseURL: envOr("PAGBANK_BASE_URL", "https://api.pagseguro.com"),
		token:   os.Getenv("PAGBANK_TOKEN"),
		client:  newHTTPClient(),
	}
}

func (g *PagBank) Name() Provider { return ProviderPagBank }

func (g *PagBank) credentials() (map[string]string, error) {
	if g.token == "" {
		return nil, &ConfigurationError{Provider: ProviderPagBank, Missing: "PAGBANK_TOKEN"}
	}
	return map[string]string{"Authorization": "Bearer " + g.token}, nil
}

type pagBankOrder struct {
	ID          string `json:"id"`
	ReferenceID string `json:"reference_id"`
	QRCodes     []struct {
		ID    string `json:"id"`
		Text  string `json:"text"`
		Links []struct {
			Rel  string `json:"rel"`
			Href string `json:"href"`
		} `json:"links"`
	} `json:"qr_codes"`
	Charges []struct {
		Status string `json:"status"`
	} `json:"charges"`
}

func (g *PagBank) CreateCharge(ctx context.Context, req *models.ChargeRequest) (*models.ChargeResult, error) {
	headers, err := g.credentials()
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"reference_id": req.CampaignID,
		"customer": map[string]interface{}{
			"name":   req.Payer.Name,
			"email":  req.Payer.Email,
			"tax_id": req.Payer.Document,
		},
		"items": []map[string]interface{}{
			{
				"name":        fmt.Sprintf("Doação para: %s", req.CampaignTitle),
				"quantity":    1,
				"unit_amount": centavos(req.Amount),
			},
		},
		"qr_codes": []map[string]interface{}{
			{
				"amount": map[string]int64{"value": centavos(req.Amount)},
			},
		},
	}

	body, err := doRequest(ctx, g.client, ProviderPagBank, http.MethodPost, g.baseURL+"/orders", headers, payload)
	if err != nil {
		return nil, err
	}

	var order pagBankOrder
	if err := decodeInto(ProviderPagBank, body, &order); err != nil {
		return nil, err
	}
	if len(order.QRCodes) == 0 || order.QRCodes[0].Text == "" {
		return nil, &GatewayError{Provider: ProviderPagBank, Message: "order created without a PIX QR code"}
	}

	qr := order.QRCodes[0]
	pix := &models.PixData{CopyPasteCode: qr.Text}
	for _, link := range qr.Links {
		if link.Rel == "QRCODE.PNG" {
			pix.QRImageURL = link.Href
			break
		}
	}

	return &models.ChargeResult{
		Provider: string(ProviderPagBank),
		ChargeID: order.ID,
		Pix:      pix,
	}, nil
}

func (g *PagBank) CheckStatus(ctx context.Context, chargeID string) (*models.StatusResult, error) {
	headers, err := g.credentials()
	if err != nil {
		return nil, err
	}

	body, err := doRequest(ctx, g.client, ProviderPagBank, http.MethodGet, g.baseURL+"/orders/"+chargeID, headers, nil)
	if err != nil {
		return nil, err
	}

	var order pagBankOrder
	if err := decodeInto(ProviderPagBank, body, &order); err != nil {
		return nil, err
	}

	raw := ""
	if len(order.Charges) > 0 {
		raw = order.Charges[0].Status
	}
	status := pagBankStatus(raw)
	return &models.StatusResult{
		Paid:      status == models.ChargeStatusPaid,
		Status:    status,
		RawStatus: raw,
	}, nil
}

type pagBankWebhook struct {
	ID          string `json:"id"`
	ReferenceID string `json:"reference_id"`
	Status      string `json:"status"`
	Amounts     struct {
		Value int64 `json:"value"`
	} `json:"amounts"`
	Customer struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		TaxID string `json:"tax_id"`
	} `json:"customer"`
}

func (g *PagBank) ParseWebhook(ctx context.Context, body []byte) (*models.WebhookEvent, error) {
	var hook pagBankWebhook
	if err := decodeInto(ProviderPagBank, body, &hook); err != nil {
		return nil, err
	}

	status := pagBankStatus(hook.Status)
	return &models.WebhookEvent{
		Provider:   string(ProviderPagBank),
		ChargeID:   hook.ID,
		Status:     status,
		RawStatus:  hook.Status,
		Amount:     float64(hook.Amounts.Value) / 100,
		CampaignID: hook.ReferenceID,
		Payer: models.Payer{
			Name:     hook.Customer.Name,
			Email:    hook.Customer.Email,
			Document: hook.Customer.TaxID,
		},
	}, nil
}

// pagBankStatus maps PagBank charge statuses. AUTHORIZED means the amount is
// reserved but not captured, so it stays pending.
func pagBankStatus(s string) models.ChargeStatus {
	switch s {
	case "PAID":
		return models.ChargeStatusPaid
	case "AUTHORIZED", "WAITING", "IN_ANALYSIS":
		return models.ChargeStatusPending
	case "DECLINED", "CANCELED":
		return models.ChargeStatusFailed
	default:
		return models.ChargeStatusPending
	}
}
