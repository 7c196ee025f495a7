package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"caovalente_app_echo/internal/models"
)

// Braip is a hosted-checkout provider: charge creation is a client redirect
// to Braip's own checkout page, so the result is a RedirectURL with no charge
// id (Braip assigns trans_id only once the donor completes checkout).
// Postbacks carry a numeric trans_status and correlate back to a campaign via
// its checkout code, not via metadata of ours.
type Braip struct {
	checkoutBaseURL string
	apiBaseURL      string
	apiKey          string
	client          *http.Client
}

// Braip trans_status values, per the postback documentation.
const (
	braipStatusPendingPayment = 1
	braipStatusPaid           = 2
	braipStatusCanceled       = 3
	braipStatusExpired        = 5
	braipStatusRefunded       = 6
	braipStatusChargeback     = 7
)

func NewBraip() *Braip {
	return &Braip{
		checkoutBaseURL: envOr("BRAIP_CHECKOUT_BASE_URL", "https://ev.braip.com/checkout"),
		apiBaseURL:      envOr("BRAIP_API_BASE_URL", "https://api.braip.com/v1"),
		apiKey:          os.Getenv("BRAIP_API_KEY"),
		client:          newHTTPClient(),
	}
}

func (g *Braip) Name() Provider { return ProviderBraip }

func (g *Braip) CreateCharge(ctx context.Context, req *models.ChargeRequest) (*models.ChargeResult, error) {
	// The checkout code is campaign-level configuration; without it there is
	// no checkout page to send the donor to.
	code := strings.TrimSpace(req.CampaignCheckoutCode)
	if code == "" {
		return nil, &ConfigurationError{Provider: ProviderBraip, Missing: "campaign braipCheckoutCode"}
	}

	q := url.Values{}
	q.Set("name", req.Payer.Name)
	q.Set("email", req.Payer.Email)
	if req.Payer.Document != "" {
		q.Set("document", req.Payer.Document)
	}

	return &models.ChargeResult{
		Provider:    string(ProviderBraip),
		RedirectURL: g.checkoutBaseURL + "/" + code + "?" + q.Encode(),
	}, nil
}

func (g *Braip) CheckStatus(ctx context.Context, chargeID string) (*models.StatusResult, error) {
	if g.apiKey == "" {
		return nil, &ConfigurationError{Provider: ProviderBraip, Missing: "BRAIP_API_KEY"}
	}

	body, err := doRequest(ctx, g.client, ProviderBraip, http.MethodGet, g.apiBaseURL+"/transactions/"+chargeID, map[string]string{
		"Authorization": "Bearer " + g.apiKey,
	}, nil)
	if err != nil {
		return nil, err
	}

	var tx struct {
		TransStatus json.Number `json:"trans_status"`
	}
	if err := decodeInto(ProviderBraip, body, &tx); err != nil {
		return nil, err
	}

	code, _ := tx.TransStatus.Int64()
	status := braipStatus(int(code))
	return &models.StatusResult{
		Paid:      status == models.ChargeStatusPaid,
		Status:    status,
		RawStatus: tx.TransStatus.String(),
	}, nil
}

type braipWebhook struct {
	TransStatus json.Number `json:"trans_status"`
	TransID     string      `json:"trans_id"`
	TransValue  json.Number `json:"trans_value"`
	CheckoutID  string      `json:"checkout_id"`
	ClientName  string      `json:"client_name"`
	ClientEmail string      `json:"client_email"`
	ClientCPF   string      `json:"client_cpf"`
}

func (g *Braip) ParseWebhook(ctx context.Context, body []byte) (*models.WebhookEvent, error) {
	var hook braipWebhook
	if err := decodeInto(ProviderBraip, body, &hook); err != nil {
		return nil, err
	}

	code, _ := hook.TransStatus.Int64()
	amount, _ := hook.TransValue.Float64()

	return &models.WebhookEvent{
		Provider:     string(ProviderBraip),
		ChargeID:     hook.TransID,
		Status:       braipStatus(int(code)),
		RawStatus:    strconv.Itoa(int(code)),
		Amount:       amount,
		CheckoutCode: hook.CheckoutID,
		Payer: models.Payer{
			Name:     hook.ClientName,
			Email:    hook.ClientEmail,
			Document: hook.ClientCPF,
		},
	}, nil
}

func braipStatus(code int) models.ChargeStatus {
	switch code {
	case braipStatusPaid:
		return models.ChargeStatusPaid
	case braipStatusPendingPayment:
		return models.ChargeStatusPending
	case braipStatusCanceled, braipStatusExpired, braipStatusRefunded, braipStatusChargeback:
		return models.ChargeStatusFailed
	default:
		return models.ChargeStatusPending
	}
}
