package gateway

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"sync"

	"caovalente_app_echo/internal/models"
)

// Appmax performs an OAuth-style token exchange before the charge call: the
// account email plus static token are traded for a short-lived bearer token.
// The campaign id rides in the custom_txt field, and the Portuguese status
// vocabulary ("pago", "pendente") is mapped here.
type Appmax struct {
	baseURL     string
	clientEmail string
	clientToken string
	client      *http.Client

	mu          sync.Mutex
	bearerToken string
}

func NewAppmax() *Appmax {
	return &Appmax{
		baseURL:     envOr("APPMAX_BASE_URL", "https://admin.appmax.com.br/api"),
		clientEmail: os.Getenv("APPMAX_CLIENT_EMAIL"),
		clientToken: os.Getenv("APPMAX_CLIENT_TOKEN"),
		client:      newHTTPClient(),
	}
}

func (g *Appmax) Name() Provider { return ProviderAppmax }

func (g *Appmax) checkCredentials() error {
	if g.clientEmail == "" {
		return &ConfigurationError{Provider: ProviderAppmax, Missing: "APPMAX_CLIENT_EMAIL"}
	}
	if g.clientToken == "" {
		return &ConfigurationError{Provider: ProviderAppmax, Missing: "APPMAX_CLIENT_TOKEN"}
	}
	return nil
}

// authenticate exchanges the email/token pair for a bearer token. The token
// is cached and refreshed whenever a call comes back 401.
func (g *Appmax) authenticate(ctx context.Context) (string, error) {
	if err := g.checkCredentials(); err != nil {
		return "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.bearerToken != "" {
		return g.bearerToken, nil
	}

	body, err := doRequest(ctx, g.client, ProviderAppmax, http.MethodPost, g.baseURL+"/v3/oauth/token", nil, map[string]string{
		"email": g.clientEmail,
		"token": g.clientToken,
	})
	if err != nil {
		return "", err
	}

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := decodeInto(ProviderAppmax, body, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", &GatewayError{Provider: ProviderAppmax, Message: "token exchange returned no access_token"}
	}

	g.bearerToken = resp.AccessToken
	return g.bearerToken, nil
}

func (g *Appmax) invalidateToken() {
	g.mu.Lock()
	g.bearerToken = ""
	g.mu.Unlock()
}

func (g *Appmax) authedRequest(ctx context.Context, method, url string, payload interface{}) ([]byte, error) {
	token, err := g.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	body, err := doRequest(ctx, g.client, ProviderAppmax, method, url, map[string]string{"Authorization": "Bearer " + token}, payload)
	if err != nil {
		var gwErr *GatewayError
		if errors.As(err, &gwErr) && gwErr.StatusCode == http.StatusUnauthorized {
			g.invalidateToken()
			token, err = g.authenticate(ctx)
			if err != nil {
				return nil, err
			}
			return doRequest(ctx, g.client, ProviderAppmax, method, url, map[string]string{"Authorization": "Bearer " + token}, payload)
		}
		return nil, err
	}
	return body, nil
}

type appmaxOrder struct {
	ID        int64  `json:"id"`
	Status    string `json:"status"`
	PixEMV    string `json:"pix_emv"`
	PixQRCode string `json:"pix_qrcode"`
}

func (g *Appmax) CreateCharge(ctx context.Context, req *models.ChargeRequest) (*models.ChargeResult, error) {
	nameParts := strings.Fields(req.Payer.Name)
	firstName := req.Payer.Name
	lastName := ""
	if len(nameParts) > 1 {
		firstName = nameParts[0]
		lastName = nameParts[len(nameParts)-1]
	}

	payload := map[string]interface{}{
		"total": req.Amount,
		"customer": map[string]string{
			"firstname": firstName,
			"lastname":  lastName,
			"email":     req.Payer.Email,
			"cpf":       req.Payer.Document,
		},
		"custom_txt": req.CampaignID,
	}

	body, err := g.authedRequest(ctx, http.MethodPost, g.baseURL+"/v3/payment/pix", payload)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Data appmaxOrder `json:"data"`
	}
	if err := decodeInto(ProviderAppmax, body, &envelope); err != nil {
		return nil, err
	}
	order := envelope.Data
	if order.PixEMV == "" {
		return nil, &GatewayError{Provider: ProviderAppmax, Message: "order created without a PIX EMV code"}
	}

	// The order id is the one identifier shared by the status endpoint and
	// the webhook payload, so it is the charge id on every path.
	return &models.ChargeResult{
		Provider: string(ProviderAppmax),
		ChargeID: formatInt(order.ID),
		Pix: &models.PixData{
			QRImageBase64: order.PixQRCode,
			CopyPasteCode: order.PixEMV,
		},
	}, nil
}

func (g *Appmax) CheckStatus(ctx context.Context, chargeID string) (*models.StatusResult, error) {
	body, err := g.authedRequest(ctx, http.MethodGet, g.baseURL+"/v3/order/"+chargeID, nil)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Data appmaxOrder `json:"data"`
	}
	if err := decodeInto(ProviderAppmax, body, &envelope); err != nil {
		return nil, err
	}

	status := appmaxStatus(envelope.Data.Status)
	return &models.StatusResult{
		Paid:      status == models.ChargeStatusPaid,
		Status:    status,
		RawStatus: envelope.Data.Status,
	}, nil
}

type appmaxWebhook struct {
	Event       string  `json:"event"`
	Status      string  `json:"status"`
	OrderID     int64   `json:"order_id"`
	TotalAmount float64 `json:"total_amount"`
	CustomTxt   string  `json:"custom_txt"`
	Customer    struct {
		Firstname string `json:"firstname"`
		Lastname  string `json:"lastname"`
		Email     string `json:"email"`
		CPF       string `json:"cpf"`
		Telephone string `json:"telephone"`
	} `json:"customer"`
}

func (g *Appmax) ParseWebhook(ctx context.Context, body []byte) (*models.WebhookEvent, error) {
	var hook appmaxWebhook
	if err := decodeInto(ProviderAppmax, body, &hook); err != nil {
		return nil, err
	}

	status := appmaxStatus(hook.Status)
	if hook.Event == "order_payment_confirmed" {
		status = models.ChargeStatusPaid
	}

	raw := hook.Event
	if raw == "" {
		raw = hook.Status
	}

	return &models.WebhookEvent{
		Provider:   string(ProviderAppmax),
		ChargeID:   formatInt(hook.OrderID),
		Status:     status,
		RawStatus:  raw,
		Amount:     hook.TotalAmount,
		CampaignID: hook.CustomTxt,
		Payer: models.Payer{
			Name:     strings.TrimSpace(hook.Customer.Firstname + " " + hook.Customer.Lastname),
			Email:    hook.Customer.Email,
			Phone:    hook.Customer.Telephone,
			Document: hook.Customer.CPF,
		},
	}, nil
}

func appmaxStatus(s string) models.ChargeStatus {
	switch strings.ToLower(s) {
	case "pago", "aprovado":
		return models.ChargeStatusPaid
	case "pendente", "aguardando", "integrado":
		return models.ChargeStatusPending
	case "cancelado", "estornado", "recusado":
		return models.ChargeStatusFailed
	default:
		return models.ChargeStatusPending
	}
}
