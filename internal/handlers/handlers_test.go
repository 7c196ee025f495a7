package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"caovalente_app_echo/internal/gateway"
	"caovalente_app_echo/internal/models"
	"caovalente_app_echo/internal/services"
)

type fakeLedger struct {
	campaigns map[string]*models.Campaign
	applied   []float64
}

func (l *fakeLedger) FindCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	if c, ok := l.campaigns[id]; ok {
		return c, nil
	}
	return nil, services.ErrCampaignNotFound
}

func (l *fakeLedger) FindCampaignByCheckoutCode(ctx context.Context, code string) (*models.Campaign, error) {
	for _, c := range l.campaigns {
		if c.BraipCheckoutCode == code {
			return c, nil
		}
	}
	return nil, services.ErrCampaignNotFound
}

func (l *fakeLedger) ApplyDonation(ctx context.Context, campaignDocID string, amount float64) error {
	l.applied = append(l.applied, amount)
	return nil
}

type noopEmitter struct{}

func (noopEmitter) Emit(ctx context.Context, campaign *models.Campaign, eventName, eventID string, payer models.Payer, amount float64) {
}

func newTestPaymentHandler(t *testing.T, ledger *fakeLedger) *PaymentHandler {
	t.Helper()
	reconciler := services.NewReconciler(nil, ledger, services.NewMemoryGuard(), noopEmitter{})
	chargeService := services.NewChargeService(gateway.NewRegistry(), reconciler, noopEmitter{})
	return NewPaymentHandler(chargeService, ledger)
}

func doJSON(t *testing.T, handler echo.HandlerFunc, method, target, body string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return rec, handler(c)
}

func httpErrorCode(t *testing.T, err error) int {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("error = %T (%v); want *echo.HTTPError", err, err)
	}
	return he.Code
}

func TestCreatePaymentValidation(t *testing.T) {
	ledger := &fakeLedger{campaigns: map[string]*models.Campaign{
		"camp_1":      {ID: "camp_1", Gateway: "demo", IsActive: true},
		"camp_closed": {ID: "camp_closed", Gateway: "demo", IsActive: false},
	}}
	h := newTestPaymentHandler(t, ledger)

	tests := []struct {
		name         string
		body         string
		expectedCode int
	}{
		{
			name:         "zero amount",
			body:         `{"amount": 0, "campaignId": "camp_1"}`,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "negative amount",
			body:         `{"amount": -5, "campaignId": "camp_1"}`,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "missing campaign id",
			body:         `{"amount": 10}`,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "unknown campaign",
			body:         `{"amount": 10, "campaignId": "nope"}`,
			expectedCode: http.StatusNotFound,
		},
		{
			name:         "inactive campaign",
			body:         `{"amount": 10, "campaignId": "camp_closed"}`,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "malformed json",
			body:         `{"amount": `,
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := doJSON(t, h.CreatePayment, http.MethodPost, "/api/create-payment", tt.body)
			if err == nil {
				t.Fatal("handler returned no error")
			}
			if code := httpErrorCode(t, err); code != tt.expectedCode {
				t.Errorf("status = %d; want %d", code, tt.expectedCode)
			}
		})
	}
}

func TestCreatePaymentDemoGateway(t *testing.T) {
	ledger := &fakeLedger{campaigns: map[string]*models.Campaign{
		"camp_1": {ID: "camp_1", Title: "Resgate", Gateway: "demo", IsActive: true},
	}}
	h := newTestPaymentHandler(t, ledger)

	rec, err := doJSON(t, h.CreatePayment, http.MethodPost, "/api/create-payment",
		`{"amount": 25, "campaignId": "camp_1", "name": "Ana", "email": "ana@example.com"}`)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}

	var result models.ChargeResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !result.IsDemo {
		t.Error("demo gateway result not flagged IsDemo")
	}
	if result.Pix == nil || result.Pix.CopyPasteCode == "" {
		t.Error("response carries no PIX code")
	}
}

func TestCreatePaymentUnknownGateway(t *testing.T) {
	ledger := &fakeLedger{campaigns: map[string]*models.Campaign{
		"camp_1": {ID: "camp_1", Gateway: "nubank", IsActive: true},
	}}
	h := newTestPaymentHandler(t, ledger)

	_, err := doJSON(t, h.CreatePayment, http.MethodPost, "/api/create-payment",
		`{"amount": 25, "campaignId": "camp_1"}`)
	if code := httpErrorCode(t, err); code != http.StatusBadRequest {
		t.Errorf("status = %d; want 400 for an unsupported gateway", code)
	}
}

func TestCheckPaymentDegradesOnError(t *testing.T) {
	ledger := &fakeLedger{campaigns: map[string]*models.Campaign{}}
	h := newTestPaymentHandler(t, ledger)

	// The demo provider always reports pending; an unconfigured real provider
	// returns an error. Both must come back as paid=false with HTTP 200.
	tests := []struct {
		name string
		body string
	}{
		{
			name: "pending charge",
			body: `{"paymentId": "demo_1", "gateway": "demo"}`,
		},
		{
			name: "provider error",
			body: `{"paymentId": "ch_1", "gateway": "sigilopay"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := doJSON(t, h.CheckPayment, http.MethodPost, "/api/check-payment", tt.body)
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d; want 200", rec.Code)
			}

			var resp CheckPaymentResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Paid {
				t.Error("Paid = true; want false")
			}
		})
	}
}

func TestCheckPaymentMissingID(t *testing.T) {
	h := newTestPaymentHandler(t, &fakeLedger{campaigns: map[string]*models.Campaign{}})

	_, err := doJSON(t, h.CheckPayment, http.MethodPost, "/api/check-payment", `{"gateway": "demo"}`)
	if code := httpErrorCode(t, err); code != http.StatusBadRequest {
		t.Errorf("status = %d; want 400", code)
	}
}

func TestAbandonPayment(t *testing.T) {
	h := newTestPaymentHandler(t, &fakeLedger{campaigns: map[string]*models.Campaign{}})

	rec, err := doJSON(t, h.AbandonPayment, http.MethodPost, "/api/abandon-payment",
		`{"paymentId": "ch_1", "gateway": "sigilopay"}`)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d; want 200", rec.Code)
	}
}

func TestWebhookHandlerUnknownProvider(t *testing.T) {
	ledger := &fakeLedger{campaigns: map[string]*models.Campaign{}}
	reconciler := services.NewReconciler(nil, ledger, services.NewMemoryGuard(), noopEmitter{})
	h := NewWebhookHandler(gateway.NewRegistry(), reconciler)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/nope", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("provider")
	c.SetParamValues("nope")

	err := h.Handle(c)
	if code := httpErrorCode(t, err); code != http.StatusNotFound {
		t.Errorf("status = %d; want 404", code)
	}
}

func TestWebhookHandlerAcksPaidCallback(t *testing.T) {
	campaign := &models.Campaign{ID: "camp_1", IsActive: true}
	ledger := &fakeLedger{campaigns: map[string]*models.Campaign{"camp_1": campaign}}
	reconciler := services.NewReconciler(nil, ledger, services.NewMemoryGuard(), noopEmitter{})
	h := NewWebhookHandler(gateway.NewRegistry(), reconciler)

	body := `{"id": "ch_1", "status": "paid", "amount": 2500, "metadata": {"campaignId": "camp_1"}}`

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/sigilopay", strings.NewReader(body))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("provider")
	c.SetParamValues("sigilopay")

	if err := h.Handle(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d; want 200", rec.Code)
	}
	if len(ledger.applied) != 1 {
		t.Errorf("campaign credited %d times; want 1", len(ledger.applied))
	}
}

func TestWebhookHandlerAcksUnresolvableCallback(t *testing.T) {
	ledger := &fakeLedger{campaigns: map[string]*models.Campaign{}}
	reconciler := services.NewReconciler(nil, ledger, services.NewMemoryGuard(), noopEmitter{})
	h := NewWebhookHandler(gateway.NewRegistry(), reconciler)

	// Paid callback for a campaign we do not know: still acked with 200, and
	// no ledger mutation happens.
	body := `{"id": "ch_1", "status": "paid", "metadata": {"campaignId": "ghost"}}`

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/sigilopay", strings.NewReader(body))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("provider")
	c.SetParamValues("sigilopay")

	if err := h.Handle(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d; want 200", rec.Code)
	}
	if len(ledger.applied) != 0 {
		t.Errorf("campaign credited %d times; want 0", len(ledger.applied))
	}
}

func TestGetCampaignPublicView(t *testing.T) {
	ledger := &fakeLedger{campaigns: map[string]*models.Campaign{
		"camp_1": {
			ID:              "camp_1",
			Title:           "Resgate Caramelo",
			CurrentAmount:   120,
			SupportersCount: 4,
			IsActive:        true,
			MetaPixelID:     "px123",
			MetaAccessToken: "secret_token",
		},
	}}
	h := NewCampaignHandler(ledger, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/campaigns/camp_1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("camp_1")

	if err := h.GetCampaign(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}

	body := rec.Body.String()
	if strings.Contains(body, "secret_token") {
		t.Error("response leaks the attribution access token")
	}
	if strings.Contains(body, "px123") {
		t.Error("response leaks the pixel id")
	}

	var view models.CampaignPublicView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if view.CurrentAmount != 120 || view.SupportersCount != 4 {
		t.Errorf("view totals = (%v, %d); want (120, 4)", view.CurrentAmount, view.SupportersCount)
	}
}

func TestGetCampaignNotFound(t *testing.T) {
	h := NewCampaignHandler(&fakeLedger{campaigns: map[string]*models.Campaign{}}, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/campaigns/nope", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("nope")

	err := h.GetCampaign(c)
	if code := httpErrorCode(t, err); code != http.StatusNotFound {
		t.Errorf("status = %d; want 404", code)
	}
}
