package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"caovalente_app_echo/internal/models"
)

// The bearer token is cached after the first exchange and refreshed exactly
// once when a call comes back 401.
func TestAppmaxTokenRefreshOn401(t *testing.T) {
	var tokenExchanges int
	currentToken := "token_v1"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v3/oauth/token":
			tokenExchanges++
			if tokenExchanges > 1 {
				currentToken = "token_v2"
			}
			json.NewEncoder(w).Encode(map[string]string{"access_token": currentToken})
		case "/v3/order/ord_1":
			if r.Header.Get("Authorization") != "Bearer token_v2" {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"message": "token expired"})
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]string{"status": "pago"},
			})
		default:
			t.Errorf("unexpected request path %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	t.Setenv("APPMAX_BASE_URL", srv.URL)
	t.Setenv("APPMAX_CLIENT_EMAIL", "ong@example.com")
	t.Setenv("APPMAX_CLIENT_TOKEN", "static_token")

	gw := NewAppmax()
	result, err := gw.CheckStatus(context.Background(), "ord_1")
	if err != nil {
		t.Fatalf("CheckStatus returned error: %v", err)
	}

	if tokenExchanges != 2 {
		t.Errorf("token exchanges = %d; want 2 (initial plus one refresh)", tokenExchanges)
	}
	if !result.Paid {
		t.Errorf("Paid = false; want true for status \"pago\"")
	}
}

// The order id is the only identifier appmax echoes back on both the status
// endpoint and the webhook, so CreateCharge must use it even when the
// response carries a pay_reference.
func TestAppmaxChargeIDMatchesWebhook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v3/oauth/token":
			json.NewEncoder(w).Encode(map[string]string{"access_token": "tok"})
		case "/v3/payment/pix":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]interface{}{
					"id":            42,
					"pay_reference": "PAY-REF-1",
					"status":        "pendente",
					"pix_emv":       "emv-code",
					"pix_qrcode":    "aW1hZ2U=",
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	t.Setenv("APPMAX_BASE_URL", srv.URL)
	t.Setenv("APPMAX_CLIENT_EMAIL", "ong@example.com")
	t.Setenv("APPMAX_CLIENT_TOKEN", "static_token")

	gw := NewAppmax()
	result, err := gw.CreateCharge(context.Background(), &models.ChargeRequest{
		Amount:     30,
		CampaignID: "camp_1",
		Payer:      models.Payer{Name: "Ana Lima", Email: "ana@example.com"},
	})
	if err != nil {
		t.Fatalf("CreateCharge returned error: %v", err)
	}
	if result.ChargeID != "42" {
		t.Fatalf("ChargeID = %q; want the order id \"42\"", result.ChargeID)
	}

	ev, err := gw.ParseWebhook(context.Background(), []byte(`{"event": "order_payment_confirmed", "order_id": 42, "custom_txt": "camp_1"}`))
	if err != nil {
		t.Fatalf("ParseWebhook returned error: %v", err)
	}
	if ev.ChargeID != result.ChargeID {
		t.Errorf("webhook ChargeID = %q, create ChargeID = %q; the two confirmation paths must share one id", ev.ChargeID, result.ChargeID)
	}
}

func TestAppmaxParseWebhook(t *testing.T) {
	gw := NewAppmax()

	tests := []struct {
		name           string
		body           string
		expectedStatus models.ChargeStatus
	}{
		{
			name:           "confirmation event forces paid",
			body:           `{"event": "order_payment_confirmed", "status": "integrado", "order_id": 42, "total_amount": 30, "custom_txt": "camp_2"}`,
			expectedStatus: models.ChargeStatusPaid,
		},
		{
			name:           "portuguese paid status",
			body:           `{"status": "pago", "order_id": 43, "total_amount": 15, "custom_txt": "camp_2"}`,
			expectedStatus: models.ChargeStatusPaid,
		},
		{
			name:           "pending order",
			body:           `{"status": "pendente", "order_id": 44, "custom_txt": "camp_2"}`,
			expectedStatus: models.ChargeStatusPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := gw.ParseWebhook(context.Background(), []byte(tt.body))
			if err != nil {
				t.Fatalf("ParseWebhook returned error: %v", err)
			}
			if ev.Status != tt.expectedStatus {
				t.Errorf("Status = %q; want %q", ev.Status, tt.expectedStatus)
			}
			if ev.CampaignID != "camp_2" {
				t.Errorf("CampaignID = %q; want camp_2", ev.CampaignID)
			}
		})
	}
}

func TestDemoChargeNeverPays(t *testing.T) {
	gw := NewDemo()

	result, err := gw.CreateCharge(context.Background(), &models.ChargeRequest{Amount: 10})
	if err != nil {
		t.Fatalf("CreateCharge returned error: %v", err)
	}
	if !result.IsDemo {
		t.Error("demo charge not flagged IsDemo")
	}
	if result.Pix == nil || result.Pix.CopyPasteCode == "" {
		t.Error("demo charge has no PIX code to render")
	}

	status, err := gw.CheckStatus(context.Background(), result.ChargeID)
	if err != nil {
		t.Fatalf("CheckStatus returned error: %v", err)
	}
	if status.Paid {
		t.Error("demo charge reported as paid")
	}

	if _, err := gw.ParseWebhook(context.Background(), []byte("{}")); err == nil {
		t.Error("ParseWebhook returned no error; the demo provider has no webhooks")
	}
}
