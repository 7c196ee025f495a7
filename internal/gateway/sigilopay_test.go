package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"caovalente_app_echo/internal/models"
)

func TestSigiloPayCreateCharge(t *testing.T) {
	var gotPath, gotPublicKey, gotSecretKey string
	var gotPayload map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotPublicKey = r.Header.Get("x-public-key")
		gotSecretKey = r.Header.Get("x-secret-key")
		json.NewDecoder(r.Body).Decode(&gotPayload)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "ch_123",
			"status": "pending",
			"pix": map[string]string{
				"qrcode":        "00020101br.gov.bcb.pix...",
				"qrcode_base64": "aW1hZ2U=",
			},
		})
	}))
	defer srv.Close()

	t.Setenv("SIGILOPAY_BASE_URL", srv.URL)
	t.Setenv("SIGILOPAY_PUBLIC_KEY", "pk_test")
	t.Setenv("SIGILOPAY_SECRET_KEY", "sk_test")

	gw := NewSigiloPay()
	result, err := gw.CreateCharge(context.Background(), &models.ChargeRequest{
		Amount:        19.9,
		CampaignID:    "camp_1",
		CampaignTitle: "Resgate Caramelo",
		Payer:         models.Payer{Name: "Maria Silva", Email: "maria@example.com", Document: "12345678901"},
	})
	if err != nil {
		t.Fatalf("CreateCharge returned error: %v", err)
	}

	if gotPath != "/payments" {
		t.Errorf("request path = %q; want /payments", gotPath)
	}
	if gotPublicKey != "pk_test" || gotSecretKey != "sk_test" {
		t.Errorf("auth headers = (%q, %q); want (pk_test, sk_test)", gotPublicKey, gotSecretKey)
	}
	if amount, _ := gotPayload["amount"].(float64); int64(amount) != 1990 {
		t.Errorf("payload amount = %v; want 1990 centavos", gotPayload["amount"])
	}
	meta, _ := gotPayload["metadata"].(map[string]interface{})
	if meta["campaignId"] != "camp_1" {
		t.Errorf("payload metadata.campaignId = %v; want camp_1", meta["campaignId"])
	}

	if result.ChargeID != "ch_123" {
		t.Errorf("ChargeID = %q; want ch_123", result.ChargeID)
	}
	if result.Pix == nil || result.Pix.CopyPasteCode == "" {
		t.Error("result has no PIX copy-paste code")
	}
	if result.IsDemo {
		t.Error("real charge flagged as demo")
	}
}

func TestSigiloPayCreateChargeMissingCredentials(t *testing.T) {
	t.Setenv("SIGILOPAY_PUBLIC_KEY", "pk_test")
	t.Setenv("SIGILOPAY_SECRET_KEY", "")

	gw := NewSigiloPay()
	_, err := gw.CreateCharge(context.Background(), &models.ChargeRequest{Amount: 10})
	if err == nil {
		t.Fatal("CreateCharge returned no error without credentials")
	}

	var confErr *ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("error = %T; want *ConfigurationError", err)
	}
	if confErr.Missing != "SIGILOPAY_SECRET_KEY" {
		t.Errorf("ConfigurationError.Missing = %q; want SIGILOPAY_SECRET_KEY", confErr.Missing)
	}
}

func TestSigiloPayCheckStatusMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>Bad Gateway</html>"))
	}))
	defer srv.Close()

	t.Setenv("SIGILOPAY_BASE_URL", srv.URL)
	t.Setenv("SIGILOPAY_PUBLIC_KEY", "pk")
	t.Setenv("SIGILOPAY_SECRET_KEY", "sk")

	gw := NewSigiloPay()
	_, err := gw.CheckStatus(context.Background(), "ch_1")
	if err == nil {
		t.Fatal("CheckStatus returned no error for malformed body")
	}

	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("error = %T; want *GatewayError", err)
	}
	if !strings.Contains(gwErr.Message, "Bad Gateway") {
		t.Errorf("GatewayError.Message = %q; want raw body excerpt", gwErr.Message)
	}
}

func TestSigiloPayCheckStatusProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"message": "charge not found"})
	}))
	defer srv.Close()

	t.Setenv("SIGILOPAY_BASE_URL", srv.URL)
	t.Setenv("SIGILOPAY_PUBLIC_KEY", "pk")
	t.Setenv("SIGILOPAY_SECRET_KEY", "sk")

	gw := NewSigiloPay()
	_, err := gw.CheckStatus(context.Background(), "ch_missing")

	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("error = %T; want *GatewayError", err)
	}
	if gwErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("StatusCode = %d; want 422", gwErr.StatusCode)
	}
	if gwErr.Message != "charge not found" {
		t.Errorf("Message = %q; want the provider's own message", gwErr.Message)
	}
}

func TestSigiloPayParseWebhook(t *testing.T) {
	gw := NewSigiloPay()

	body := []byte(`{
		"id": "ch_hook",
		"status": "paid",
		"amount": 2500,
		"metadata": {"campaignId": "camp_9"},
		"customer": {"name": "Joao", "email": "joao@example.com", "document": "98765432100"}
	}`)

	ev, err := gw.ParseWebhook(context.Background(), body)
	if err != nil {
		t.Fatalf("ParseWebhook returned error: %v", err)
	}

	if ev.ChargeID != "ch_hook" {
		t.Errorf("ChargeID = %q; want ch_hook", ev.ChargeID)
	}
	if ev.Status != models.ChargeStatusPaid {
		t.Errorf("Status = %q; want PAID", ev.Status)
	}
	if ev.Amount != 25 {
		t.Errorf("Amount = %v; want 25 (centavos converted to BRL)", ev.Amount)
	}
	if ev.CampaignID != "camp_9" {
		t.Errorf("CampaignID = %q; want camp_9", ev.CampaignID)
	}
}
