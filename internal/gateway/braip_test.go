package gateway

import (
	"context"
	"errors"
	"strings"
	"testing"

	"caovalente_app_echo/internal/models"
)

func TestBraipCreateChargeRedirect(t *testing.T) {
	gw := NewBraip()

	result, err := gw.CreateCharge(context.Background(), &models.ChargeRequest{
		Amount:               50,
		CampaignID:           "camp_1",
		CampaignCheckoutCode: "chkabc123",
		Payer:                models.Payer{Name: "Ana", Email: "ana@example.com"},
	})
	if err != nil {
		t.Fatalf("CreateCharge returned error: %v", err)
	}

	if result.RedirectURL == "" {
		t.Fatal("result has no redirect URL")
	}
	if !strings.Contains(result.RedirectURL, "/chkabc123?") {
		t.Errorf("RedirectURL = %q; want the campaign checkout code in the path", result.RedirectURL)
	}
	if !strings.Contains(result.RedirectURL, "email=ana%40example.com") {
		t.Errorf("RedirectURL = %q; want the payer email prefilled", result.RedirectURL)
	}
	if result.ChargeID != "" {
		t.Errorf("ChargeID = %q; hosted checkout assigns ids only after completion", result.ChargeID)
	}
}

func TestBraipCreateChargeWithoutCheckoutCode(t *testing.T) {
	gw := NewBraip()

	_, err := gw.CreateCharge(context.Background(), &models.ChargeRequest{
		Amount:     50,
		CampaignID: "camp_1",
	})
	if err == nil {
		t.Fatal("CreateCharge returned no error without a checkout code")
	}

	var confErr *ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("error = %T; want *ConfigurationError", err)
	}
}

func TestBraipParseWebhook(t *testing.T) {
	gw := NewBraip()

	tests := []struct {
		name           string
		body           string
		expectedStatus models.ChargeStatus
	}{
		{
			name:           "paid transaction, numeric status",
			body:           `{"trans_status": 2, "trans_id": "tx1", "trans_value": 40.5, "checkout_id": "chk1", "client_name": "Ana", "client_email": "ana@example.com"}`,
			expectedStatus: models.ChargeStatusPaid,
		},
		{
			name:           "paid transaction, string status",
			body:           `{"trans_status": "2", "trans_id": "tx2", "trans_value": 10, "checkout_id": "chk1"}`,
			expectedStatus: models.ChargeStatusPaid,
		},
		{
			name:           "pending transaction",
			body:           `{"trans_status": 1, "trans_id": "tx3", "checkout_id": "chk1"}`,
			expectedStatus: models.ChargeStatusPending,
		},
		{
			name:           "chargeback",
			body:           `{"trans_status": 7, "trans_id": "tx4", "checkout_id": "chk1"}`,
			expectedStatus: models.ChargeStatusFailed,
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
			if ev.CheckoutCode != "chk1" {
				t.Errorf("CheckoutCode = %q; want chk1", ev.CheckoutCode)
			}
			if ev.CampaignID != "" {
				t.Errorf("CampaignID = %q; braip postbacks correlate by checkout code only", ev.CampaignID)
			}
		})
	}
}
