package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"caovalente_app_echo/internal/models"
)

// Conversion event names understood by the attribution API.
const (
	EventInitiateCheckout = "InitiateCheckout"
	EventAddPaymentInfo   = "AddPaymentInfo"
	EventPurchase         = "Purchase"
)

// PurchaseEventID derives the attribution event id for a confirmed charge.
// Both confirmation paths (status poller and provider webhook) use this same
// derivation, so the attribution API deduplicates the two signals instead of
// double-counting one sale.
func PurchaseEventID(chargeID string) string {
	return chargeID
}

// ConversionTracker sends hashed conversion events to the Meta Conversions
// API. Every method is fire-and-forget: failures are logged and never
// propagated, because tracking must not break the purchase flow.
type ConversionTracker struct {
	baseURL string
	client  *http.Client
}

func NewConversionTracker() *ConversionTracker {
	baseURL := os.Getenv("META_CAPI_BASE_URL")
	if baseURL == "" {
		baseURL = "https://graph.facebook.com/v17.0"
	}
	return &ConversionTracker{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type conversionUserData struct {
	Em         []string `json:"em,omitempty"`
	Ph         []string `json:"ph,omitempty"`
	Fn         []string `json:"fn,omitempty"`
	Ln         []string `json:"ln,omitempty"`
	ExternalID []string `json:"external_id,omitempty"`
}

type conversionEvent struct {
	EventName    string             `json:"event_name"`
	EventID      string             `json:"event_id"`
	EventTime    int64              `json:"event_time"`
	ActionSource string             `json:"action_source"`
	UserData     conversionUserData `json:"user_data"`
	CustomData   struct {
		Currency    string  `json:"currency"`
		Value       float64 `json:"value"`
		ContentName string  `json:"content_name"`
		ContentType string  `json:"content_type"`
	} `json:"custom_data"`
}

// Emit builds and sends one conversion event for a campaign. A campaign
// without pixel credentials is silently skipped; every other failure is
// logged and swallowed.
func (t *ConversionTracker) Emit(ctx context.Context, campaign *models.Campaign, eventName, eventID string, payer models.Payer, amount float64) {
	if campaign == nil || campaign.MetaPixelID == "" || campaign.MetaAccessToken == "" {
		return
	}

	event := conversionEvent{
		EventName:    eventName,
		EventID:      eventID,
		EventTime:    time.Now().Unix(),
		ActionSource: "website",
		UserData:     buildUserData(payer),
	}
	event.CustomData.Currency = "BRL"
	event.CustomData.Value = amount
	event.CustomData.ContentName = campaign.Title
	event.CustomData.ContentType = "product"

	body, err := json.Marshal(map[string]interface{}{
		"data": []conversionEvent{event},
	})
	if err != nil {
		log.Printf("tracking: failed to marshal %s event: %v", eventName, err)
		return
	}

	endpoint := fmt.Sprintf("%s/%s/events?access_token=%s", t.baseURL, campaign.MetaPixelID, url.QueryEscape(campaign.MetaAccessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(body))
	if err != nil {
		log.Printf("tracking: failed to create %s request: %v", eventName, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		log.Printf("tracking: failed to send %s event %s: %v", eventName, eventID, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		log.Printf("tracking: %s event %s rejected with status %d", eventName, eventID, resp.StatusCode)
	}
}

// buildUserData hashes every identifying field for advanced matching. Raw
// values never leave this function.
func buildUserData(payer models.Payer) conversionUserData {
	var data conversionUserData

	if email := strings.ToLower(strings.TrimSpace(payer.Email)); email != "" && !isPlaceholderEmail(email) {
		data.Em = []string{hashValue(email)}
	}
	if phone := digitsOnly(payer.Phone); phone != "" {
		data.Ph = []string{hashValue(phone)}
	}
	if doc := digitsOnly(payer.Document); doc != "" {
		data.ExternalID = []string{hashValue(doc)}
	}

	name := strings.TrimSpace(payer.Name)
	if name != "" {
		parts := strings.Fields(name)
		data.Fn = []string{hashValue(strings.ToLower(parts[0]))}
		if len(parts) > 1 {
			data.Ln = []string{hashValue(strings.ToLower(parts[len(parts)-1]))}
		}
	}

	return data
}

func hashValue(v string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(v))))
	return hex.EncodeToString(sum[:])
}

func digitsOnly(v string) string {
	var b strings.Builder
	for _, r := range v {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// isPlaceholderEmail filters the sentinel addresses the checkout uses when no
// real payer info was collected, so they don't degrade the attribution
// match rate.
func isPlaceholderEmail(email string) bool {
	if !strings.Contains(email, "@") {
		return true
	}
	if email == "doador@doador.com" {
		return true
	}
	return strings.Contains(email, "exemplo") || strings.Contains(email, "test")
}
