package models

// ChargeStatus is the canonical status vocabulary every provider's own status
// strings are mapped into. Nothing outside a gateway adapter ever sees a raw
// provider status except for diagnostics.
type ChargeStatus string

const (
	ChargeStatusPaid    ChargeStatus = "PAID"
	ChargeStatusPending ChargeStatus = "PENDING"
	ChargeStatusFailed  ChargeStatus = "FAILED"
)

// Payer identifies the donor for a single checkout attempt. Never persisted;
// identifying fields are SHA-256 hashed before any outbound tracking call.
type Payer struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Document string `json:"document,omitempty"`
}

// ChargeRequest is built fresh per checkout attempt and lives only for the
// duration of one charge-creation call.
type ChargeRequest struct {
	// Amount in BRL (reais). Adapters convert to centavos where the provider
	// expects the smallest unit.
	Amount        float64
	Payer         Payer
	CampaignID    string
	CampaignTitle string
	Gateway       string

	// CampaignCheckoutCode is the campaign's hosted-checkout code for
	// redirect providers (braip). Empty for every embedded-QR provider.
	CampaignCheckoutCode string
}

// PixData is the payload the checkout renders: a scannable QR code (embedded
// base64 or a hosted image URL, depending on the provider) plus the
// copy-paste EMV string. CopyPasteCode is always set when PixData is present.
type PixData struct {
	QRImageBase64 string `json:"qrImageBase64,omitempty"`
	QRImageURL    string `json:"qrImageUrl,omitempty"`
	CopyPasteCode string `json:"copyPasteCode"`
}

// ChargeResult is the normalized outcome of charge creation across all
// providers. Exactly one of Pix or RedirectURL is populated on success (the
// failure arm of the contract is the error return of CreateCharge). ChargeID
// is the durable correlation key used by status polling and webhooks.
type ChargeResult struct {
	Provider    string   `json:"provider"`
	ChargeID    string   `json:"chargeId,omitempty"`
	Pix         *PixData `json:"pix,omitempty"`
	RedirectURL string   `json:"redirectUrl,omitempty"`

	// IsDemo marks a fabricated charge issued when no provider credentials
	// exist and demo mode is explicitly enabled. Never a real payment
	// instrument.
	IsDemo bool `json:"isDemo,omitempty"`
}

// StatusResult is a normalized point-in-time status observation.
type StatusResult struct {
	Paid      bool         `json:"paid"`
	Status    ChargeStatus `json:"status"`
	RawStatus string       `json:"rawStatus,omitempty"`
}

// WebhookEvent is the provider-agnostic shape a raw webhook payload is mapped
// into before reconciliation. Amount is in BRL. CampaignID may be empty when
// the provider lost our correlation metadata; CheckoutCode is the braip-style
// alternative correlation carrier.
type WebhookEvent struct {
	Provider     string
	ChargeID     string
	Status       ChargeStatus
	RawStatus    string
	Amount       float64
	CampaignID   string
	CheckoutCode string
	Payer        Payer
}
