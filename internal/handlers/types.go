package handlers

// CreatePaymentRequest is the checkout boundary payload.
type CreatePaymentRequest struct {
	Amount     float64 `json:"amount"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Document   string  `json:"document"`
	Phone      string  `json:"phone"`
	CampaignID string  `json:"campaignId"`
	Gateway    string  `json:"gateway"`
}

// CheckPaymentRequest asks whether a charge has been paid.
type CheckPaymentRequest struct {
	PaymentID string `json:"paymentId"`
	Gateway   string `json:"gateway"`
}

// CheckPaymentResponse mirrors the original polling contract: errors during
// the check degrade to paid=false rather than failing the poll loop.
type CheckPaymentResponse struct {
	Paid      bool   `json:"paid"`
	RawStatus string `json:"rawStatus,omitempty"`
	Error     string `json:"error,omitempty"`
}

// AbandonPaymentRequest signals the checkout UI was torn down before
// confirmation.
type AbandonPaymentRequest struct {
	PaymentID string `json:"paymentId"`
	Gateway   string `json:"gateway"`
}
