package models

// Campaign is a fundraising cause document stored in the "campaigns"
// Firestore collection. The reconciler only ever touches the running totals
// (CurrentAmount, SupportersCount); everything else is owned by the admin
// console.
type Campaign struct {
	// ID is the Firestore document id. It is not stored inside the document
	// itself; CampaignID carries a denormalized copy used as a secondary
	// correlation lookup for webhooks that only have the plain id string.
	ID         string `firestore:"-" json:"id"`
	CampaignID string `firestore:"campaignId" json:"campaignId"`

	Slug     string `firestore:"slug" json:"slug"`
	Title    string `firestore:"title" json:"title"`
	Category string `firestore:"category,omitempty" json:"category,omitempty"`

	// Gateway is the configured payment provider name. Resolved once against
	// the closed provider enum at charge-creation time; unknown values are a
	// configuration error, never a silent fallback.
	Gateway string `firestore:"gateway" json:"gateway"`

	TargetAmount    float64 `firestore:"targetAmount" json:"targetAmount"`
	CurrentAmount   float64 `firestore:"currentAmount" json:"currentAmount"`
	SupportersCount int64   `firestore:"supportersCount" json:"supportersCount"`
	HeartsCount     int64   `firestore:"heartsCount" json:"heartsCount"`
	MinAmount       float64 `firestore:"minAmount,omitempty" json:"minAmount,omitempty"`

	IsActive bool `firestore:"isActive" json:"isActive"`

	// Ad-attribution credentials for the Meta Conversions API.
	MetaPixelID     string `firestore:"metaPixelId,omitempty" json:"metaPixelId,omitempty"`
	MetaAccessToken string `firestore:"metaAccessToken,omitempty" json:"-"`

	// BraipCheckoutCode links hosted-checkout (braip) postbacks back to this
	// campaign, since braip carries no metadata field of ours.
	BraipCheckoutCode string `firestore:"braipCheckoutCode,omitempty" json:"braipCheckoutCode,omitempty"`

	CreatorName     string `firestore:"creatorName,omitempty" json:"creatorName,omitempty"`
	BeneficiaryName string `firestore:"beneficiaryName,omitempty" json:"beneficiaryName,omitempty"`
}

// PublicView strips attribution secrets before a campaign leaves the API.
type CampaignPublicView struct {
	ID              string  `json:"id"`
	Slug            string  `json:"slug"`
	Title           string  `json:"title"`
	Category        string  `json:"category,omitempty"`
	TargetAmount    float64 `json:"targetAmount"`
	CurrentAmount   float64 `json:"currentAmount"`
	SupportersCount int64   `json:"supportersCount"`
	HeartsCount     int64   `json:"heartsCount"`
	MinAmount       float64 `json:"minAmount,omitempty"`
	IsActive        bool    `json:"isActive"`
	CreatorName     string  `json:"creatorName,omitempty"`
	BeneficiaryName string  `json:"beneficiaryName,omitempty"`
}

func (c *Campaign) PublicView() CampaignPublicView {
	return CampaignPublicView{
		ID:              c.ID,
		Slug:            c.Slug,
		Title:           c.Title,
		Category:        c.Category,
		TargetAmount:    c.TargetAmount,
		CurrentAmount:   c.CurrentAmount,
		SupportersCount: c.SupportersCount,
		HeartsCount:     c.HeartsCount,
		MinAmount:       c.MinAmount,
		IsActive:        c.IsActive,
		CreatorName:     c.CreatorName,
		BeneficiaryName: c.BeneficiaryName,
	}
}
