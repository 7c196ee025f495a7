package services

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"caovalente_app_echo/internal/models"
)

const campaignsCollection = "campaigns"

// ErrCampaignNotFound is returned when neither the document id nor the
// denormalized campaignId field matches.
var ErrCampaignNotFound = fmt.Errorf("campaign not found")

// CampaignLedger is the authoritative running-totals store, backed by the
// campaigns Firestore collection. Only ApplyDonation mutates it, and only via
// Firestore's server-side increment so no read-modify-write race can
// double-credit a charge.
type CampaignLedger struct {
	client *firestore.Client
}

func NewCampaignLedger(client *firestore.Client) *CampaignLedger {
	return &CampaignLedger{client: client}
}

// FindCampaign locates a campaign by its document id, falling back to an
// exact query on the denormalized campaignId field for providers that mangle
// the reference casing. Never guesses: no match means ErrCampaignNotFound.
func (l *CampaignLedger) FindCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	if id == "" {
		return nil, ErrCampaignNotFound
	}

	snap, err := l.client.Collection(campaignsCollection).Doc(id).Get(ctx)
	if err == nil {
		return decodeCampaign(snap)
	}
	if status.Code(err) != codes.NotFound {
		return nil, fmt.Errorf("failed to fetch campaign %s: %w", id, err)
	}

	return l.findOneWhere(ctx, "campaignId", id)
}

// FindCampaignByCheckoutCode resolves hosted-checkout postbacks (braip) that
// correlate by the campaign's checkout code instead of our id.
func (l *CampaignLedger) FindCampaignByCheckoutCode(ctx context.Context, code string) (*models.Campaign, error) {
	if code == "" {
		return nil, ErrCampaignNotFound
	}
	return l.findOneWhere(ctx, "braipCheckoutCode", code)
}

func (l *CampaignLedger) findOneWhere(ctx context.Context, field, value string) (*models.Campaign, error) {
	iter := l.client.Collection(campaignsCollection).Where(field, "==", value).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, ErrCampaignNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query campaigns by %s: %w", field, err)
	}
	return decodeCampaign(snap)
}

// ApplyDonation credits one confirmed charge to the campaign totals. Both
// counters move in a single atomic server-side update; callers must have
// already passed the per-charge idempotency guard.
func (l *CampaignLedger) ApplyDonation(ctx context.Context, campaignDocID string, amount float64) error {
	_, err := l.client.Collection(campaignsCollection).Doc(campaignDocID).Update(ctx, []firestore.Update{
		{Path: "currentAmount", Value: firestore.Increment(amount)},
		{Path: "supportersCount", Value: firestore.Increment(1)},
	})
	if err != nil {
		return fmt.Errorf("failed to apply donation to campaign %s: %w", campaignDocID, err)
	}
	return nil
}

func decodeCampaign(snap *firestore.DocumentSnapshot) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := snap.DataTo(&campaign); err != nil {
		return nil, fmt.Errorf("failed to decode campaign %s: %w", snap.Ref.ID, err)
	}
	campaign.ID = snap.Ref.ID
	return &campaign, nil
}
