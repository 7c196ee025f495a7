package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"caovalente_app_echo/internal/gateway"
	"caovalente_app_echo/internal/models"
)

// CampaignStore is the slice of the ledger the reconciler needs.
type CampaignStore interface {
	FindCampaign(ctx context.Context, id string) (*models.Campaign, error)
	FindCampaignByCheckoutCode(ctx context.Context, code string) (*models.Campaign, error)
	ApplyDonation(ctx context.Context, campaignDocID string, amount float64) error
}

// DedupGuard is the atomic per-charge check-and-set consulted before any
// ledger mutation.
type DedupGuard interface {
	MarkReconciled(ctx context.Context, provider, chargeID string) (bool, error)
}

// ConversionEmitter matches ConversionTracker.Emit.
type ConversionEmitter interface {
	Emit(ctx context.Context, campaign *models.Campaign, eventName, eventID string, payer models.Payer, amount float64)
}

// MemoryGuard is an in-process DedupGuard used when no redis is configured
// (single-instance deployments and tests). Not durable across restarts; the
// Donation unique index still catches replays that survive one.
type MemoryGuard struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{seen: make(map[string]struct{})}
}

func (g *MemoryGuard) MarkReconciled(ctx context.Context, provider, chargeID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := provider + ":" + chargeID
	if _, ok := g.seen[key]; ok {
		return false, nil
	}
	g.seen[key] = struct{}{}
	return true, nil
}

// Reconciler applies confirmed charges to campaign ledgers exactly once.
// It serves two racing observers of the same provider state: inbound
// provider webhooks and the confirmation watcher's status polls. Whichever
// arrives first wins the guard; the other becomes a no-op.
type Reconciler struct {
	db      *gorm.DB // optional audit trail; nil disables it
	ledger  CampaignStore
	guard   DedupGuard
	tracker ConversionEmitter
}

func NewReconciler(db *gorm.DB, ledger CampaignStore, guard DedupGuard, tracker ConversionEmitter) *Reconciler {
	return &Reconciler{db: db, ledger: ledger, guard: guard, tracker: tracker}
}

// HandleWebhook processes one raw provider callback. It never returns an
// error: providers redeliver on any non-2xx, so logical failures are logged
// internally and the callback is acknowledged regardless.
func (r *Reconciler) HandleWebhook(ctx context.Context, gw gateway.Gateway, body []byte) {
	provider := string(gw.Name())
	r.archivePayload(provider, body)

	ev, err := gw.ParseWebhook(ctx, body)
	if err != nil {
		log.Printf("webhook %s: failed to parse payload: %v", provider, err)
		return
	}

	if ev.Status != models.ChargeStatusPaid {
		log.Printf("webhook %s: ignoring charge %s with status %s (%s)", provider, ev.ChargeID, ev.Status, ev.RawStatus)
		return
	}

	r.Reconcile(ctx, ev)
}

// Reconcile credits one paid charge. Correlation is strict: a webhook whose
// campaign reference cannot be resolved is logged and dropped rather than
// guessed onto whichever campaign happens to be active.
func (r *Reconciler) Reconcile(ctx context.Context, ev *models.WebhookEvent) {
	campaign, err := r.resolveCampaign(ctx, ev)
	if err != nil {
		log.Printf("webhook %s: charge %s has no resolvable campaign (campaignId=%q checkoutCode=%q): %v",
			ev.Provider, ev.ChargeID, ev.CampaignID, ev.CheckoutCode, err)
		return
	}

	r.applyOnce(ctx, campaign, ev.Provider, ev.ChargeID, ev.Amount, ev.Payer)
}

// ConfirmCharge is the watcher-path entry point: the campaign is already
// known from the checkout session, only the guard and the increment remain.
func (r *Reconciler) ConfirmCharge(ctx context.Context, campaign *models.Campaign, provider, chargeID string, amount float64, payer models.Payer) {
	r.applyOnce(ctx, campaign, provider, chargeID, amount, payer)
}

func (r *Reconciler) applyOnce(ctx context.Context, campaign *models.Campaign, provider, chargeID string, amount float64, payer models.Payer) {
	if chargeID == "" {
		log.Printf("reconcile %s: refusing to apply charge with empty id", provider)
		return
	}

	first, err := r.guard.MarkReconciled(ctx, provider, chargeID)
	if err != nil {
		// Fail closed on the ledger: without a working guard an increment
		// could be applied twice, which is worse than applying it on the next
		// redelivery. The purchase signal still goes out; the attribution API
		// dedups it by event id.
		log.Printf("reconcile %s: dedup guard unavailable for charge %s: %v", provider, chargeID, err)
		r.tracker.Emit(ctx, campaign, EventPurchase, PurchaseEventID(chargeID), payer, amount)
		return
	}

	if first {
		if err := r.recordDonation(campaign.ID, provider, chargeID, amount, payer.Email); err != nil {
			if isDuplicateDonation(err) {
				log.Printf("reconcile %s: charge %s already recorded, skipping increment", provider, chargeID)
				first = false
			} else {
				log.Printf("reconcile %s: failed to record donation for charge %s: %v", provider, chargeID, err)
			}
		}
	} else {
		log.Printf("reconcile %s: duplicate delivery for charge %s, ledger untouched", provider, chargeID)
	}

	if first {
		if err := r.ledger.ApplyDonation(ctx, campaign.ID, amount); err != nil {
			log.Printf("reconcile %s: failed to credit campaign %s for charge %s: %v", provider, campaign.ID, chargeID, err)
		} else {
			log.Printf("reconcile %s: campaign %s credited with R$ %.2f (charge %s)", provider, campaign.ID, amount, chargeID)
		}
	}

	// The purchase signal goes out on every delivery; the attribution API
	// deduplicates by event id across the watcher and webhook paths.
	r.tracker.Emit(ctx, campaign, EventPurchase, PurchaseEventID(chargeID), payer, amount)
}

// isDuplicateDonation matches the unique-index violation on
// (provider, charge_id), both as gorm's translated sentinel and as the raw
// postgres error in case a connection is opened without error translation.
func isDuplicateDonation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *Reconciler) resolveCampaign(ctx context.Context, ev *models.WebhookEvent) (*models.Campaign, error) {
	if ev.CampaignID != "" {
		return r.ledger.FindCampaign(ctx, ev.CampaignID)
	}
	if ev.CheckoutCode != "" {
		return r.ledger.FindCampaignByCheckoutCode(ctx, ev.CheckoutCode)
	}
	return nil, ErrCampaignNotFound
}

func (r *Reconciler) archivePayload(provider string, body []byte) {
	if r.db == nil {
		return
	}
	payload := body
	if !json.Valid(payload) {
		quoted, err := json.Marshal(string(body))
		if err != nil {
			return
		}
		payload = quoted
	}
	history := models.PaymentCallbackHistory{
		Provider: provider,
		Payload:  payload,
	}
	if err := r.db.Create(&history).Error; err != nil {
		log.Printf("webhook %s: failed to archive payload: %v", provider, err)
	}
}

func (r *Reconciler) recordDonation(campaignID, provider, chargeID string, amount float64, payerEmail string) error {
	if r.db == nil {
		return nil
	}
	donation := models.Donation{
		Provider:   provider,
		ChargeID:   chargeID,
		CampaignID: campaignID,
		Amount:     amount,
		PayerEmail: payerEmail,
		PaidAt:     time.Now(),
	}
	return r.db.Create(&donation).Error
}
