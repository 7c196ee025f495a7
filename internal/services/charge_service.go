package services

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"caovalente_app_echo/internal/gateway"
	"caovalente_app_echo/internal/models"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultWatchTTL     = time.Hour // PIX charges expire after an hour
)

// ChargeService normalizes charge creation across providers: it resolves the
// campaign's configured gateway once, delegates to the matching adapter, and
// owns the per-charge confirmation watchers.
type ChargeService struct {
	registry   *gateway.Registry
	reconciler *Reconciler
	tracker    ConversionEmitter

	defaultGateway string
	demoMode       bool
	pollInterval   time.Duration
	watchTTL       time.Duration

	mu       sync.Mutex
	watchers map[string]*ConfirmationWatcher
}

func NewChargeService(registry *gateway.Registry, reconciler *Reconciler, tracker ConversionEmitter) *ChargeService {
	return &ChargeService{
		registry:       registry,
		reconciler:     reconciler,
		tracker:        tracker,
		defaultGateway: os.Getenv("DEFAULT_GATEWAY"),
		demoMode:       os.Getenv("DEMO_MODE") == "true",
		pollInterval:   defaultPollInterval,
		watchTTL:       defaultWatchTTL,
		watchers:       make(map[string]*ConfirmationWatcher),
	}
}

// ResolveGateway picks the provider for a checkout attempt: the explicit
// request override first, then the campaign's configured gateway, then the
// environment default. An unrecognized name fails here, before any network
// call.
func (s *ChargeService) ResolveGateway(requested string, campaign *models.Campaign) (gateway.Provider, error) {
	name := requested
	if name == "" && campaign != nil {
		name = campaign.Gateway
	}
	if name == "" {
		name = s.defaultGateway
	}
	return gateway.Resolve(name)
}

// CreatePixCharge creates a normalized PIX charge for a campaign. Checkout
// funnel events go out fire-and-forget before the provider call, so the
// funnel is visible even when charge creation fails afterwards.
func (s *ChargeService) CreatePixCharge(ctx context.Context, campaign *models.Campaign, req *models.ChargeRequest) (*models.ChargeResult, error) {
	if campaign == nil {
		return nil, ErrCampaignNotFound
	}

	provider, err := s.ResolveGateway(req.Gateway, campaign)
	if err != nil {
		return nil, err
	}

	req.CampaignID = campaign.ID
	req.CampaignTitle = campaign.Title
	req.CampaignCheckoutCode = campaign.BraipCheckoutCode

	s.emitFunnelEvents(campaign, req)

	gw, err := s.registry.Get(provider)
	if err != nil {
		return nil, err
	}

	result, err := gw.CreateCharge(ctx, req)
	if err != nil {
		var confErr *gateway.ConfigurationError
		if errors.As(err, &confErr) && s.demoMode {
			// Preview environments without credentials get a clearly flagged
			// fake charge instead of a hard failure.
			log.Printf("charge: %v, demo mode active, issuing demo charge", confErr)
			demo, demoErr := s.registry.Get(gateway.ProviderDemo)
			if demoErr != nil {
				return nil, err
			}
			return demo.CreateCharge(ctx, req)
		}
		return nil, err
	}

	if result.ChargeID != "" && !result.IsDemo {
		s.watchCharge(gw, campaign, result.ChargeID, req.Amount, req.Payer)
	}

	return result, nil
}

// CheckCharge asks the charge's provider whether it has been paid.
func (s *ChargeService) CheckCharge(ctx context.Context, gatewayName, chargeID string) (*models.StatusResult, error) {
	gw, err := s.registry.GetByName(gatewayName)
	if err != nil {
		return nil, err
	}
	return gw.CheckStatus(ctx, chargeID)
}

func (s *ChargeService) emitFunnelEvents(campaign *models.Campaign, req *models.ChargeRequest) {
	sessionID := uuid.NewString()
	payer := req.Payer
	amount := req.Amount

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		s.tracker.Emit(ctx, campaign, EventInitiateCheckout, sessionID+":ic", payer, amount)
		s.tracker.Emit(ctx, campaign, EventAddPaymentInfo, sessionID+":api", payer, amount)
	}()
}

// watchCharge registers a confirmation watcher for a freshly created charge.
// The watcher outlives the HTTP request that created it, so it runs on its
// own context and is torn down on shutdown.
func (s *ChargeService) watchCharge(gw gateway.Gateway, campaign *models.Campaign, chargeID string, amount float64, payer models.Payer) {
	key := string(gw.Name()) + ":" + chargeID

	check := func(ctx context.Context) (*models.StatusResult, error) {
		return gw.CheckStatus(ctx, chargeID)
	}
	confirmed := func(ctx context.Context) {
		s.reconciler.ConfirmCharge(ctx, campaign, string(gw.Name()), chargeID, amount, payer)
	}

	w := NewConfirmationWatcher(chargeID, s.pollInterval, s.watchTTL, check, confirmed)
	w.onDone = func() {
		s.mu.Lock()
		delete(s.watchers, key)
		s.mu.Unlock()
	}

	s.mu.Lock()
	s.watchers[key] = w
	s.mu.Unlock()

	w.Start(context.Background())
}

// TeardownWatcher cancels the watcher for one charge, if it is still running.
// Called when the checkout UI abandons a session.
func (s *ChargeService) TeardownWatcher(gatewayName, chargeID string) {
	provider, err := gateway.Resolve(gatewayName)
	if err != nil {
		return
	}
	key := string(provider) + ":" + chargeID

	s.mu.Lock()
	w := s.watchers[key]
	s.mu.Unlock()

	if w != nil {
		w.Teardown()
	}
}

// Shutdown tears down every live watcher and waits for their goroutines.
func (s *ChargeService) Shutdown() {
	s.mu.Lock()
	watchers := make([]*ConfirmationWatcher, 0, len(s.watchers))
	for _, w := range s.watchers {
		watchers = append(watchers, w)
	}
	s.mu.Unlock()

	for _, w := range watchers {
		w.Teardown()
		w.Wait()
	}
}
