package gateway

import (
	"context"
	"strings"

	"caovalente_app_echo/internal/models"
)

// Provider is the closed enumeration of supported payment gateways. Campaign
// records carry the provider as a free-form string; Resolve maps it into this
// set exactly once so that a misspelled name fails fast instead of falling
// through to an unintended default.
type Provider string

const (
	ProviderSigiloPay   Provider = "sigilopay"
	ProviderAsaas       Provider = "asaas"
	ProviderPagarme     Provider = "pagarme"
	ProviderPagBank     Provider = "pagbank"
	ProviderMercadoPago Provider = "mercadopago"
	ProviderStripe      Provider = "stripe"
	ProviderAppmax      Provider = "appmax"
	ProviderSimPay      Provider = "simpay"
	ProviderBraip       Provider = "braip"
	ProviderDemo        Provider = "demo"
)

// Resolve maps a campaign's gateway name onto the provider enum. Historical
// campaign records use inconsistent casing and the "stone" alias for
// Pagar.me, both tolerated here.
func Resolve(name string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sigilopay":
		return ProviderSigiloPay, nil
	case "asaas":
		return ProviderAsaas, nil
	case "pagarme", "stone":
		return ProviderPagarme, nil
	case "pagbank", "pagseguro":
		return ProviderPagBank, nil
	case "mercadopago":
		return ProviderMercadoPago, nil
	case "stripe":
		return ProviderStripe, nil
	case "appmax":
		return ProviderAppmax, nil
	case "simpay":
		return ProviderSimPay, nil
	case "braip":
		return ProviderBraip, nil
	case "demo":
		return ProviderDemo, nil
	default:
		return "", &UnknownProviderError{Name: name}
	}
}

// Gateway is the normalization shim every provider implements. CreateCharge
// and CheckStatus wrap the provider's own API; ParseWebhook maps the
// provider's callback payload into the canonical WebhookEvent shape.
// ParseWebhook takes a context because some providers (asaas, mercadopago)
// require a follow-up API call to complete the event.
type Gateway interface {
	Name() Provider
	CreateCharge(ctx context.Context, req *models.ChargeRequest) (*models.ChargeResult, error)
	CheckStatus(ctx context.Context, chargeID string) (*models.StatusResult, error)
	ParseWebhook(ctx context.Context, body []byte) (*models.WebhookEvent, error)
}

// Registry holds one adapter instance per provider. Constructors read their
// credentials from the environment; a provider with missing credentials is
// still registered and reports a ConfigurationError on first use, so the
// operator sees exactly which variable is absent.
type Registry struct {
	gateways map[Provider]Gateway
}

func NewRegistry() *Registry {
	r := &Registry{gateways: make(map[Provider]Gateway)}
	for _, g := range []Gateway{
		NewSigiloPay(),
		NewAsaas(),
		NewPagarme(),
		NewPagBank(),
		NewMercadoPago(),
		NewStripe(),
		NewAppmax(),
		NewSimPay(),
		NewBraip(),
		NewDemo(),
	} {
		r.gateways[g.Name()] = g
	}
	return r
}

// Get returns the adapter for an already-resolved provider.
func (r *Registry) Get(p Provider) (Gateway, error) {
	g, ok := r.gateways[p]
	if !ok {
		return nil, &UnknownProviderError{Name: string(p)}
	}
	return g, nil
}

// GetByName resolves a free-form gateway name and returns its adapter.
func (r *Registry) GetByName(name string) (Gateway, error) {
	p, err := Resolve(name)
	if err != nil {
		return nil, err
	}
	return r.Get(p)
}
