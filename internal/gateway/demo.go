package gateway

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"caovalente_app_echo/internal/models"
)

// demoPixCode is a syntactically valid EMV string pointing at a placeholder
// key. It can be rendered and copied but never pays anyone.
const demoPixCode = "00020101021226820014br.gov.bcb.pix2560pix-qrcode.example.com/v2/0123456789ABCDEF520400005303986540510.005802BR5913Doador Teste6009SAO PAULO62070503***6304E2CA"

// Demo fabricates charges for preview environments with no provider
// credentials. Results are flagged IsDemo so they can never be mistaken for a
// real payment instrument, and a demo charge never reports as paid.
type Demo struct{}

func NewDemo() *Demo { return &Demo{} }

func (g *Demo) Name() Provider { return ProviderDemo }

func (g *Demo) CreateCharge(ctx context.Context, req *models.ChargeRequest) (*models.ChargeResult, error) {
	return &models.ChargeResult{
		Provider: string(ProviderDemo),
		ChargeID: "demo_" + uuid.NewString(),
		IsDemo:   true,
		Pix: &models.PixData{
			QRImageURL:    fmt.Sprintf("https://api.qrserver.com/v1/create-qr-code/?size=300x300&data=%s", demoPixCode),
			CopyPasteCode: demoPixCode,
		},
	}, nil
}

func (g *Demo) CheckStatus(ctx context.Context, chargeID string) (*models.StatusResult, error) {
	return &models.StatusResult{
		Paid:      false,
		Status:    models.ChargeStatusPending,
		RawStatus: "demo",
	}, nil
}

func (g *Demo) ParseWebhook(ctx context.Context, body []byte) (*models.WebhookEvent, error) {
	return nil, &GatewayError{Provider: ProviderDemo, Message: "demo gateway does not deliver webhooks"}
}
