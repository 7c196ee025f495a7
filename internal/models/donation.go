package models

import (
	"time"

	"gorm.io/gorm"
)

// Donation is the durable record of a reconciled charge. The unique index on
// (provider, charge_id) is the database-level backstop of the reconciliation
// idempotency guard: a redelivered webhook that slips past the redis
// check-and-set still cannot produce a second row.
type Donation struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Provider   string  `gorm:"type:varchar(50);uniqueIndex:idx_provider_charge" json:"provider"`
	ChargeID   string  `gorm:"type:varchar(100);uniqueIndex:idx_provider_charge" json:"charge_id"`
	CampaignID string  `gorm:"type:varchar(100);index" json:"campaign_id"`
	Amount     float64 `gorm:"type:decimal(15,2)" json:"amount"`
	PayerEmail string  `gorm:"type:varchar(255)" json:"payer_email"`
	PaidAt     time.Time `json:"paid_at"`
}
