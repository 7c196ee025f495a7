package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// PaymentCallbackHistory archives every inbound provider webhook verbatim,
// before any parsing. Reconciliation bugs are debugged from these rows.
type PaymentCallbackHistory struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Provider  string          `gorm:"type:varchar(50);not null;index" json:"provider"`
	Payload   json.RawMessage `gorm:"type:jsonb" json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}
