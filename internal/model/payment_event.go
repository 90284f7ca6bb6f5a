package model

import (
	"time"

	"gorm.io/datatypes"
)

// PaymentEvent is the processed-webhook ledger. Providers redeliver events
// and deliver them out of order; the unique (provider, reference, status)
// index makes reprocessing an already-handled final status a recorded
// no-op instead of a second mutation. Raw keeps the payload verbatim —
// besides the provider's own records this is the only durable trace of a
// reference.
type PaymentEvent struct {
	ID        string         `json:"id" gorm:"primaryKey"`
	Provider  string         `json:"provider" gorm:"uniqueIndex:ux_provider_ref_status,priority:1;not null"`
	Reference string         `json:"reference" gorm:"uniqueIndex:ux_provider_ref_status,priority:2;not null"`
	Status    string         `json:"status" gorm:"uniqueIndex:ux_provider_ref_status,priority:3;not null"`
	EventType string         `json:"event_type"`
	UserID    string         `json:"user_id" gorm:"index"`
	Outcome   string         `json:"outcome"`
	Raw       datatypes.JSON `json:"raw"`
	CreatedAt time.Time      `json:"created_at"`
}

func (PaymentEvent) TableName() string { return "payment_events" }
