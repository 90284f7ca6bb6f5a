package entitlement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chefscan_backend/internal/model"
)

// Ledger persists verified webhook events. The unique
// (provider, reference, status) index is the at-most-effectively-once
// guard: the source-of-truth mutations are idempotent sets, but the ledger
// makes redelivery visible and is mandatory the day a non-idempotent
// mutation (wallet credits) joins the activation path.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) AlreadyProcessed(ctx context.Context, provider, ref, status string) (bool, error) {
	var count int64
	err := l.db.WithContext(ctx).
		Model(&model.PaymentEvent{}).
		Where("provider = ? AND reference = ? AND status = ?", provider, ref, status).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("ledger lookup %s/%s: %w", provider, ref, err)
	}
	return count > 0, nil
}

// Record inserts the event, ignoring a duplicate of the same
// (provider, reference, status) — a redelivery is not an error.
func (l *Ledger) Record(ctx context.Context, event *model.PaymentEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	err := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event).Error
	if err != nil {
		return fmt.Errorf("ledger record %s/%s: %w", event.Provider, event.Reference, err)
	}
	return nil
}
