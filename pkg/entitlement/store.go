// Package entitlement is the narrow contract against the profiles table.
// It runs on the service-level database credentials: webhook handlers have
// no user session, and end-user credentials never reach this package.
package entitlement

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"chefscan_backend/internal/model"
)

var ErrNotFound = errors.New("profile not found")

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	var profile model.Profile
	err := s.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch profile %s: %w", userID, err)
	}
	return &profile, nil
}

func (s *Store) GetByStripeCustomerID(ctx context.Context, customerID string) (*model.Profile, error) {
	var profile model.Profile
	err := s.db.WithContext(ctx).First(&profile, "stripe_customer_id = ?", customerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch profile by customer %s: %w", customerID, err)
	}
	return &profile, nil
}

// Update applies a partial-field update. Mutations are always field-scoped
// so a webhook setting billing columns cannot clobber a concurrent profile
// edit touching name or phone.
func (s *Store) Update(ctx context.Context, userID string, fields map[string]interface{}) error {
	res := s.db.WithContext(ctx).
		Model(&model.Profile{}).
		Where("user_id = ?", userID).
		Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update profile %s: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
