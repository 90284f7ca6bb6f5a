package model

import (
	"strings"
	"time"
)

type SubscriptionStatus string

const (
	SubscriptionNone     SubscriptionStatus = "none"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
)

// Profile mirrors the profiles row owned by the auth subsystem. Billing
// owns is_premium, subscription_status, subscription_end_date,
// stripe_customer_id and chef_credits; the user-facing profile fields are
// updated through their own path and must never be clobbered by a webhook.
type Profile struct {
	UserID    string    `json:"user_id" gorm:"primaryKey;column:user_id"`
	Email     string    `json:"email" gorm:"uniqueIndex;not null"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	IsPremium           bool               `json:"is_premium" gorm:"default:false"`
	SubscriptionStatus  SubscriptionStatus `json:"subscription_status" gorm:"default:'none'"`
	SubscriptionEndDate *time.Time         `json:"subscription_end_date"`
	StripeCustomerID    string             `json:"-" gorm:"index"`
	ChefCredits         int                `json:"chef_credits" gorm:"default:5"`
}

func (Profile) TableName() string { return "profiles" }

func (p *Profile) GetFullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// PremiumNow is the lazy-expiry reader: a past subscription_end_date means
// not premium even when the stored flag has not been corrected yet. The
// daily sweep fixes the stored flag; authorization decisions go through
// here and never see the staleness window.
func (p *Profile) PremiumNow(now time.Time) bool {
	if !p.IsPremium {
		return false
	}
	if p.SubscriptionEndDate != nil && p.SubscriptionEndDate.Before(now) {
		return false
	}
	return true
}
