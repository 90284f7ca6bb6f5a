// Package cron runs the daily entitlement sweep. Readers already treat a
// past subscription_end_date as not premium; this job corrects the stored
// flag (the lazy-expiry staleness window closes here) and warns users
// whose premium is about to lapse.
package cron

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"chefscan_backend/internal/model"
	"chefscan_backend/pkg/plan"
)

// Mailer matches the email service; nil disables warnings.
type Mailer interface {
	SendExpiryWarning(to, name string, daysLeft int, expiryDate time.Time) error
}

type ExpirySweeper struct {
	db     *gorm.DB
	mailer Mailer
	log    zerolog.Logger
}

type Option func(*ExpirySweeper)

// WithMailer enables expiry warning emails. Callers holding a possibly-nil
// concrete mailer must not wrap it here: a nil pointer inside the
// interface would slip past the mailer guard and panic mid-sweep.
func WithMailer(m Mailer) Option {
	return func(s *ExpirySweeper) { s.mailer = m }
}

func NewExpirySweeper(db *gorm.DB, log zerolog.Logger, opts ...Option) *ExpirySweeper {
	s := &ExpirySweeper{db: db, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start schedules the sweep daily at 09:00 and returns the scheduler so
// the caller owns its lifecycle.
func (s *ExpirySweeper) Start() (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc("0 9 * * *", s.Sweep); err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

func (s *ExpirySweeper) Sweep() {
	s.expireOverdue()
	s.warnExpiring()
}

func (s *ExpirySweeper) expireOverdue() {
	res := s.db.Model(&model.Profile{}).
		Where("is_premium = ? AND subscription_end_date IS NOT NULL AND subscription_end_date < ?", true, time.Now()).
		Updates(map[string]interface{}{
			"is_premium":          false,
			"subscription_status": model.SubscriptionNone,
			"chef_credits":        plan.GetLimits(plan.FreeTier).ChefCredits,
		})
	if res.Error != nil {
		s.log.Error().Err(res.Error).Msg("expiry sweep failed")
		return
	}
	if res.RowsAffected > 0 {
		s.log.Info().Int64("expired", res.RowsAffected).Msg("premium entitlements expired")
	}
}

func (s *ExpirySweeper) warnExpiring() {
	if s.mailer == nil {
		return
	}

	for _, days := range []int{7, 3} {
		targetDate := time.Now().AddDate(0, 0, days).Format("2006-01-02")

		var profiles []model.Profile
		err := s.db.
			Where("is_premium = ? AND DATE(subscription_end_date) = ?", true, targetDate).
			Find(&profiles).Error
		if err != nil {
			s.log.Error().Err(err).Int("days", days).Msg("could not fetch expiring profiles")
			continue
		}

		for _, p := range profiles {
			if p.SubscriptionEndDate == nil {
				continue
			}
			if err := s.mailer.SendExpiryWarning(p.Email, p.GetFullName(), days, *p.SubscriptionEndDate); err != nil {
				s.log.Warn().Err(err).Str("user_id", p.UserID).Msg("expiry warning email failed")
			}
		}
	}
}
