package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPremiumNow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(10 * 24 * time.Hour)
	past := now.Add(-time.Hour)

	cases := []struct {
		name    string
		profile Profile
		want    bool
	}{
		{"free user", Profile{IsPremium: false}, false},
		{"premium, no end date", Profile{IsPremium: true}, true},
		{"premium, end date ahead", Profile{IsPremium: true, SubscriptionEndDate: &future}, true},
		{"premium flag stale past end date", Profile{IsPremium: true, SubscriptionEndDate: &past}, false},
		{"free flag with future end date", Profile{IsPremium: false, SubscriptionEndDate: &future}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.profile.PremiumNow(now))
		})
	}
}
