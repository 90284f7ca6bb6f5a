package plan

import "time"

type Tier string

const (
	FreeTier    Tier = "FREE"
	PremiumTier Tier = "PREMIUM"
)

// PremiumDuration is how long one approved one-off payment grants premium.
// Stripe-managed subscriptions override this with the provider's period end.
const PremiumDuration = 30 * 24 * time.Hour

type Limits struct {
	DailyScans   int
	ChefCredits  int
	MaxFavorites int
}

var TierLimits = map[Tier]Limits{
	FreeTier: {
		DailyScans:   3,
		ChefCredits:  5,
		MaxFavorites: 10,
	},
	PremiumTier: {
		DailyScans:   200,
		ChefCredits:  999999, // sentinel, effectively unlimited
		MaxFavorites: 500,
	},
}

// Prices in minor units. Stripe checkout uses a price ID instead, so only
// the Colombian providers read these.
const (
	PriceCOPCents   int64 = 1990000 // $19.900 COP
	PremiumCurrency       = "COP"
)

func GetLimits(t Tier) Limits {
	return TierLimits[t]
}

func TierFor(isPremium bool) Tier {
	if isPremium {
		return PremiumTier
	}
	return FreeTier
}
