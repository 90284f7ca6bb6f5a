package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"chefscan_backend/pkg/entitlement"
	"chefscan_backend/pkg/plan"
	"chefscan_backend/pkg/quota"
	"chefscan_backend/pkg/utils/jwt"
)

type quotaMetrics interface {
	ScanDecision(tier, verdict string)
}

// CheckScanQuota spends one scan from the caller's daily budget before the
// client is allowed to invoke the vision model. The tier comes from the
// effective premium state, never from the stored flag alone.
func CheckScanQuota(store *entitlement.Store, checker *quota.Checker, metrics quotaMetrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := c.Locals("user").(*jwt.Claims)

		profile, err := store.GetByUserID(c.Context(), claims.UserID())
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Profile not found",
			})
		}

		tier := plan.TierFor(profile.PremiumNow(time.Now()))
		limit := plan.GetLimits(tier).DailyScans

		allowed, remaining, err := checker.Consume(c.Context(), claims.UserID(), limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not check scan quota",
			})
		}

		if !allowed {
			if metrics != nil {
				metrics.ScanDecision(string(tier), "denied")
			}
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Daily scan limit reached. Upgrade to premium for more scans.",
				"limit": limit,
			})
		}

		if metrics != nil {
			metrics.ScanDecision(string(tier), "allowed")
		}
		c.Locals("scans_remaining", remaining)
		return c.Next()
	}
}
