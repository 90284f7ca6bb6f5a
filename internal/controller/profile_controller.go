package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"chefscan_backend/pkg/entitlement"
	"chefscan_backend/pkg/plan"
	"chefscan_backend/pkg/utils/jwt"
)

type ProfileUpdateInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

type ProfileController struct {
	store *entitlement.Store
	log   zerolog.Logger
}

func NewProfileController(store *entitlement.Store, log zerolog.Logger) *ProfileController {
	return &ProfileController{store: store, log: log}
}

func (pc *ProfileController) GetMe(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	profile, err := pc.store.GetByUserID(c.Context(), claims.UserID())
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Profile not found",
		})
	}

	premiumNow := profile.PremiumNow(time.Now())
	return c.JSON(fiber.Map{
		"profile":     profile,
		"premium_now": premiumNow,
		"tier":        plan.TierFor(premiumNow),
	})
}

// UpdateMe touches only the user-owned columns. The billing columns have
// their own mutation path, so a webhook firing mid-edit cannot be
// clobbered and vice versa.
func (pc *ProfileController) UpdateMe(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	input := new(ProfileUpdateInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	updates := map[string]interface{}{
		"first_name": input.FirstName,
		"last_name":  input.LastName,
		"phone":      input.Phone,
	}
	if err := pc.store.Update(c.Context(), claims.UserID(), updates); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update profile",
		})
	}

	profile, err := pc.store.GetByUserID(c.Context(), claims.UserID())
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Profile not found",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Profile updated successfully",
		"profile": profile,
	})
}
