package controller

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"chefscan_backend/pkg/entitlement"
	"chefscan_backend/pkg/payment"
	"chefscan_backend/pkg/utils/jwt"
)

type CheckoutInput struct {
	ReturnURL string `json:"return_url" validate:"omitempty,url"`
}

type checkoutMetrics interface {
	CheckoutSession(provider, status string)
}

type CheckoutController struct {
	providers map[string]payment.Provider
	store     *entitlement.Store
	metrics   checkoutMetrics
	validate  *validator.Validate
	baseURL   string
	log       zerolog.Logger
}

func NewCheckoutController(
	providers map[string]payment.Provider,
	store *entitlement.Store,
	metrics checkoutMetrics,
	baseURL string,
	log zerolog.Logger,
) *CheckoutController {
	return &CheckoutController{
		providers: providers,
		store:     store,
		metrics:   metrics,
		validate:  validator.New(),
		baseURL:   baseURL,
		log:       log,
	}
}

// CreateCheckout starts a premium checkout with the chosen provider and
// returns either a redirect URL or a widget config. A fresh single-use
// reference is minted on every call.
func (cc *CheckoutController) CreateCheckout(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	providerName := c.Params("provider")
	provider, ok := cc.providers[providerName]
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown payment provider",
		})
	}

	input := new(CheckoutInput)
	if err := c.BodyParser(input); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}
	if err := cc.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid return_url",
		})
	}

	profile, err := cc.store.GetByUserID(c.Context(), claims.UserID())
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Profile not found",
		})
	}

	returnURL := input.ReturnURL
	if returnURL == "" {
		returnURL = cc.baseURL
	}

	checkout, err := provider.CreateCheckout(c.Context(), payment.CheckoutInput{
		UserID:     profile.UserID,
		Email:      profile.Email,
		FirstName:  profile.FirstName,
		LastName:   profile.LastName,
		Phone:      profile.Phone,
		ReturnURL:  returnURL,
		CustomerID: profile.StripeCustomerID,
	})
	if err != nil {
		cc.count(providerName, "error")
		cc.log.Error().Err(err).Str("provider", providerName).Str("user_id", profile.UserID).
			Msg("checkout initiation failed")

		var apiErr *payment.ProviderAPIError
		if errors.As(err, &apiErr) {
			// Provider rejections surface with the provider's message so
			// the client can show a retry affordance.
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": apiErr.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create checkout session",
		})
	}

	// Cache the provider customer id so repeat checkouts reuse it.
	if checkout.CustomerID != "" && checkout.CustomerID != profile.StripeCustomerID {
		if err := cc.store.Update(c.Context(), profile.UserID, map[string]interface{}{
			"stripe_customer_id": checkout.CustomerID,
		}); err != nil {
			cc.log.Warn().Err(err).Str("user_id", profile.UserID).Msg("could not cache customer id")
		}
	}

	cc.count(providerName, "created")
	cc.log.Info().Str("provider", providerName).Str("user_id", profile.UserID).
		Str("reference", checkout.Reference).Msg("checkout created")

	return c.JSON(checkout)
}

// HandlePaymentSuccess is the browser landing after a provider checkout.
// It is informational only: the webhook path is the authoritative state
// transition, the client just refetches its profile.
func (cc *CheckoutController) HandlePaymentSuccess(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Payment received. Your premium access activates as soon as the provider confirms it.",
	})
}

func (cc *CheckoutController) HandlePaymentCancelled(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Payment cancelled. You can retry whenever you like.",
	})
}

func (cc *CheckoutController) count(provider, status string) {
	if cc.metrics != nil {
		cc.metrics.CheckoutSession(provider, status)
	}
}
