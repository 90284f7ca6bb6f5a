package controller

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"chefscan_backend/pkg/payment"
	"chefscan_backend/pkg/payment/reconciler"
)

// WebhookReconciler is the reconciliation entry point; narrowed to an
// interface so the HTTP mapping is testable on its own.
type WebhookReconciler interface {
	HandleWebhook(ctx context.Context, provider payment.Provider, req payment.WebhookRequest) (*reconciler.Result, error)
}

type WebhookController struct {
	providers  map[string]payment.Provider
	reconciler WebhookReconciler
	log        zerolog.Logger
}

func NewWebhookController(providers map[string]payment.Provider, rec WebhookReconciler, log zerolog.Logger) *WebhookController {
	return &WebhookController{providers: providers, reconciler: rec, log: log}
}

// Handle builds the handler for one provider's endpoint. Provider identity
// comes from the route, never from payload content.
func (wc *WebhookController) Handle(providerName string) fiber.Handler {
	provider := wc.providers[providerName]

	return func(c *fiber.Ctx) error {
		req := payment.WebhookRequest{
			Body:      c.Body(),
			Signature: c.Get("Stripe-Signature"),
			Query:     c.Queries(),
		}

		result, err := wc.reconciler.HandleWebhook(c.Context(), provider, req)
		if err != nil {
			return wc.respondError(c, providerName, err)
		}

		// Durably handled — including declines, pendings and flagged
		// garbage. Anything but a 2xx here would make the provider retry
		// an event that will never reconcile differently.
		return c.JSON(fiber.Map{
			"received": true,
			"outcome":  string(result.Outcome),
		})
	}
}

func (wc *WebhookController) respondError(c *fiber.Ctx, providerName string, err error) error {
	var apiErr *payment.ProviderAPIError

	switch {
	case errors.Is(err, payment.ErrInvalidSignature):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook signature",
		})
	case errors.As(err, &apiErr):
		// Status fetch failed; a non-2xx makes the provider redeliver.
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Provider status fetch failed",
		})
	case errors.Is(err, payment.ErrEntitlementWrite):
		// The mutation did not durably apply; never acknowledge, the
		// provider's retry is the recovery path.
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update entitlement",
		})
	default:
		wc.log.Error().Err(err).Str("provider", providerName).Msg("unexpected webhook failure")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Webhook processing failed",
		})
	}
}
