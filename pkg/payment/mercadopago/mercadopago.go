// Package mercadopago adapts Mercado Pago checkout preferences to the
// provider contract. Mercado Pago's webhook carries no verifiable
// signature — only a payment id — so all trust comes from the
// authenticated follow-up fetch against /v1/payments/{id}.
package mercadopago

import (
	"context"
	"fmt"
	"math"
	"strconv"

	mpconfig "github.com/mercadopago/sdk-go/pkg/config"
	mppayment "github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/preference"

	"chefscan_backend/pkg/payment"
	"chefscan_backend/pkg/payment/reference"
	"chefscan_backend/pkg/plan"
)

const Name = "mercadopago"

type Config struct {
	AccessToken string
	// PriceCOPCents overrides the premium price; zero keeps the default.
	PriceCOPCents int64
}

type Provider struct {
	preferences   preferenceClient
	payments      paymentClient
	priceCOPCents int64
}

// Thin interfaces over the SDK clients so webhook parsing is testable
// without Mercado Pago credentials.
type preferenceClient interface {
	Create(ctx context.Context, request preference.Request) (*preference.Response, error)
}

type paymentClient interface {
	Get(ctx context.Context, id int) (*mppayment.Response, error)
}

func New(cfg Config) (*Provider, error) {
	sdkCfg, err := mpconfig.New(cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("mercadopago config: %w", err)
	}

	if cfg.PriceCOPCents <= 0 {
		cfg.PriceCOPCents = plan.PriceCOPCents
	}

	return &Provider{
		preferences:   preference.NewClient(sdkCfg),
		payments:      mppayment.NewClient(sdkCfg),
		priceCOPCents: cfg.PriceCOPCents,
	}, nil
}

func (p *Provider) Name() string { return Name }

func (p *Provider) CreateCheckout(ctx context.Context, in payment.CheckoutInput) (*payment.Checkout, error) {
	ref, err := reference.Encode(in.UserID, Name)
	if err != nil {
		return nil, err
	}

	// Missing profile fields fall back to generic payer data; the
	// checkout must never fail over an empty name.
	firstName := in.FirstName
	if firstName == "" {
		firstName = "ChefScan"
	}
	lastName := in.LastName
	if lastName == "" {
		lastName = "User"
	}

	request := preference.Request{
		Items: []preference.ItemRequest{
			{
				Title:       "ChefScan.IA Premium (30 dias)",
				Description: "Suscripcion premium ChefScan.IA",
				Quantity:    1,
				UnitPrice:   float64(p.priceCOPCents) / 100,
				CurrencyID:  plan.PremiumCurrency,
			},
		},
		ExternalReference: ref,
		Payer: &preference.PayerRequest{
			Name:    firstName,
			Surname: lastName,
			Email:   in.Email,
		},
		BackURLs: &preference.BackURLsRequest{
			Success: in.ReturnURL + "/api/subscriptions/payment-success",
			Pending: in.ReturnURL + "/api/subscriptions/payment-success",
			Failure: in.ReturnURL + "/api/subscriptions/payment-cancelled",
		},
		AutoReturn:      "approved",
		NotificationURL: in.ReturnURL + "/api/webhook/mercadopago",
	}

	resource, err := p.preferences.Create(ctx, request)
	if err != nil {
		return nil, &payment.ProviderAPIError{Provider: Name, Op: "create preference", Err: err}
	}

	return &payment.Checkout{
		Provider:    Name,
		Reference:   ref,
		RedirectURL: resource.InitPoint,
	}, nil
}

// ParseWebhook handles the query-parameter notification shape
// (type/topic=payment, data.id/id=<payment id>) and fetches the
// authoritative status before trusting anything.
func (p *Provider) ParseWebhook(ctx context.Context, req payment.WebhookRequest) (*payment.Notification, error) {
	topic := req.Query["type"]
	if topic == "" {
		topic = req.Query["topic"]
	}
	if topic != "payment" {
		return nil, fmt.Errorf("%w: topic %q", payment.ErrIgnoredEvent, topic)
	}

	rawID := req.Query["data.id"]
	if rawID == "" {
		rawID = req.Query["id"]
	}
	paymentID, err := strconv.Atoi(rawID)
	if err != nil {
		return nil, fmt.Errorf("%w: payment id %q", payment.ErrMalformedReference, rawID)
	}

	resource, err := p.payments.Get(ctx, paymentID)
	if err != nil {
		return nil, &payment.ProviderAPIError{Provider: Name, Op: "fetch payment", Err: err}
	}

	return &payment.Notification{
		Provider:      Name,
		EventType:     "payment." + resource.Status,
		Reference:     resource.ExternalReference,
		Status:        mapStatus(resource.Status),
		AmountInCents: int64(math.Round(resource.TransactionAmount * 100)),
		Currency:      resource.CurrencyID,
	}, nil
}

func mapStatus(status string) payment.Status {
	switch status {
	case "approved":
		return payment.StatusApproved
	case "rejected", "cancelled":
		return payment.StatusDeclined
	case "pending", "in_process", "authorized", "in_mediation":
		return payment.StatusPending
	default:
		return payment.StatusErrored
	}
}
