// Package stripe adapts Stripe's hosted checkout and signed webhooks to
// the provider contract. Stripe manages the recurring subscription itself,
// so renewals and cancellations arrive as customer.subscription.* events
// keyed by customer id rather than by reference.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"

	stripego "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"

	"chefscan_backend/pkg/payment"
	"chefscan_backend/pkg/payment/reference"
)

const Name = "stripe"

type Config struct {
	SecretKey     string
	WebhookSecret string
	PriceID       string
}

type Provider struct {
	api           *client.API
	webhookSecret string
	priceID       string
}

func New(cfg Config) *Provider {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)

	return &Provider{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		priceID:       cfg.PriceID,
	}
}

func (p *Provider) Name() string { return Name }

func (p *Provider) CreateCheckout(ctx context.Context, in payment.CheckoutInput) (*payment.Checkout, error) {
	ref, err := reference.Encode(in.UserID, Name)
	if err != nil {
		return nil, err
	}

	customerID := in.CustomerID
	if customerID == "" {
		params := &stripego.CustomerParams{
			Email: stripego.String(in.Email),
		}
		if name := fullName(in); name != "" {
			params.Name = stripego.String(name)
		}
		params.AddMetadata("user_id", in.UserID)

		cust, err := p.api.Customers.New(params)
		if err != nil {
			return nil, &payment.ProviderAPIError{Provider: Name, Op: "create customer", Err: err}
		}
		customerID = cust.ID
	}

	params := &stripego.CheckoutSessionParams{
		Customer: stripego.String(customerID),
		Mode:     stripego.String(string(stripego.CheckoutSessionModeSubscription)),
		LineItems: []*stripego.CheckoutSessionLineItemParams{
			{
				Price:    stripego.String(p.priceID),
				Quantity: stripego.Int64(1),
			},
		},
		SuccessURL:        stripego.String(in.ReturnURL + "/api/subscriptions/payment-success"),
		CancelURL:         stripego.String(in.ReturnURL + "/api/subscriptions/payment-cancelled"),
		ClientReferenceID: stripego.String(ref),
	}

	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, &payment.ProviderAPIError{Provider: Name, Op: "create checkout session", Err: err}
	}

	return &payment.Checkout{
		Provider:    Name,
		Reference:   ref,
		RedirectURL: sess.URL,
		CustomerID:  customerID,
	}, nil
}

func (p *Provider) ParseWebhook(ctx context.Context, req payment.WebhookRequest) (*payment.Notification, error) {
	event, err := webhook.ConstructEvent(req.Body, req.Signature, p.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrInvalidSignature, err)
	}

	switch event.Type {
	case "checkout.session.completed":
		var session struct {
			ClientReferenceID string `json:"client_reference_id"`
			Customer          string `json:"customer"`
			PaymentStatus     string `json:"payment_status"`
			AmountTotal       int64  `json:"amount_total"`
			Currency          string `json:"currency"`
		}
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("%w: bad checkout.session payload", payment.ErrMalformedReference)
		}

		status := payment.StatusApproved
		if session.PaymentStatus != "paid" {
			status = payment.StatusPending
		}

		return &payment.Notification{
			Provider:      Name,
			EventType:     event.Type,
			Reference:     session.ClientReferenceID,
			CustomerID:    session.Customer,
			Status:        status,
			AmountInCents: session.AmountTotal,
			Currency:      session.Currency,
		}, nil

	case "customer.subscription.updated":
		var sub struct {
			Customer         string `json:"customer"`
			Status           string `json:"status"`
			CurrentPeriodEnd int64  `json:"current_period_end"`
		}
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("%w: bad subscription payload", payment.ErrMalformedReference)
		}

		n := &payment.Notification{
			Provider:   Name,
			EventType:  event.Type,
			CustomerID: sub.Customer,
			PeriodEnd:  sub.CurrentPeriodEnd,
		}
		switch sub.Status {
		case "active", "trialing":
			n.Status = payment.StatusApproved
		case "past_due", "unpaid":
			n.Status = payment.StatusPastDue
		case "canceled":
			n.Status = payment.StatusCanceled
		default:
			n.Status = payment.StatusPending
		}
		return n, nil

	case "customer.subscription.deleted":
		var sub struct {
			Customer string `json:"customer"`
		}
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("%w: bad subscription payload", payment.ErrMalformedReference)
		}

		return &payment.Notification{
			Provider:   Name,
			EventType:  event.Type,
			CustomerID: sub.Customer,
			Status:     payment.StatusCanceled,
		}, nil
	}

	return nil, fmt.Errorf("%w: %s", payment.ErrIgnoredEvent, event.Type)
}

func fullName(in payment.CheckoutInput) string {
	switch {
	case in.FirstName != "" && in.LastName != "":
		return in.FirstName + " " + in.LastName
	case in.FirstName != "":
		return in.FirstName
	default:
		return in.LastName
	}
}
