// Package payment defines the provider-neutral contract shared by the
// Stripe, Mercado Pago and Wompi integrations. A provider turns a checkout
// request into a redirect or widget payload, and turns a raw webhook
// delivery into a normalized Notification; everything after that point is
// the reconciler's job.
package payment

import (
	"context"
	"errors"
	"fmt"
)

type Status string

const (
	StatusApproved Status = "approved"
	StatusDeclined Status = "declined"
	StatusPending  Status = "pending"
	StatusErrored  Status = "errored"
	StatusCanceled Status = "canceled"
	StatusPastDue  Status = "past_due"
)

var (
	ErrInvalidSignature   = errors.New("invalid webhook signature")
	ErrMalformedReference = errors.New("malformed payment reference")
	ErrIgnoredEvent       = errors.New("event type not handled")
	ErrEntitlementWrite   = errors.New("entitlement write failed")
)

// ProviderAPIError wraps a failed outbound call to a provider. Webhook
// handlers treat it as retryable; checkout initiation surfaces it to the
// caller.
type ProviderAPIError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderAPIError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderAPIError) Unwrap() error { return e.Err }

type CheckoutInput struct {
	UserID    string
	Email     string
	FirstName string
	LastName  string
	Phone     string
	ReturnURL string
	// CustomerID is the cached provider-side customer, empty on the first
	// checkout. Providers that create one report it back on Checkout so
	// the caller can cache it on the profile.
	CustomerID string
}

// WidgetConfig is everything the client-side Wompi widget needs to open.
type WidgetConfig struct {
	PublicKey     string `json:"public_key"`
	Reference     string `json:"reference"`
	AmountInCents int64  `json:"amount_in_cents"`
	Currency      string `json:"currency"`
	Signature     string `json:"signature"`
	RedirectURL   string `json:"redirect_url"`
}

type Checkout struct {
	Provider    string        `json:"provider"`
	Reference   string        `json:"reference"`
	RedirectURL string        `json:"redirect_url,omitempty"`
	Widget      *WidgetConfig `json:"widget,omitempty"`
	CustomerID  string        `json:"-"`
}

// Notification is a verified, normalized webhook event. Reference is empty
// for subscription-lifecycle events that only carry a provider customer id.
type Notification struct {
	Provider      string
	EventType     string
	Reference     string
	CustomerID    string
	Status        Status
	AmountInCents int64
	Currency      string
	// PeriodEnd is the provider-managed subscription period end, unix
	// seconds, zero when the provider does not manage renewal.
	PeriodEnd int64
}

// WebhookRequest carries the raw inbound delivery. Provider identity comes
// from the endpoint that was invoked, never from the payload.
type WebhookRequest struct {
	Body      []byte
	Signature string
	Query     map[string]string
}

// Provider is the capability set a payment gateway must implement. Adding a
// gateway means adding one implementation; the reconciler state machine
// stays untouched.
type Provider interface {
	Name() string
	CreateCheckout(ctx context.Context, in CheckoutInput) (*Checkout, error)
	// ParseWebhook verifies the delivery (signature or authenticated
	// status fetch, per the provider's capabilities) and maps it into a
	// Notification. It must never mutate state.
	ParseWebhook(ctx context.Context, req WebhookRequest) (*Notification, error)
}
