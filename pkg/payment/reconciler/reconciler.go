// Package reconciler turns a verified provider callback into an idempotent
// entitlement mutation. One state machine serves every provider; gateways
// differ only in how their events are verified and normalized, which lives
// behind payment.Provider.
package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"chefscan_backend/internal/model"
	"chefscan_backend/pkg/entitlement"
	"chefscan_backend/pkg/payment"
	"chefscan_backend/pkg/payment/reference"
	"chefscan_backend/pkg/plan"
)

type Outcome string

const (
	OutcomeActivated    Outcome = "activated"
	OutcomeRenewed      Outcome = "renewed"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeDeclined     Outcome = "declined"
	OutcomePending      Outcome = "pending"
	OutcomeRevoked      Outcome = "revoked"
	OutcomePastDue      Outcome = "past_due"
	OutcomeIgnored      Outcome = "ignored"
	OutcomeMalformedRef Outcome = "malformed_reference"
	OutcomeUnmatched    Outcome = "unmatched"
)

type Result struct {
	Outcome      Outcome
	UserID       string
	Notification *payment.Notification
}

type EntitlementStore interface {
	GetByUserID(ctx context.Context, userID string) (*model.Profile, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (*model.Profile, error)
	Update(ctx context.Context, userID string, fields map[string]interface{}) error
}

type EventLedger interface {
	AlreadyProcessed(ctx context.Context, provider, ref, status string) (bool, error)
	Record(ctx context.Context, event *model.PaymentEvent) error
}

// Mailer sends billing lifecycle emails. Delivery is best effort; a failed
// email never fails the webhook.
type Mailer interface {
	SendPremiumActivated(email, name string, endDate time.Time) error
	SendPremiumCancelled(email, name string) error
}

// Archiver persists raw webhook payloads. Best effort.
type Archiver interface {
	Archive(ctx context.Context, provider, ref string, body []byte) error
}

// Metrics counts webhook outcomes per provider.
type Metrics interface {
	WebhookEvent(provider, outcome string)
}

type Reconciler struct {
	store    EntitlementStore
	ledger   EventLedger
	mailer   Mailer
	archiver Archiver
	metrics  Metrics
	log      zerolog.Logger
	now      func() time.Time
}

type Option func(*Reconciler)

func WithMailer(m Mailer) Option { return func(r *Reconciler) { r.mailer = m } }

func WithArchiver(a Archiver) Option { return func(r *Reconciler) { r.archiver = a } }

func WithMetrics(m Metrics) Option { return func(r *Reconciler) { r.metrics = m } }

func WithClock(now func() time.Time) Option { return func(r *Reconciler) { r.now = now } }

func New(store EntitlementStore, ledger EventLedger, log zerolog.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:  store,
		ledger: ledger,
		log:    log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HandleWebhook runs one delivery through the state machine. A nil error
// means the event was durably handled and the provider should get a 2xx,
// even for declines and flagged garbage. A non-nil error is either a
// verification rejection or a retryable failure; the controller maps it to
// the provider's retry convention.
func (r *Reconciler) HandleWebhook(ctx context.Context, provider payment.Provider, req payment.WebhookRequest) (*Result, error) {
	name := provider.Name()

	if r.archiver != nil && len(req.Body) > 0 {
		if err := r.archiver.Archive(ctx, name, "", req.Body); err != nil {
			r.log.Warn().Err(err).Str("provider", name).Msg("webhook archive failed")
		}
	}

	n, err := provider.ParseWebhook(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrIgnoredEvent):
			r.count(name, OutcomeIgnored)
			return &Result{Outcome: OutcomeIgnored}, nil
		case errors.Is(err, payment.ErrMalformedReference):
			// Undecodable payload: tampering or a codec bug, either way a
			// retry cannot fix it. Acknowledge, log loudly.
			r.log.Error().Err(err).Str("provider", name).Msg("malformed webhook payload")
			r.count(name, OutcomeMalformedRef)
			return &Result{Outcome: OutcomeMalformedRef}, nil
		default:
			r.log.Error().Err(err).Str("provider", name).Msg("webhook verification failed")
			return nil, err
		}
	}

	result, err := r.apply(ctx, provider, n, req.Body)
	if err != nil {
		return nil, err
	}
	r.count(name, result.Outcome)

	r.log.Info().
		Str("provider", name).
		Str("event_type", n.EventType).
		Str("reference", n.Reference).
		Str("status", string(n.Status)).
		Str("outcome", string(result.Outcome)).
		Str("user_id", result.UserID).
		Msg("webhook reconciled")

	return result, nil
}

func (r *Reconciler) apply(ctx context.Context, provider payment.Provider, n *payment.Notification, raw []byte) (*Result, error) {
	name := provider.Name()

	userID := ""
	if n.Reference != "" {
		decoded, err := reference.Decode(n.Reference, name)
		if err != nil {
			r.log.Error().Err(err).Str("provider", name).Str("reference", n.Reference).
				Msg("reference decode failed")
			r.record(ctx, n, "", OutcomeMalformedRef, raw)
			return &Result{Outcome: OutcomeMalformedRef, Notification: n}, nil
		}
		userID = decoded
	}

	switch n.Status {
	case payment.StatusApproved:
		return r.applyApproved(ctx, n, userID, raw)

	case payment.StatusDeclined, payment.StatusErrored:
		// Terminal failure: recorded, never mutates entitlement. An
		// earlier Approved for the same reference stays granted.
		r.record(ctx, n, userID, OutcomeDeclined, raw)
		return &Result{Outcome: OutcomeDeclined, UserID: userID, Notification: n}, nil

	case payment.StatusPending:
		r.record(ctx, n, userID, OutcomePending, raw)
		return &Result{Outcome: OutcomePending, UserID: userID, Notification: n}, nil

	case payment.StatusCanceled:
		return r.applyCanceled(ctx, n, userID, raw)

	case payment.StatusPastDue:
		return r.applyPastDue(ctx, n, userID, raw)
	}

	r.log.Warn().Str("provider", name).Str("status", string(n.Status)).Msg("unhandled status")
	return &Result{Outcome: OutcomeIgnored, Notification: n}, nil
}

func (r *Reconciler) applyApproved(ctx context.Context, n *payment.Notification, userID string, raw []byte) (*Result, error) {
	// Renewal path: subscription events carry a customer id, no reference.
	if userID == "" {
		return r.applyRenewal(ctx, n, raw)
	}

	done, err := r.ledger.AlreadyProcessed(ctx, n.Provider, n.Reference, string(payment.StatusApproved))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrEntitlementWrite, err)
	}
	if done {
		// Provider redelivery of a settled reference: safe no-op, the
		// entitlement state and end date stay exactly as first applied.
		return &Result{Outcome: OutcomeDuplicate, UserID: userID, Notification: n}, nil
	}

	endDate := r.now().Add(plan.PremiumDuration)
	if n.PeriodEnd > 0 {
		endDate = time.Unix(n.PeriodEnd, 0)
	}

	fields := map[string]interface{}{
		"is_premium":            true,
		"subscription_status":   model.SubscriptionActive,
		"subscription_end_date": endDate,
		"chef_credits":          plan.GetLimits(plan.PremiumTier).ChefCredits,
	}
	if n.Provider == "stripe" && n.CustomerID != "" {
		fields["stripe_customer_id"] = n.CustomerID
	}

	if err := r.store.Update(ctx, userID, fields); err != nil {
		if errors.Is(err, entitlement.ErrNotFound) {
			// The reference decoded but the profile is gone (deleted
			// account). Redelivery cannot fix it; flag and acknowledge.
			r.log.Error().Str("provider", n.Provider).Str("user_id", userID).
				Msg("approved payment for unknown profile")
			r.record(ctx, n, userID, OutcomeUnmatched, raw)
			return &Result{Outcome: OutcomeUnmatched, UserID: userID, Notification: n}, nil
		}
		return nil, fmt.Errorf("%w: %v", payment.ErrEntitlementWrite, err)
	}

	r.record(ctx, n, userID, OutcomeActivated, raw)
	r.notifyActivated(ctx, userID, endDate)

	return &Result{Outcome: OutcomeActivated, UserID: userID, Notification: n}, nil
}

func (r *Reconciler) applyRenewal(ctx context.Context, n *payment.Notification, raw []byte) (*Result, error) {
	profile, err := r.lookupByCustomer(ctx, n)
	if err != nil {
		if errors.Is(err, entitlement.ErrNotFound) {
			r.log.Error().Str("provider", n.Provider).Str("customer_id", n.CustomerID).
				Msg("subscription event for unknown customer")
			r.record(ctx, n, "", OutcomeUnmatched, raw)
			return &Result{Outcome: OutcomeUnmatched, Notification: n}, nil
		}
		return nil, fmt.Errorf("%w: %v", payment.ErrEntitlementWrite, err)
	}

	endDate := r.now().Add(plan.PremiumDuration)
	if n.PeriodEnd > 0 {
		endDate = time.Unix(n.PeriodEnd, 0)
	}

	fields := map[string]interface{}{
		"is_premium":            true,
		"subscription_status":   model.SubscriptionActive,
		"subscription_end_date": endDate,
		"chef_credits":          plan.GetLimits(plan.PremiumTier).ChefCredits,
	}
	if err := r.store.Update(ctx, profile.UserID, fields); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrEntitlementWrite, err)
	}

	// Distinct ledger key per billing period so each renewal is visible.
	renewRef := fmt.Sprintf("sub:%s:%d", n.CustomerID, n.PeriodEnd)
	r.record(ctx, &payment.Notification{
		Provider: n.Provider, EventType: n.EventType, Reference: renewRef, Status: n.Status,
	}, profile.UserID, OutcomeRenewed, raw)

	return &Result{Outcome: OutcomeRenewed, UserID: profile.UserID, Notification: n}, nil
}

func (r *Reconciler) applyCanceled(ctx context.Context, n *payment.Notification, userID string, raw []byte) (*Result, error) {
	if userID == "" {
		profile, err := r.lookupByCustomer(ctx, n)
		if err != nil {
			if errors.Is(err, entitlement.ErrNotFound) {
				r.log.Warn().Str("provider", n.Provider).Str("customer_id", n.CustomerID).
					Msg("cancellation for unknown customer")
				r.record(ctx, n, "", OutcomeUnmatched, raw)
				return &Result{Outcome: OutcomeUnmatched, Notification: n}, nil
			}
			return nil, fmt.Errorf("%w: %v", payment.ErrEntitlementWrite, err)
		}
		userID = profile.UserID
	}

	fields := map[string]interface{}{
		"is_premium":          false,
		"subscription_status": model.SubscriptionCanceled,
		"chef_credits":        plan.GetLimits(plan.FreeTier).ChefCredits,
	}
	if err := r.store.Update(ctx, userID, fields); err != nil {
		if errors.Is(err, entitlement.ErrNotFound) {
			r.record(ctx, n, userID, OutcomeUnmatched, raw)
			return &Result{Outcome: OutcomeUnmatched, UserID: userID, Notification: n}, nil
		}
		return nil, fmt.Errorf("%w: %v", payment.ErrEntitlementWrite, err)
	}

	r.record(ctx, n, userID, OutcomeRevoked, raw)
	r.notifyCancelled(ctx, userID)

	return &Result{Outcome: OutcomeRevoked, UserID: userID, Notification: n}, nil
}

func (r *Reconciler) applyPastDue(ctx context.Context, n *payment.Notification, userID string, raw []byte) (*Result, error) {
	if userID == "" {
		profile, err := r.lookupByCustomer(ctx, n)
		if err != nil {
			if errors.Is(err, entitlement.ErrNotFound) {
				r.record(ctx, n, "", OutcomeUnmatched, raw)
				return &Result{Outcome: OutcomeUnmatched, Notification: n}, nil
			}
			return nil, fmt.Errorf("%w: %v", payment.ErrEntitlementWrite, err)
		}
		userID = profile.UserID
	}

	// Premium keeps running until the paid-through date; lazy expiry and
	// the daily sweep take it from there.
	fields := map[string]interface{}{
		"subscription_status": model.SubscriptionPastDue,
	}
	if err := r.store.Update(ctx, userID, fields); err != nil && !errors.Is(err, entitlement.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", payment.ErrEntitlementWrite, err)
	}

	r.record(ctx, n, userID, OutcomePastDue, raw)
	return &Result{Outcome: OutcomePastDue, UserID: userID, Notification: n}, nil
}

func (r *Reconciler) lookupByCustomer(ctx context.Context, n *payment.Notification) (*model.Profile, error) {
	if n.CustomerID == "" {
		return nil, entitlement.ErrNotFound
	}
	return r.store.GetByStripeCustomerID(ctx, n.CustomerID)
}

// record persists the event to the ledger. The entitlement mutation is
// already durable when this runs, and re-applying it on redelivery is
// safe, so a ledger failure is logged rather than failing the webhook.
func (r *Reconciler) record(ctx context.Context, n *payment.Notification, userID string, outcome Outcome, raw []byte) {
	event := &model.PaymentEvent{
		Provider:  n.Provider,
		Reference: n.Reference,
		Status:    string(n.Status),
		EventType: n.EventType,
		UserID:    userID,
		Outcome:   string(outcome),
	}
	// Mercado Pago notifies through query parameters, so the body may be
	// empty; the JSONB column only takes well-formed payloads.
	if json.Valid(raw) {
		event.Raw = datatypes.JSON(raw)
	}
	if event.Reference == "" {
		event.Reference = "customer:" + n.CustomerID
	}
	if err := r.ledger.Record(ctx, event); err != nil {
		r.log.Error().Err(err).Str("provider", n.Provider).Str("reference", event.Reference).
			Msg("ledger record failed")
	}
}

func (r *Reconciler) notifyActivated(ctx context.Context, userID string, endDate time.Time) {
	if r.mailer == nil {
		return
	}
	profile, err := r.store.GetByUserID(ctx, userID)
	if err != nil {
		return
	}
	if err := r.mailer.SendPremiumActivated(profile.Email, profile.GetFullName(), endDate); err != nil {
		r.log.Warn().Err(err).Str("user_id", userID).Msg("activation email failed")
	}
}

func (r *Reconciler) notifyCancelled(ctx context.Context, userID string) {
	if r.mailer == nil {
		return
	}
	profile, err := r.store.GetByUserID(ctx, userID)
	if err != nil {
		return
	}
	if err := r.mailer.SendPremiumCancelled(profile.Email, profile.GetFullName()); err != nil {
		r.log.Warn().Err(err).Str("user_id", userID).Msg("cancellation email failed")
	}
}

func (r *Reconciler) count(provider string, outcome Outcome) {
	if r.metrics != nil {
		r.metrics.WebhookEvent(provider, string(outcome))
	}
}
