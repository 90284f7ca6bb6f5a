// Package wompi adapts the Wompi widget checkout to the provider contract.
// Wompi has no Go SDK; the surface is one authenticated GET against the
// transactions endpoint plus the integrity digest the widget requires.
// Whenever the event carries a transaction id the status is re-fetched
// from the API before any mutation — the webhook body alone is not a
// trustworthy signal.
package wompi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"chefscan_backend/pkg/payment"
	"chefscan_backend/pkg/payment/reference"
	"chefscan_backend/pkg/payment/signature"
	"chefscan_backend/pkg/plan"
)

const (
	Name = "wompi"

	DefaultAPIURL = "https://production.wompi.co"
)

type Config struct {
	PublicKey       string
	PrivateKey      string
	IntegritySecret string
	// EventsSecret enables checksum verification on inbound events. Empty
	// means events are only trusted through the follow-up fetch.
	EventsSecret string
	APIURL       string
	// PriceCOPCents overrides the premium price; zero keeps the default.
	PriceCOPCents int64
}

type Provider struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config) *Provider {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.PriceCOPCents <= 0 {
		cfg.PriceCOPCents = plan.PriceCOPCents
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *Provider) Name() string { return Name }

// CreateCheckout builds the widget configuration; Wompi needs no outbound
// call until the webhook arrives.
func (p *Provider) CreateCheckout(ctx context.Context, in payment.CheckoutInput) (*payment.Checkout, error) {
	ref, err := reference.Encode(in.UserID, Name)
	if err != nil {
		return nil, err
	}

	return &payment.Checkout{
		Provider:  Name,
		Reference: ref,
		Widget: &payment.WidgetConfig{
			PublicKey:     p.cfg.PublicKey,
			Reference:     ref,
			AmountInCents: p.cfg.PriceCOPCents,
			Currency:      plan.PremiumCurrency,
			Signature:     signature.Integrity(ref, p.cfg.PriceCOPCents, plan.PremiumCurrency, p.cfg.IntegritySecret),
			RedirectURL:   in.ReturnURL + "/api/subscriptions/payment-success",
		},
	}, nil
}

type event struct {
	Event string `json:"event"`
	Data  struct {
		Transaction transaction `json:"transaction"`
	} `json:"data"`
	Signature *struct {
		Checksum   string   `json:"checksum"`
		Properties []string `json:"properties"`
	} `json:"signature"`
	Timestamp int64 `json:"timestamp"`
}

type transaction struct {
	ID            string `json:"id"`
	Reference     string `json:"reference"`
	Status        string `json:"status"`
	AmountInCents int64  `json:"amount_in_cents"`
	Currency      string `json:"currency"`
}

func (p *Provider) ParseWebhook(ctx context.Context, req payment.WebhookRequest) (*payment.Notification, error) {
	var ev event
	if err := json.Unmarshal(req.Body, &ev); err != nil {
		return nil, fmt.Errorf("%w: undecodable event body", payment.ErrMalformedReference)
	}

	tx := ev.Data.Transaction
	if tx.Reference == "" && tx.ID == "" {
		return nil, fmt.Errorf("%w: event carries no transaction", payment.ErrMalformedReference)
	}

	checksumOK := false
	if p.cfg.EventsSecret != "" && ev.Signature != nil {
		if !p.verifyChecksum(&ev) {
			return nil, fmt.Errorf("%w: event checksum mismatch", payment.ErrInvalidSignature)
		}
		checksumOK = true
	}

	// Fetch truth from source whenever we can; the declared status is only
	// acceptable when the checksum proved the payload intact.
	if tx.ID != "" {
		fetched, err := p.fetchTransaction(ctx, tx.ID)
		if err != nil {
			return nil, err
		}
		tx = *fetched
	} else if !checksumOK {
		return nil, fmt.Errorf("%w: unverifiable event without transaction id", payment.ErrInvalidSignature)
	}

	return &payment.Notification{
		Provider:      Name,
		EventType:     ev.Event,
		Reference:     tx.Reference,
		Status:        mapStatus(tx.Status),
		AmountInCents: tx.AmountInCents,
		Currency:      tx.Currency,
	}, nil
}

func (p *Provider) verifyChecksum(ev *event) bool {
	values := make([]string, 0, len(ev.Signature.Properties))
	for _, prop := range ev.Signature.Properties {
		switch prop {
		case "transaction.id":
			values = append(values, ev.Data.Transaction.ID)
		case "transaction.status":
			values = append(values, ev.Data.Transaction.Status)
		case "transaction.amount_in_cents":
			values = append(values, strconv.FormatInt(ev.Data.Transaction.AmountInCents, 10))
		case "transaction.reference":
			values = append(values, ev.Data.Transaction.Reference)
		default:
			return false
		}
	}
	expected := signature.EventChecksum(values, ev.Timestamp, p.cfg.EventsSecret)
	return signature.Equal(expected, ev.Signature.Checksum)
}

func (p *Provider) fetchTransaction(ctx context.Context, id string) (*transaction, error) {
	url := fmt.Sprintf("%s/v1/transactions/%s", p.cfg.APIURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &payment.ProviderAPIError{Provider: Name, Op: "build request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.PrivateKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &payment.ProviderAPIError{Provider: Name, Op: "fetch transaction", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &payment.ProviderAPIError{
			Provider: Name,
			Op:       "fetch transaction",
			Err:      fmt.Errorf("status %d: %s", resp.StatusCode, body),
		}
	}

	var out struct {
		Data transaction `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &payment.ProviderAPIError{Provider: Name, Op: "decode transaction", Err: err}
	}
	return &out.Data, nil
}

func mapStatus(status string) payment.Status {
	switch status {
	case "APPROVED":
		return payment.StatusApproved
	case "DECLINED", "VOIDED":
		return payment.StatusDeclined
	case "PENDING":
		return payment.StatusPending
	default:
		return payment.StatusErrored
	}
}
