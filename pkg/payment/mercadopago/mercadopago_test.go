package mercadopago

import (
	"context"
	"errors"
	"testing"

	mppayment "github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/preference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chefscan_backend/pkg/payment"
)

type fakePreferences struct {
	gotRequest preference.Request
}

func (f *fakePreferences) Create(ctx context.Context, request preference.Request) (*preference.Response, error) {
	f.gotRequest = request
	return &preference.Response{InitPoint: "https://mp.example/checkout"}, nil
}

type fakePayments struct {
	resource *mppayment.Response
	err      error
	gotID    int
}

func (f *fakePayments) Get(ctx context.Context, id int) (*mppayment.Response, error) {
	f.gotID = id
	return f.resource, f.err
}

func TestCreateCheckoutUsesConfiguredPrice(t *testing.T) {
	preferences := &fakePreferences{}
	p := &Provider{preferences: preferences, priceCOPCents: 2490000}

	out, err := p.CreateCheckout(context.Background(), payment.CheckoutInput{
		UserID:    "u1",
		Email:     "ana@example.com",
		ReturnURL: "https://app.chefscan.test",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://mp.example/checkout", out.RedirectURL)
	require.Len(t, preferences.gotRequest.Items, 1)
	assert.Equal(t, float64(24900), preferences.gotRequest.Items[0].UnitPrice)
	assert.Equal(t, out.Reference, preferences.gotRequest.ExternalReference)
}

func TestParseWebhookFetchesAuthoritativeStatus(t *testing.T) {
	payments := &fakePayments{
		resource: &mppayment.Response{
			Status:            "approved",
			ExternalReference: "chefscanmp_u1_1700000000000",
			TransactionAmount: 19900,
			CurrencyID:        "COP",
		},
	}
	p := &Provider{payments: payments}

	n, err := p.ParseWebhook(context.Background(), payment.WebhookRequest{
		Query: map[string]string{"type": "payment", "data.id": "12345"},
	})
	require.NoError(t, err)

	assert.Equal(t, 12345, payments.gotID)
	assert.Equal(t, payment.StatusApproved, n.Status)
	assert.Equal(t, "chefscanmp_u1_1700000000000", n.Reference)
	assert.Equal(t, int64(1990000), n.AmountInCents)
}

func TestParseWebhookRoundsFractionalCents(t *testing.T) {
	// Float representation of a decimal amount can sit just under the
	// true value; truncation would report one cent short.
	payments := &fakePayments{
		resource: &mppayment.Response{
			Status:            "approved",
			ExternalReference: "chefscanmp_u1_1",
			TransactionAmount: 198.99999999999997,
		},
	}
	p := &Provider{payments: payments}

	n, err := p.ParseWebhook(context.Background(), payment.WebhookRequest{
		Query: map[string]string{"type": "payment", "data.id": "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(19900), n.AmountInCents)
}

func TestParseWebhookLegacyTopicParams(t *testing.T) {
	payments := &fakePayments{
		resource: &mppayment.Response{Status: "rejected", ExternalReference: "chefscanmp_u1_1"},
	}
	p := &Provider{payments: payments}

	n, err := p.ParseWebhook(context.Background(), payment.WebhookRequest{
		Query: map[string]string{"topic": "payment", "id": "777"},
	})
	require.NoError(t, err)

	assert.Equal(t, 777, payments.gotID)
	assert.Equal(t, payment.StatusDeclined, n.Status)
}

func TestParseWebhookIgnoresOtherTopics(t *testing.T) {
	p := &Provider{payments: &fakePayments{}}

	_, err := p.ParseWebhook(context.Background(), payment.WebhookRequest{
		Query: map[string]string{"type": "merchant_order", "data.id": "1"},
	})
	assert.ErrorIs(t, err, payment.ErrIgnoredEvent)
}

func TestParseWebhookBadPaymentID(t *testing.T) {
	p := &Provider{payments: &fakePayments{}}

	_, err := p.ParseWebhook(context.Background(), payment.WebhookRequest{
		Query: map[string]string{"type": "payment", "data.id": "not-a-number"},
	})
	assert.ErrorIs(t, err, payment.ErrMalformedReference)
}

func TestParseWebhookFetchFailureIsProviderAPIError(t *testing.T) {
	p := &Provider{payments: &fakePayments{err: errors.New("boom")}}

	_, err := p.ParseWebhook(context.Background(), payment.WebhookRequest{
		Query: map[string]string{"type": "payment", "data.id": "1"},
	})

	var apiErr *payment.ProviderAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, Name, apiErr.Provider)
}

func TestMapStatus(t *testing.T) {
	assert.Equal(t, payment.StatusApproved, mapStatus("approved"))
	assert.Equal(t, payment.StatusDeclined, mapStatus("rejected"))
	assert.Equal(t, payment.StatusDeclined, mapStatus("cancelled"))
	assert.Equal(t, payment.StatusPending, mapStatus("in_process"))
	assert.Equal(t, payment.StatusErrored, mapStatus("charged_back"))
}
