package wompi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chefscan_backend/pkg/payment"
	"chefscan_backend/pkg/payment/signature"
	"chefscan_backend/pkg/plan"
)

func newTestProvider(apiURL, eventsSecret string) *Provider {
	return New(Config{
		PublicKey:       "pub_test_123",
		PrivateKey:      "prv_test_123",
		IntegritySecret: "integrity-secret",
		EventsSecret:    eventsSecret,
		APIURL:          apiURL,
	})
}

func TestCreateCheckoutWidgetConfig(t *testing.T) {
	p := newTestProvider("", "")

	out, err := p.CreateCheckout(context.Background(), payment.CheckoutInput{
		UserID:    "u1",
		ReturnURL: "https://app.chefscan.test",
	})
	require.NoError(t, err)
	require.NotNil(t, out.Widget)

	assert.Equal(t, "pub_test_123", out.Widget.PublicKey)
	assert.Equal(t, plan.PriceCOPCents, out.Widget.AmountInCents)
	assert.Equal(t, plan.PremiumCurrency, out.Widget.Currency)
	assert.Equal(t, out.Reference, out.Widget.Reference)
	assert.True(t, signature.VerifyIntegrity(
		out.Reference, plan.PriceCOPCents, plan.PremiumCurrency, "integrity-secret", out.Widget.Signature,
	))
}

func TestCreateCheckoutPriceOverride(t *testing.T) {
	p := New(Config{
		PublicKey:       "pub_test_123",
		PrivateKey:      "prv_test_123",
		IntegritySecret: "integrity-secret",
		PriceCOPCents:   2490000,
	})

	out, err := p.CreateCheckout(context.Background(), payment.CheckoutInput{
		UserID:    "u1",
		ReturnURL: "https://app.chefscan.test",
	})
	require.NoError(t, err)
	require.NotNil(t, out.Widget)

	assert.Equal(t, int64(2490000), out.Widget.AmountInCents)
	assert.True(t, signature.VerifyIntegrity(
		out.Reference, 2490000, plan.PremiumCurrency, "integrity-secret", out.Widget.Signature,
	))
}

func TestParseWebhookFetchesTransaction(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"id":              "tx-1",
				"reference":       "chefscan_u1_1700000000000",
				"status":          "APPROVED",
				"amount_in_cents": 1990000,
				"currency":        "COP",
			},
		})
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL, "")

	// Declared status lies; the fetched status wins.
	body := []byte(`{"event":"transaction.updated","data":{"transaction":{"id":"tx-1","reference":"chefscan_u1_1700000000000","status":"DECLINED"}}}`)
	n, err := p.ParseWebhook(context.Background(), payment.WebhookRequest{Body: body})
	require.NoError(t, err)

	assert.Equal(t, "Bearer prv_test_123", gotAuth)
	assert.Equal(t, "/v1/transactions/tx-1", gotPath)
	assert.Equal(t, payment.StatusApproved, n.Status)
	assert.Equal(t, "chefscan_u1_1700000000000", n.Reference)
	assert.Equal(t, int64(1990000), n.AmountInCents)
}

func TestParseWebhookChecksumMismatchRejected(t *testing.T) {
	p := newTestProvider("", "events-secret")

	body := []byte(`{
		"event": "transaction.updated",
		"data": {"transaction": {"id": "tx-1", "reference": "chefscan_u1_1", "status": "APPROVED", "amount_in_cents": 1990000}},
		"signature": {"checksum": "deadbeef", "properties": ["transaction.id", "transaction.status", "transaction.amount_in_cents"]},
		"timestamp": 1700000000
	}`)

	_, err := p.ParseWebhook(context.Background(), payment.WebhookRequest{Body: body})
	assert.ErrorIs(t, err, payment.ErrInvalidSignature)
}

func TestParseWebhookValidChecksum(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"id": "tx-1", "reference": "chefscan_u1_1", "status": "APPROVED",
				"amount_in_cents": 1990000, "currency": "COP",
			},
		})
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL, "events-secret")

	checksum := signature.EventChecksum([]string{"tx-1", "APPROVED", "1990000"}, 1700000000, "events-secret")
	body := fmt.Sprintf(`{
		"event": "transaction.updated",
		"data": {"transaction": {"id": "tx-1", "reference": "chefscan_u1_1", "status": "APPROVED", "amount_in_cents": 1990000}},
		"signature": {"checksum": "%s", "properties": ["transaction.id", "transaction.status", "transaction.amount_in_cents"]},
		"timestamp": 1700000000
	}`, checksum)

	n, err := p.ParseWebhook(context.Background(), payment.WebhookRequest{Body: []byte(body)})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusApproved, n.Status)
}

func TestParseWebhookNoIDNoChecksumRejected(t *testing.T) {
	p := newTestProvider("", "")

	body := []byte(`{"event":"transaction.updated","data":{"transaction":{"reference":"chefscan_u1_1","status":"APPROVED"}}}`)
	_, err := p.ParseWebhook(context.Background(), payment.WebhookRequest{Body: body})
	assert.ErrorIs(t, err, payment.ErrInvalidSignature)
}

func TestParseWebhookFetchFailureIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL, "")
	body := []byte(`{"event":"transaction.updated","data":{"transaction":{"id":"tx-1","reference":"chefscan_u1_1","status":"APPROVED"}}}`)

	_, err := p.ParseWebhook(context.Background(), payment.WebhookRequest{Body: body})

	var apiErr *payment.ProviderAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, Name, apiErr.Provider)
}

func TestParseWebhookGarbageBody(t *testing.T) {
	p := newTestProvider("", "")

	_, err := p.ParseWebhook(context.Background(), payment.WebhookRequest{Body: []byte("not json")})
	assert.ErrorIs(t, err, payment.ErrMalformedReference)

	_, err = p.ParseWebhook(context.Background(), payment.WebhookRequest{Body: []byte(`{"event":"x","data":{}}`)})
	assert.ErrorIs(t, err, payment.ErrMalformedReference)
}

func TestMapStatus(t *testing.T) {
	assert.Equal(t, payment.StatusApproved, mapStatus("APPROVED"))
	assert.Equal(t, payment.StatusDeclined, mapStatus("DECLINED"))
	assert.Equal(t, payment.StatusDeclined, mapStatus("VOIDED"))
	assert.Equal(t, payment.StatusPending, mapStatus("PENDING"))
	assert.Equal(t, payment.StatusErrored, mapStatus("ERROR"))
}
