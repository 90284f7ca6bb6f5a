package controller

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chefscan_backend/pkg/payment"
	"chefscan_backend/pkg/payment/reconciler"
)

type stubProvider struct{ name string }

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) CreateCheckout(context.Context, payment.CheckoutInput) (*payment.Checkout, error) {
	return nil, errors.New("not used")
}

func (p *stubProvider) ParseWebhook(context.Context, payment.WebhookRequest) (*payment.Notification, error) {
	return nil, errors.New("not used")
}

type stubReconciler struct {
	result *reconciler.Result
	err    error
	gotReq payment.WebhookRequest
}

func (r *stubReconciler) HandleWebhook(_ context.Context, _ payment.Provider, req payment.WebhookRequest) (*reconciler.Result, error) {
	r.gotReq = req
	return r.result, r.err
}

func newWebhookApp(rec WebhookReconciler) *fiber.App {
	providers := map[string]payment.Provider{
		"wompi": &stubProvider{name: "wompi"},
	}
	wc := NewWebhookController(providers, rec, zerolog.Nop())

	app := fiber.New()
	app.Post("/api/webhook/wompi", wc.Handle("wompi"))
	return app
}

func TestWebhookHandledEventsGet200(t *testing.T) {
	outcomes := []reconciler.Outcome{
		reconciler.OutcomeActivated,
		reconciler.OutcomeDuplicate,
		reconciler.OutcomeDeclined,
		reconciler.OutcomePending,
		reconciler.OutcomeMalformedRef,
		reconciler.OutcomeIgnored,
	}

	for _, outcome := range outcomes {
		t.Run(string(outcome), func(t *testing.T) {
			app := newWebhookApp(&stubReconciler{result: &reconciler.Result{Outcome: outcome}})

			req := httptest.NewRequest("POST", "/api/webhook/wompi", strings.NewReader(`{}`))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		})
	}
}

func TestWebhookInvalidSignatureGets400(t *testing.T) {
	app := newWebhookApp(&stubReconciler{err: payment.ErrInvalidSignature})

	req := httptest.NewRequest("POST", "/api/webhook/wompi", strings.NewReader(`{}`))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestWebhookProviderFetchFailureGets502(t *testing.T) {
	app := newWebhookApp(&stubReconciler{
		err: &payment.ProviderAPIError{Provider: "wompi", Op: "fetch", Err: errors.New("timeout")},
	})

	req := httptest.NewRequest("POST", "/api/webhook/wompi", strings.NewReader(`{}`))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
}

func TestWebhookStoreFailureGets500(t *testing.T) {
	app := newWebhookApp(&stubReconciler{
		err: payment.ErrEntitlementWrite,
	})

	req := httptest.NewRequest("POST", "/api/webhook/wompi", strings.NewReader(`{}`))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestWebhookPassesQueryAndSignature(t *testing.T) {
	rec := &stubReconciler{result: &reconciler.Result{Outcome: reconciler.OutcomeIgnored}}
	app := newWebhookApp(rec)

	req := httptest.NewRequest("POST", "/api/webhook/wompi?type=payment&data.id=42", strings.NewReader(`{"a":1}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")

	_, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, "payment", rec.gotReq.Query["type"])
	assert.Equal(t, "42", rec.gotReq.Query["data.id"])
	assert.Equal(t, "t=1,v1=abc", rec.gotReq.Signature)
	assert.Equal(t, `{"a":1}`, string(rec.gotReq.Body))
}
