package tabby

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://tabby.test"

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c := NewClient(testBaseURL, "sk_test", "gymmawy_ae", 5*time.Second)
	gock.InterceptClient(c.rest.GetClient())
	t.Cleanup(func() {
		gock.RestoreClient(c.rest.GetClient())
		gock.Off()
	})
	return c
}

func TestCreateCheckout(t *testing.T) {
	c := newTestClient(t)

	gock.New(testBaseURL).Post(checkoutPath).
		MatchHeader("Authorization", "Bearer sk_test").
		Reply(http.StatusOK).
		JSON(map[string]any{
			"id":      "sess_1",
			"status":  "created",
			"payment": map[string]any{"id": "pay_1"},
			"configuration": map[string]any{
				"available_products": map[string]any{
					"installments": []map[string]any{{"web_url": "https://checkout.tabby.ai/sess_1"}},
				},
			},
		})

	out, err := c.CreateCheckout(context.Background(), CheckoutRequest{
		Payment: PaymentRequest{Amount: "187.50", Currency: "AED", Order: Order{ReferenceID: "order-1"}},
		Lang:    "en",
	})
	require.NoError(t, err)
	assert.Equal(t, "pay_1", out.Payment.ID)
	assert.Equal(t, "https://checkout.tabby.ai/sess_1", out.WebURL())
}

func TestCreateCheckoutRejected(t *testing.T) {
	c := newTestClient(t)

	gock.New(testBaseURL).Post(checkoutPath).
		Reply(http.StatusOK).
		JSON(map[string]any{"id": "sess_2", "status": "rejected", "payment": map[string]any{"id": "pay_2"}})

	out, err := c.CreateCheckout(context.Background(), CheckoutRequest{})
	assert.ErrorIs(t, err, ErrNoWebURL)
	require.NotNil(t, out)
	assert.Equal(t, "rejected", out.Status)
}

func TestGetAndCapturePayment(t *testing.T) {
	c := newTestClient(t)

	gock.New(testBaseURL).Get(paymentsPath + "pay_1").
		Reply(http.StatusOK).
		JSON(map[string]any{"id": "pay_1", "status": "AUTHORIZED", "amount": "187.50", "order": map[string]any{"reference_id": "order-1"}})
	gock.New(testBaseURL).Post(paymentsPath + "pay_1/captures").
		MatchType("json").
		JSON(map[string]string{"amount": "187.50"}).
		Reply(http.StatusOK).
		JSON(map[string]any{"id": "pay_1", "status": "CLOSED", "amount": "187.50"})

	p, err := c.GetPayment(context.Background(), "pay_1")
	require.NoError(t, err)
	assert.Equal(t, StatusAuthorized, p.Status)
	assert.Equal(t, "order-1", p.Order.ReferenceID)

	captured, err := c.CapturePayment(context.Background(), "pay_1", p.Amount)
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, captured.Status)
}

func TestAPIErrorSurfaced(t *testing.T) {
	c := newTestClient(t)

	gock.New(testBaseURL).Get(paymentsPath + "missing").
		Reply(http.StatusNotFound).
		JSON(map[string]any{"status": "error", "error": "payment not found"})

	_, err := c.GetPayment(context.Background(), "missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "payment not found", apiErr.Message)
}

func TestWebhookHelpers(t *testing.T) {
	assert.True(t, VerifyWebhookSecret("s3cret", "s3cret"))
	assert.False(t, VerifyWebhookSecret("s3cret", "s3cre"))
	assert.False(t, VerifyWebhookSecret("", ""))

	p, err := ParseWebhook([]byte(`{"id":"pay_1","status":"authorized","amount":"10.00","order":{"reference_id":"o1"}}`))
	require.NoError(t, err)
	assert.Equal(t, StatusAuthorized, p.Status)
	assert.Equal(t, "o1", p.Order.ReferenceID)

	_, err = ParseWebhook([]byte(`{"status":"closed"}`))
	assert.ErrorIs(t, err, ErrMalformedWebhook)
	_, err = ParseWebhook([]byte(`nope`))
	assert.ErrorIs(t, err, ErrMalformedWebhook)
}
