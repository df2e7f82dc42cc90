package testhelpers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/utils/paymob"
	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

// PaymobTransaction builds the "obj" of a processed-transaction callback
// for o. success=false produces a declined card payment.
func PaymobTransaction(o *models.Order, txnID int64, success bool) map[string]any {
	message, code := "Approved", "APPROVED"
	if !success {
		message, code = "Do not honour", "05"
	}
	return map[string]any{
		"id":                     txnID,
		"amount_cents":           o.ChargeAmountCents,
		"created_at":             time.Now().UTC().Format("2006-01-02T15:04:05.000000"),
		"currency":               o.ChargeCurrency,
		"error_occured":          false,
		"has_parent_transaction": false,
		"integration_id":         1,
		"is_3d_secure":           true,
		"is_auth":                false,
		"is_capture":             false,
		"is_refunded":            false,
		"is_standalone_payment":  true,
		"is_voided":              false,
		"order":                  map[string]any{"id": txnID + 1, "merchant_order_id": o.ID.String()},
		"owner":                  1,
		"pending":                false,
		"source_data":            map[string]any{"pan": "2346", "sub_type": "MasterCard", "type": "card"},
		"success":                success,
		"data":                   map[string]any{"message": message, "txn_response_code": code},
	}
}

// PostPaymobCallback signs obj with the Paymob HMAC secret, posts it and
// returns the response.
func (h *TestHelper) PostPaymobCallback(webhookURL string, obj map[string]any) *http.Response {
	require.NotEmpty(h.T, h.PaymobHMACSecret, "PAYMOB_HMAC_SECRET is not configured")
	raw, err := json.Marshal(obj)
	require.NoError(h.T, err)
	body, err := json.Marshal(map[string]any{"type": "TRANSACTION", "obj": json.RawMessage(raw)})
	require.NoError(h.T, err)

	signature := paymob.Sign(h.PaymobHMACSecret, paymob.ConcatObjFields(raw))
	req, err := http.NewRequest(http.MethodPost, webhookURL+"?"+url.Values{"hmac": {signature}}.Encode(), bytes.NewReader(body))
	require.NoError(h.T, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(h.T, err, "failed to POST Paymob callback")
	h.T.Cleanup(func() { resp.Body.Close() })
	return resp
}

// PostStripeWebhook signs an event of eventType wrapping object and posts it.
func (h *TestHelper) PostStripeWebhook(webhookURL, eventType string, object map[string]any) *http.Response {
	require.NotEmpty(h.T, h.StripeWebhookSecret, "STRIPE_WEBHOOK_SECRET is not configured")
	payload, err := json.Marshal(map[string]any{
		"id":          "evt_it_" + utils.RandomString(12),
		"object":      "event",
		"api_version": stripe.APIVersion,
		"created":     time.Now().Unix(),
		"type":        eventType,
		"data":        map[string]any{"object": object},
	})
	require.NoError(h.T, err)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: payload,
		Secret:  h.StripeWebhookSecret,
	})
	req, err := http.NewRequest(http.MethodPost, webhookURL, bytes.NewReader(signed.Payload))
	require.NoError(h.T, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signed.Header)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(h.T, err, "failed to POST Stripe webhook")
	h.T.Cleanup(func() { resp.Body.Close() })
	return resp
}

// PostTabbyWebhook posts a Tabby payment notification with the shared
// header secret. The service re-reads the payment from Tabby itself.
func (h *TestHelper) PostTabbyWebhook(webhookURL, secret string, o *models.Order, paymentID, status string) *http.Response {
	body, err := json.Marshal(map[string]any{
		"id":     paymentID,
		"status": status,
		"order":  map[string]string{"reference_id": o.ID.String()},
	})
	require.NoError(h.T, err)
	req, err := http.NewRequest(http.MethodPost, webhookURL, bytes.NewReader(body))
	require.NoError(h.T, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(h.TabbyWebhookHeader, secret)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(h.T, err, "failed to POST Tabby webhook")
	h.T.Cleanup(func() { resp.Body.Close() })
	return resp
}
