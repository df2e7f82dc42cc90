package controllers

import (
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/config"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/dtos"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/services"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

const maxWebhookBody = 1 << 16

// PaymentWebhookController receives gateway notifications. Handled
// notifications, duplicates and unknown orders all answer 200 so the
// gateway stops retrying; only bad signatures, bad payloads and internal
// failures answer otherwise.
type PaymentWebhookController struct {
	cfg      *config.Config
	webhooks *services.PaymentWebhookService
}

func NewPaymentWebhookController(cfg *config.Config, webhooks *services.PaymentWebhookService) *PaymentWebhookController {
	return &PaymentWebhookController{cfg: cfg, webhooks: webhooks}
}

func readWebhookBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Failed to read request body", nil, err)
		return nil, false
	}
	return body, true
}

func ack(w http.ResponseWriter, result services.WebhookResult, err error) {
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.WebhookAckResponse{Result: string(result)})
}

// POST /api/v1/payments/paymob/webhook?hmac=
func (c *PaymentWebhookController) PaymobWebhook(w http.ResponseWriter, r *http.Request) {
	body, ok := readWebhookBody(w, r)
	if !ok {
		return
	}
	result, err := c.webhooks.HandlePaymob(r.Context(), body, r.URL.Query().Get("hmac"))
	ack(w, result, err)
}

// GET /api/v1/payments/paymob/redirect
//
// The buyer's browser lands here after the Paymob iframe. The signed query
// is applied like a callback and the buyer is sent to the storefront.
func (c *PaymentWebhookController) PaymobRedirect(w http.ResponseWriter, r *http.Request) {
	order, outcome, err := c.webhooks.HandlePaymobRedirect(r.Context(), r.URL.Query())
	if err != nil {
		utils.Logger.WithError(err).Warn("Paymob redirect could not be applied")
		http.Redirect(w, r, c.storefrontURL("/orders", "error"), http.StatusSeeOther)
		return
	}
	if order == nil {
		http.Redirect(w, r, c.storefrontURL("/orders", "pending"), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, c.storefrontURL("/orders/"+order.ID.String(), redirectState(outcome)), http.StatusSeeOther)
}

func redirectState(outcome services.PaymentOutcome) string {
	switch outcome {
	case services.OutcomePaid:
		return "success"
	case services.OutcomeFailed, services.OutcomeCancelled:
		return "failed"
	default:
		return "pending"
	}
}

func (c *PaymentWebhookController) storefrontURL(path, state string) string {
	return strings.TrimRight(c.cfg.FrontendURL, "/") + path + "?" + url.Values{"payment": {state}}.Encode()
}

// POST /api/v1/payments/tabby/webhook
func (c *PaymentWebhookController) TabbyWebhook(w http.ResponseWriter, r *http.Request) {
	body, ok := readWebhookBody(w, r)
	if !ok {
		return
	}
	result, err := c.webhooks.HandleTabby(r.Context(), r.Header.Get(c.cfg.TabbyWebhookHeader), body)
	ack(w, result, err)
}

// POST /api/v1/payments/stripe/webhook
func (c *PaymentWebhookController) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	body, ok := readWebhookBody(w, r)
	if !ok {
		return
	}
	result, err := c.webhooks.HandleStripe(r.Context(), body, r.Header.Get("Stripe-Signature"))
	ack(w, result, err)
}
