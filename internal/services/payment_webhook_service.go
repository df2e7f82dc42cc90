package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/config"
	internal_utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/utils"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/utils/paymob"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/utils/tabby"
	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
	repositories "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-repositories"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

type WebhookResult string

const (
	WebhookProcessed    WebhookResult = "processed"
	WebhookDuplicate    WebhookResult = "duplicate"
	WebhookIgnored      WebhookResult = "ignored"
	WebhookUnknownOrder WebhookResult = "unknown_order"
	WebhookPending      WebhookResult = "pending"
	// WebhookCapturePending means Tabby authorized the payment but the
	// capture call failed; the order must not be expired.
	WebhookCapturePending WebhookResult = "capture_pending"
)

// ---------------------------------------------------------------------
// Decision tables
// ---------------------------------------------------------------------

// DecidePaymobOutcome reads a transaction callback, first match wins.
func DecidePaymobOutcome(t *paymob.Transaction) PaymentOutcome {
	switch {
	case t.IsRefunded:
		return OutcomeRefunded
	case t.IsVoided:
		return OutcomeCancelled
	case t.Pending:
		return OutcomePending
	case t.Success && !t.ErrorOccured:
		return OutcomePaid
	default:
		return OutcomeFailed
	}
}

// DecideTabbyOutcome maps a payment status. AUTHORIZED needs a capture
// before it counts as paid.
func DecideTabbyOutcome(status string) (outcome PaymentOutcome, needsCapture bool) {
	switch tabby.NormalizeStatus(status) {
	case tabby.StatusClosed:
		return OutcomePaid, false
	case tabby.StatusAuthorized:
		return OutcomePaid, true
	case tabby.StatusRejected:
		return OutcomeFailed, false
	case tabby.StatusExpired:
		return OutcomeCancelled, false
	default:
		return OutcomePending, false
	}
}

// DecideStripeOutcome handles the event types the store subscribes to.
func DecideStripeOutcome(eventType stripe.EventType, fullyRefunded bool) PaymentOutcome {
	switch eventType {
	case stripe.EventTypePaymentIntentSucceeded:
		return OutcomePaid
	case stripe.EventTypePaymentIntentPaymentFailed:
		return OutcomeFailed
	case stripe.EventTypePaymentIntentCanceled:
		return OutcomeCancelled
	case stripe.EventTypeChargeRefunded:
		if fullyRefunded {
			return OutcomeRefunded
		}
	}
	return OutcomePending
}

// ---------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------

// PaymentWebhookService turns verified gateway notifications into order
// transitions. Each notification is recorded once in payment_events in the
// same transaction as the transition it causes.
type PaymentWebhookService struct {
	cfg       *config.Config
	tx        repositories.TxManager
	orders    repositories.OrderRepository
	events    repositories.PaymentEventRepository
	lifecycle *OrderLifecycleService
	tabby     TabbyGateway
	metrics   *Metrics
}

func NewPaymentWebhookService(
	cfg *config.Config,
	tx repositories.TxManager,
	orders repositories.OrderRepository,
	events repositories.PaymentEventRepository,
	lifecycle *OrderLifecycleService,
	tabbyGateway TabbyGateway,
	metrics *Metrics,
) *PaymentWebhookService {
	return &PaymentWebhookService{
		cfg:       cfg,
		tx:        tx,
		orders:    orders,
		events:    events,
		lifecycle: lifecycle,
		tabby:     tabbyGateway,
		metrics:   metrics,
	}
}

func invalidSignature(provider models.PaymentProvider) error {
	return utils.NewAppError(http.StatusUnauthorized, utils.ErrCodeInvalidSignature,
		"Invalid "+string(provider)+" signature", nil)
}

func malformedPayload(err error) error {
	return utils.NewAppError(http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Malformed webhook payload", err)
}

// HandlePaymob processes a "transaction processed" callback body signed via
// the ?hmac= query parameter.
func (s *PaymentWebhookService) HandlePaymob(ctx context.Context, body []byte, providedHMAC string) (WebhookResult, error) {
	obj, err := paymob.ObjFromBody(body)
	if err != nil {
		s.metrics.webhook(string(models.ProviderPaymob), "malformed")
		return "", malformedPayload(err)
	}
	if !paymob.VerifyObj(s.cfg.PaymobHMACSecret, obj, providedHMAC) {
		s.metrics.webhook(string(models.ProviderPaymob), "invalid_signature")
		return "", invalidSignature(models.ProviderPaymob)
	}
	txn, err := paymob.ParseTransaction(obj)
	if err != nil {
		s.metrics.webhook(string(models.ProviderPaymob), "malformed")
		return "", malformedPayload(err)
	}
	_, result, err := s.reconcilePaymob(ctx, txn, body)
	return result, err
}

// HandlePaymobRedirect verifies the buyer's return redirect and applies it
// like a callback. It returns the order so the caller can route the buyer.
func (s *PaymentWebhookService) HandlePaymobRedirect(ctx context.Context, q url.Values) (*models.Order, PaymentOutcome, error) {
	if !paymob.VerifyQuery(s.cfg.PaymobHMACSecret, q) {
		s.metrics.webhook(string(models.ProviderPaymob), "invalid_signature")
		return nil, "", invalidSignature(models.ProviderPaymob)
	}
	txn, err := paymob.TransactionFromQuery(q)
	if err != nil {
		return nil, "", malformedPayload(err)
	}
	payload, _ := json.Marshal(q)
	order, _, err := s.reconcilePaymob(ctx, txn, payload)
	if err != nil {
		return nil, "", err
	}
	return order, DecidePaymobOutcome(txn), nil
}

func (s *PaymentWebhookService) reconcilePaymob(ctx context.Context, txn *paymob.Transaction, payload []byte) (*models.Order, WebhookResult, error) {
	provider := models.ProviderPaymob
	outcome := DecidePaymobOutcome(txn)
	logger := utils.Logger.WithFields(logrus.Fields{"provider": provider, "txnID": txn.ID, "outcome": outcome})

	order, err := s.findOrder(ctx, provider, txn.MerchantOrderID, txn.PaymobOrderID, txn.ID)
	if err != nil {
		s.metrics.webhook(string(provider), "error")
		return nil, "", utils.InternalError("Failed to look up order", err)
	}
	if order == nil {
		logger.WithField("merchantOrderID", txn.MerchantOrderID).Warn("Paymob callback for unknown order acknowledged")
		s.metrics.webhook(string(provider), string(WebhookUnknownOrder))
		return nil, WebhookUnknownOrder, nil
	}
	if outcome == OutcomePending {
		s.metrics.webhook(string(provider), string(WebhookPending))
		return order, WebhookPending, nil
	}

	req := TransitionRequest{
		OrderID:               order.ID,
		Outcome:               outcome,
		ProviderTransactionID: utils.Ptr(txn.ID),
		Source:                "paymob",
	}
	switch outcome {
	case OutcomePaid:
		if txn.AmountCents != order.ChargeAmountCents || !strings.EqualFold(txn.Currency, order.ChargeCurrency) {
			req.FlagReason = "paid amount differs from charge"
		}
	case OutcomeFailed:
		reason := txn.Message
		if reason == "" {
			reason = txn.ResponseCode
		}
		if reason == "" {
			reason = "payment declined"
		}
		req.FailureReason = &reason
	}

	result, err := s.process(ctx, provider, txn.ID+":"+string(outcome), payload, req)
	return order, result, err
}

// HandleTabby processes a payment webhook. The body is only a hint; the
// payment is re-read from Tabby before acting.
func (s *PaymentWebhookService) HandleTabby(ctx context.Context, providedSecret string, body []byte) (WebhookResult, error) {
	provider := models.ProviderTabby
	if !tabby.VerifyWebhookSecret(s.cfg.TabbyWebhookSecret, providedSecret) {
		s.metrics.webhook(string(provider), "invalid_signature")
		return "", invalidSignature(provider)
	}
	hook, err := tabby.ParseWebhook(body)
	if err != nil {
		s.metrics.webhook(string(provider), "malformed")
		return "", malformedPayload(err)
	}

	order, err := s.findOrder(ctx, provider, hook.Order.ReferenceID, "", hook.ID)
	if err != nil {
		s.metrics.webhook(string(provider), "error")
		return "", utils.InternalError("Failed to look up order", err)
	}
	if order == nil {
		utils.Logger.WithField("paymentID", hook.ID).Warn("Tabby webhook for unknown order acknowledged")
		s.metrics.webhook(string(provider), string(WebhookUnknownOrder))
		return WebhookUnknownOrder, nil
	}
	return s.reconcileTabby(ctx, order, hook.ID)
}

// ReconcileTabbyOrder polls Tabby for an order's payment.
func (s *PaymentWebhookService) ReconcileTabbyOrder(ctx context.Context, order *models.Order) (WebhookResult, error) {
	if order.PaymentProvider != models.ProviderTabby || order.ProviderPaymentID == nil {
		return WebhookIgnored, nil
	}
	return s.reconcileTabby(ctx, order, *order.ProviderPaymentID)
}

func (s *PaymentWebhookService) reconcileTabby(ctx context.Context, order *models.Order, paymentID string) (WebhookResult, error) {
	provider := models.ProviderTabby
	logger := utils.Logger.WithFields(logrus.Fields{"provider": provider, "paymentID": paymentID, "orderID": order.ID})

	payment, err := s.tabby.GetPayment(ctx, paymentID)
	if err != nil {
		s.metrics.webhook(string(provider), "error")
		return "", internal_utils.ExternalFailure("Failed to read Tabby payment", err)
	}
	status := tabby.NormalizeStatus(payment.Status)
	outcome, needsCapture := DecideTabbyOutcome(status)

	if needsCapture && order.Status == models.OrderPending {
		captured, err := s.tabby.CapturePayment(ctx, paymentID, payment.Amount)
		if err != nil {
			logger.WithError(err).Warn("Tabby capture failed; order stays pending")
			s.metrics.webhook(string(provider), string(WebhookCapturePending))
			return WebhookCapturePending, nil
		}
		payment = captured
		status = tabby.NormalizeStatus(captured.Status)
		if status == "" || status == tabby.StatusAuthorized {
			status = tabby.StatusClosed
		}
	}
	if outcome == OutcomePending {
		s.metrics.webhook(string(provider), string(WebhookPending))
		return WebhookPending, nil
	}

	req := TransitionRequest{
		OrderID:               order.ID,
		Outcome:               outcome,
		ProviderTransactionID: utils.Ptr(paymentID),
		Source:                "tabby",
	}
	switch outcome {
	case OutcomePaid:
		paid, perr := utils.ParseMinorUnits(payment.Amount)
		if perr != nil || paid != order.ChargeAmountCents || !strings.EqualFold(payment.Currency, order.ChargeCurrency) {
			req.FlagReason = "paid amount differs from charge"
		}
	case OutcomeFailed:
		req.FailureReason = utils.Ptr("tabby payment rejected")
	case OutcomeCancelled:
		req.FailureReason = utils.Ptr("tabby payment expired")
	}

	payload, _ := json.Marshal(payment)
	return s.process(ctx, provider, paymentID+":"+status, payload, req)
}

// HandleStripe verifies the Stripe-Signature header and applies
// payment_intent and charge.refunded events.
func (s *PaymentWebhookService) HandleStripe(ctx context.Context, payload []byte, sigHeader string) (WebhookResult, error) {
	provider := models.ProviderStripe
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, s.cfg.StripeWebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		s.metrics.webhook(string(provider), "invalid_signature")
		return "", utils.NewAppError(http.StatusBadRequest, utils.ErrCodeInvalidSignature, "Invalid Stripe signature", err)
	}
	logger := utils.Logger.WithFields(logrus.Fields{"provider": provider, "eventID": event.ID, "type": event.Type})

	var (
		merchantRef, paymentID string
		fullyRefunded          bool
		failureReason          *string
		amount                 int64
		currency               string
	)
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded,
		stripe.EventTypePaymentIntentPaymentFailed,
		stripe.EventTypePaymentIntentCanceled:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			logger.WithError(err).Error("Could not parse stripe.PaymentIntent")
			return "", malformedPayload(err)
		}
		merchantRef, paymentID = pi.Metadata[stripeOrderMetadataKey], pi.ID
		amount, currency = pi.AmountReceived, string(pi.Currency)
		if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
			failureReason = utils.Ptr(pi.LastPaymentError.Msg)
		} else if pi.CancellationReason != "" {
			failureReason = utils.Ptr(string(pi.CancellationReason))
		}
	case stripe.EventTypeChargeRefunded:
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			logger.WithError(err).Error("Could not parse stripe.Charge")
			return "", malformedPayload(err)
		}
		merchantRef = ch.Metadata[stripeOrderMetadataKey]
		if ch.PaymentIntent != nil {
			paymentID = ch.PaymentIntent.ID
		}
		fullyRefunded = ch.Refunded || (ch.Amount > 0 && ch.AmountRefunded >= ch.Amount)
	default:
		logger.Info("Unhandled Stripe event type acknowledged")
		s.metrics.webhook(string(provider), string(WebhookIgnored))
		return WebhookIgnored, nil
	}

	outcome := DecideStripeOutcome(event.Type, fullyRefunded)
	if outcome == OutcomePending {
		logger.Info("Partial refund acknowledged without transition")
		s.metrics.webhook(string(provider), string(WebhookPending))
		return WebhookPending, nil
	}

	order, err := s.findOrder(ctx, provider, merchantRef, "", paymentID)
	if err != nil {
		s.metrics.webhook(string(provider), "error")
		return "", utils.InternalError("Failed to look up order", err)
	}
	if order == nil {
		logger.Warn("Stripe event for unknown order acknowledged")
		s.metrics.webhook(string(provider), string(WebhookUnknownOrder))
		return WebhookUnknownOrder, nil
	}

	req := TransitionRequest{
		OrderID:               order.ID,
		Outcome:               outcome,
		ProviderTransactionID: utils.Ptr(paymentID),
		FailureReason:         failureReason,
		Source:                "stripe",
	}
	if outcome == OutcomePaid && (amount != order.ChargeAmountCents || !strings.EqualFold(currency, order.ChargeCurrency)) {
		req.FlagReason = "paid amount differs from charge"
	}
	return s.process(ctx, provider, event.ID, payload, req)
}

// process records the event and applies its transition atomically.
func (s *PaymentWebhookService) process(
	ctx context.Context,
	provider models.PaymentProvider,
	eventKey string,
	payload []byte,
	req TransitionRequest,
) (WebhookResult, error) {
	var (
		res       *TransitionResult
		duplicate bool
	)
	if !json.Valid(payload) {
		payload = nil
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		fresh, err := s.events.Record(ctx, &models.PaymentEvent{
			ID:         uuid.New(),
			Provider:   provider,
			EventKey:   eventKey,
			OrderID:    uuidPtr(req.OrderID),
			Outcome:    string(req.Outcome),
			Payload:    payload,
			ReceivedAt: time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		if !fresh {
			duplicate = true
			return nil
		}
		res, err = s.lifecycle.applyInTx(ctx, req)
		return err
	})
	if err != nil {
		s.metrics.webhook(string(provider), "error")
		return "", utils.InternalError("Failed to reconcile payment", err)
	}
	if duplicate {
		utils.Logger.WithFields(logrus.Fields{"provider": provider, "eventKey": eventKey}).Info("Duplicate payment event acknowledged")
		s.metrics.webhook(string(provider), string(WebhookDuplicate))
		return WebhookDuplicate, nil
	}

	s.lifecycle.afterCommit(ctx, res)
	if !res.Applied {
		s.metrics.webhook(string(provider), string(WebhookIgnored))
		return WebhookIgnored, nil
	}
	s.metrics.webhook(string(provider), string(WebhookProcessed))
	return WebhookProcessed, nil
}

// findOrder tries our own reference, then the provider's order id, then
// the provider's payment id.
func (s *PaymentWebhookService) findOrder(
	ctx context.Context,
	provider models.PaymentProvider,
	merchantRef, providerOrderID, providerPaymentID string,
) (*models.Order, error) {
	if id, err := uuid.Parse(strings.TrimSpace(merchantRef)); err == nil {
		o, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if o != nil && o.PaymentProvider == provider {
			return o, nil
		}
	}
	if providerOrderID != "" {
		o, err := s.orders.GetByProviderOrderID(ctx, provider, providerOrderID)
		if err != nil || o != nil {
			return o, err
		}
	}
	if providerPaymentID != "" {
		o, err := s.orders.GetByProviderPaymentID(ctx, provider, providerPaymentID)
		if err != nil || o != nil {
			return o, err
		}
	}
	return nil, nil
}
