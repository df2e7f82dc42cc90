package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v82"

	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/utils/paymob"
	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
)

func TestDecidePaymobOutcome(t *testing.T) {
	cases := []struct {
		name string
		txn  paymob.Transaction
		want PaymentOutcome
	}{
		{"success", paymob.Transaction{Success: true}, OutcomePaid},
		{"declined", paymob.Transaction{Success: false}, OutcomeFailed},
		{"success with error flag", paymob.Transaction{Success: true, ErrorOccured: true}, OutcomeFailed},
		{"pending wins over success", paymob.Transaction{Success: true, Pending: true}, OutcomePending},
		{"voided", paymob.Transaction{Success: true, IsVoided: true}, OutcomeCancelled},
		{"refund wins over everything", paymob.Transaction{Success: true, IsVoided: true, IsRefunded: true}, OutcomeRefunded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			txn := tc.txn
			assert.Equal(t, tc.want, DecidePaymobOutcome(&txn))
		})
	}
}

func TestDecideTabbyOutcome(t *testing.T) {
	cases := []struct {
		status  string
		want    PaymentOutcome
		capture bool
	}{
		{"CLOSED", OutcomePaid, false},
		{"authorized", OutcomePaid, true},
		{" Rejected ", OutcomeFailed, false},
		{"EXPIRED", OutcomeCancelled, false},
		{"CREATED", OutcomePending, false},
		{"", OutcomePending, false},
	}
	for _, tc := range cases {
		got, capture := DecideTabbyOutcome(tc.status)
		assert.Equalf(t, tc.want, got, "status %q", tc.status)
		assert.Equalf(t, tc.capture, capture, "capture for %q", tc.status)
	}
}

func TestDecideStripeOutcome(t *testing.T) {
	assert.Equal(t, OutcomePaid, DecideStripeOutcome(stripe.EventTypePaymentIntentSucceeded, false))
	assert.Equal(t, OutcomeFailed, DecideStripeOutcome(stripe.EventTypePaymentIntentPaymentFailed, false))
	assert.Equal(t, OutcomeCancelled, DecideStripeOutcome(stripe.EventTypePaymentIntentCanceled, false))
	assert.Equal(t, OutcomeRefunded, DecideStripeOutcome(stripe.EventTypeChargeRefunded, true))
	assert.Equal(t, OutcomePending, DecideStripeOutcome(stripe.EventTypeChargeRefunded, false), "partial refund")
	assert.Equal(t, OutcomePending, DecideStripeOutcome(stripe.EventTypeCustomerCreated, false))
}

func TestPaymentOutcomeTargetStatus(t *testing.T) {
	for outcome, want := range map[PaymentOutcome]models.OrderStatus{
		OutcomePaid:      models.OrderPaid,
		OutcomeFailed:    models.OrderFailed,
		OutcomeCancelled: models.OrderCancelled,
		OutcomeRefunded:  models.OrderRefunded,
	} {
		got, ok := outcome.TargetStatus()
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := OutcomePending.TargetStatus()
	assert.False(t, ok)
}
