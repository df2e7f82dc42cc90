package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"

	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/config"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/utils/paymob"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/utils/tabby"
	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

// PaymentSession is what a provider hands back when a payment starts.
type PaymentSession struct {
	ProviderOrderID   *string
	ProviderPaymentID *string
	CheckoutURL       *string
	ClientSecret      *string
}

// PaymentProvider starts a hosted payment for a PENDING order. The order's
// charge amount is already in Currency().
type PaymentProvider interface {
	Name() models.PaymentProvider
	Currency() string
	StartPayment(ctx context.Context, order *models.Order, buyer *models.User) (*PaymentSession, error)
}

// PaymobGateway is satisfied by *paymob.Client.
type PaymobGateway interface {
	CreateSession(ctx context.Context, req paymob.SessionRequest) (*paymob.Session, error)
}

// TabbyGateway is satisfied by *tabby.Client.
type TabbyGateway interface {
	CreateCheckout(ctx context.Context, req tabby.CheckoutRequest) (*tabby.CheckoutResponse, error)
	GetPayment(ctx context.Context, paymentID string) (*tabby.Payment, error)
	CapturePayment(ctx context.Context, paymentID, amount string) (*tabby.Payment, error)
}

// ---------------------------------------------------------------------
// Paymob
// ---------------------------------------------------------------------

type paymobProvider struct {
	cfg     *config.Config
	gateway PaymobGateway
}

func NewPaymobProvider(cfg *config.Config, gateway PaymobGateway) PaymentProvider {
	return &paymobProvider{cfg: cfg, gateway: gateway}
}

func (p *paymobProvider) Name() models.PaymentProvider { return models.ProviderPaymob }
func (p *paymobProvider) Currency() string             { return p.cfg.BaseCurrency }

func (p *paymobProvider) StartPayment(ctx context.Context, order *models.Order, buyer *models.User) (*PaymentSession, error) {
	session, err := p.gateway.CreateSession(ctx, paymob.SessionRequest{
		MerchantOrderID: order.ID.String(),
		AmountCents:     order.ChargeAmountCents,
		Currency:        order.ChargeCurrency,
		// One summary line: discounts make per-item amounts disagree with the total.
		Items: []paymob.Item{{
			Name:        orderLabel(order),
			AmountCents: order.ChargeAmountCents,
			Quantity:    1,
		}},
		Billing:           paymobBilling(buyer, order.Shipping),
		ExpirationSeconds: int(p.cfg.OrderPaymentTTL.Seconds()),
	})
	if err != nil {
		return nil, err
	}
	return &PaymentSession{
		ProviderOrderID: utils.Ptr(session.PaymobOrderID),
		CheckoutURL:     utils.Ptr(session.CheckoutURL),
	}, nil
}

func paymobBilling(u *models.User, ship *models.ShippingDetails) paymob.BillingData {
	orNA := func(s string) string {
		if strings.TrimSpace(s) == "" {
			return "NA"
		}
		return s
	}
	b := paymob.BillingData{
		FirstName:   orNA(u.FirstName),
		LastName:    orNA(u.LastName),
		Email:       u.Email,
		PhoneNumber: orNA(utils.Val(u.PhoneNumber)),
		Apartment:   "NA",
		Floor:       "NA",
		Street:      "NA",
		Building:    "NA",
		City:        "NA",
		Country:     "NA",
		State:       "NA",
		PostalCode:  "NA",
	}
	if ship != nil {
		b.Street = orNA(ship.Address)
		b.City = orNA(ship.City)
		b.Country = orNA(ship.Country)
		if b.PhoneNumber == "NA" {
			b.PhoneNumber = orNA(ship.Phone)
		}
	}
	return b
}

// ---------------------------------------------------------------------
// Tabby
// ---------------------------------------------------------------------

type tabbyProvider struct {
	cfg     *config.Config
	gateway TabbyGateway
}

func NewTabbyProvider(cfg *config.Config, gateway TabbyGateway) PaymentProvider {
	return &tabbyProvider{cfg: cfg, gateway: gateway}
}

func (p *tabbyProvider) Name() models.PaymentProvider { return models.ProviderTabby }
func (p *tabbyProvider) Currency() string             { return p.cfg.TabbyCurrency }

func (p *tabbyProvider) StartPayment(ctx context.Context, order *models.Order, buyer *models.User) (*PaymentSession, error) {
	items := make([]tabby.OrderItem, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, tabby.OrderItem{
			Title:       it.Name,
			Quantity:    it.Quantity,
			UnitPrice:   utils.FormatMinorUnits(utils.ConvertMinorUnits(it.UnitPriceCents, order.FXRate)),
			ReferenceID: it.ItemID.String(),
			Category:    strings.ToLower(string(it.ItemType)),
		})
	}

	phone := utils.Val(buyer.PhoneNumber)
	var shipping *tabby.ShippingAddress
	if order.Shipping != nil {
		shipping = &tabby.ShippingAddress{City: order.Shipping.City, Address: order.Shipping.Address}
		if phone == "" {
			phone = order.Shipping.Phone
		}
	}

	returnURL := p.cfg.FrontendURL + "/orders/" + order.ID.String()
	resp, err := p.gateway.CreateCheckout(ctx, tabby.CheckoutRequest{
		Payment: tabby.PaymentRequest{
			Amount:          utils.FormatMinorUnits(order.ChargeAmountCents),
			Currency:        order.ChargeCurrency,
			Description:     orderLabel(order),
			Buyer:           tabby.Buyer{Name: buyer.FullName(), Email: buyer.Email, Phone: phone},
			ShippingAddress: shipping,
			Order:           tabby.Order{ReferenceID: order.ID.String(), Items: items},
		},
		Lang: "en",
		MerchantURLs: tabby.MerchantURLs{
			Success: returnURL + "?payment=success",
			Cancel:  returnURL + "?payment=cancel",
			Failure: returnURL + "?payment=failure",
		},
	})
	if errors.Is(err, tabby.ErrNoWebURL) {
		return nil, fmt.Errorf("tabby declined the buyer (status %s): %w", resp.Status, err)
	}
	if err != nil {
		return nil, err
	}
	return &PaymentSession{
		ProviderOrderID:   utils.Ptr(resp.ID),
		ProviderPaymentID: utils.Ptr(resp.Payment.ID),
		CheckoutURL:       utils.Ptr(resp.WebURL()),
	}, nil
}

// ---------------------------------------------------------------------
// Stripe
// ---------------------------------------------------------------------

// StripeIntentCreator matches paymentintent.New.
type StripeIntentCreator func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)

type stripeProvider struct {
	cfg    *config.Config
	create StripeIntentCreator
}

func NewStripeProvider(cfg *config.Config, create StripeIntentCreator) PaymentProvider {
	if create == nil {
		stripe.Key = cfg.StripeSecretKey
		create = paymentintent.New
	}
	return &stripeProvider{cfg: cfg, create: create}
}

func (p *stripeProvider) Name() models.PaymentProvider { return models.ProviderStripe }
func (p *stripeProvider) Currency() string             { return p.cfg.StripeCurrency }

func (p *stripeProvider) StartPayment(ctx context.Context, order *models.Order, buyer *models.User) (*PaymentSession, error) {
	params := &stripe.PaymentIntentParams{
		Amount:       stripe.Int64(order.ChargeAmountCents),
		Currency:     stripe.String(strings.ToLower(order.ChargeCurrency)),
		Description:  stripe.String(orderLabel(order)),
		ReceiptEmail: stripe.String(buyer.Email),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata(stripeOrderMetadataKey, order.ID.String())
	params.SetIdempotencyKey("order-" + order.ID.String())

	pi, err := p.create(params)
	if err != nil {
		return nil, err
	}
	return &PaymentSession{
		ProviderPaymentID: utils.Ptr(pi.ID),
		ClientSecret:      utils.Ptr(pi.ClientSecret),
	}, nil
}

const stripeOrderMetadataKey = "order_id"

func orderLabel(o *models.Order) string {
	return "Gymmawy order " + o.ID.String()[:8]
}
