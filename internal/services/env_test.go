package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"

	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/config"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/utils/paymob"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/utils/tabby"
	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

func testConfig() *config.Config {
	return &config.Config{
		OrganizationName:      "Gymmawy",
		AppName:               "store-service",
		Env:                   "test",
		FrontendURL:           "https://shop.gymmawy.test",
		BaseCurrency:          "EGP",
		TabbyCurrency:         "AED",
		StripeCurrency:        "USD",
		PaymobHMACSecret:      "paymob-hmac-secret",
		TabbyWebhookSecret:    "tabby-shared-secret",
		StripeWebhookSecret:   "whsec_test_secret",
		FXCacheTTL:            time.Hour,
		FXFallbackRates:       map[string]float64{"EGP:AED": 0.075, "USD:EGP": 50},
		PointsPerCurrencyUnit: 1,
		PointValueCents:       10,
		MinRedeemPoints:       100,
		MaxRedeemPercent:      50,
		OrderPaymentTTL:       30 * time.Minute,
		LowStockThreshold:     5,

		LDFlag_SendgridFromEmail: "orders@gymmawy.test",
	}
}

// ---------------------------------------------------------------------
// mocks
// ---------------------------------------------------------------------

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) OrderPaid(ctx context.Context, o *models.Order, u *models.User) {
	m.Called(o.ID, u.ID)
}

func (m *mockNotifier) OrderFailed(ctx context.Context, o *models.Order, u *models.User) {
	m.Called(o.ID, u.ID)
}

func (m *mockNotifier) OrderRefunded(ctx context.Context, o *models.Order, u *models.User) {
	m.Called(o.ID, u.ID)
}

type mockPaymob struct{ mock.Mock }

func (m *mockPaymob) CreateSession(ctx context.Context, req paymob.SessionRequest) (*paymob.Session, error) {
	args := m.Called(req)
	s, _ := args.Get(0).(*paymob.Session)
	return s, args.Error(1)
}

type mockTabby struct{ mock.Mock }

func (m *mockTabby) CreateCheckout(ctx context.Context, req tabby.CheckoutRequest) (*tabby.CheckoutResponse, error) {
	args := m.Called(req)
	r, _ := args.Get(0).(*tabby.CheckoutResponse)
	return r, args.Error(1)
}

func (m *mockTabby) GetPayment(ctx context.Context, paymentID string) (*tabby.Payment, error) {
	args := m.Called(paymentID)
	p, _ := args.Get(0).(*tabby.Payment)
	return p, args.Error(1)
}

func (m *mockTabby) CapturePayment(ctx context.Context, paymentID, amount string) (*tabby.Payment, error) {
	args := m.Called(paymentID, amount)
	p, _ := args.Get(0).(*tabby.Payment)
	return p, args.Error(1)
}

type mockRateFetcher struct{ mock.Mock }

func (m *mockRateFetcher) FetchRates(ctx context.Context, base string) (map[string]float64, error) {
	args := m.Called(base)
	r, _ := args.Get(0).(map[string]float64)
	return r, args.Error(1)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) Send(msg *mail.SGMailV3) error {
	return m.Called(msg).Error(0)
}

type mockSMS struct{ mock.Mock }

func (m *mockSMS) SendSMS(to, body string) error {
	return m.Called(to, body).Error(0)
}

// ---------------------------------------------------------------------
// environment
// ---------------------------------------------------------------------

type testEnv struct {
	t   *testing.T
	ctx context.Context
	cfg *config.Config
	s   *memStore
	tx  *fakeTx

	users      *fakeUserRepo
	products   *fakeProductRepo
	programmes *fakeProgrammeRepo
	plans      *fakePlanRepo
	couponRepo *fakeCouponRepo
	orderRepo  *fakeOrderRepo
	cartRepo   *fakeCartRepo
	subs       *fakeSubRepo
	tokens     *fakeTokenRepo

	notifier *mockNotifier
	paymob   *mockPaymob
	tabby    *mockTabby

	stripeParams []*stripe.PaymentIntentParams
	stripeErr    error

	rewards   *RewardsService
	coupons   *CouponService
	fx        *CurrencyService
	lifecycle *OrderLifecycleService
	catalog   *CatalogService
	cart      *CartService
	checkout  *CheckoutService
	webhooks  *PaymentWebhookService
	orders    *OrderService
	admin     *AdminService
	jobs      *JobsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s := newMemStore()
	e := &testEnv{
		t:          t,
		ctx:        context.Background(),
		cfg:        testConfig(),
		s:          s,
		tx:         &fakeTx{},
		users:      &fakeUserRepo{s: s},
		products:   &fakeProductRepo{s: s},
		programmes: &fakeProgrammeRepo{s: s},
		plans:      &fakePlanRepo{s: s},
		couponRepo: &fakeCouponRepo{s: s},
		orderRepo:  &fakeOrderRepo{s: s},
		cartRepo:   &fakeCartRepo{s: s},
		subs:       &fakeSubRepo{s: s},
		tokens:     &fakeTokenRepo{s: s},
		notifier:   &mockNotifier{},
		paymob:     &mockPaymob{},
		tabby:      &mockTabby{},
	}
	for _, m := range []string{"OrderPaid", "OrderFailed", "OrderRefunded"} {
		e.notifier.On(m, mock.Anything, mock.Anything).Maybe()
	}

	events := &fakeEventRepo{s: s}
	ledger := &fakeLedgerRepo{s: s}
	audit := &fakeAuditRepo{s: s}

	e.rewards = NewRewardsService(e.cfg, e.users, ledger)
	e.coupons = NewCouponService(e.couponRepo)
	e.fx = NewCurrencyService(e.cfg, nil, &fakeRateRepo{s: s}, nil)
	e.lifecycle = NewOrderLifecycleService(e.tx, e.orderRepo, e.products, e.couponRepo, e.programmes,
		e.plans, e.subs, e.cartRepo, e.users, e.rewards, e.notifier, nil)
	e.catalog = NewCatalogService(e.products, e.programmes, e.plans)
	e.cart = NewCartService(e.cfg, e.cartRepo, e.products, e.programmes, e.plans)

	stripeCreate := func(p *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
		e.stripeParams = append(e.stripeParams, p)
		if e.stripeErr != nil {
			return nil, e.stripeErr
		}
		return &stripe.PaymentIntent{ID: "pi_" + p.Metadata[stripeOrderMetadataKey][:8], ClientSecret: "pi_secret"}, nil
	}
	e.checkout = NewCheckoutService(e.cfg, e.tx, e.cartRepo, e.users, e.orderRepo, e.products, e.programmes,
		e.plans, e.coupons, e.rewards, e.fx, e.lifecycle, nil,
		NewPaymobProvider(e.cfg, e.paymob),
		NewTabbyProvider(e.cfg, e.tabby),
		NewStripeProvider(e.cfg, stripeCreate),
	)
	e.webhooks = NewPaymentWebhookService(e.cfg, e.tx, e.orderRepo, events, e.lifecycle, e.tabby, nil)
	e.orders = NewOrderService(e.orderRepo, e.subs, e.plans, e.programmes, e.lifecycle)
	e.admin = NewAdminService(e.cfg, e.tx, e.products, e.programmes, e.plans, e.couponRepo, e.orderRepo,
		audit, e.rewards, e.lifecycle)
	e.jobs = NewJobsService(e.cfg, e.orderRepo, e.subs, e.tokens, e.lifecycle, e.webhooks, e.fx, nil)
	e.jobs.retryDelay = time.Millisecond
	return e
}

// ---------------------------------------------------------------------
// seeding
// ---------------------------------------------------------------------

func (e *testEnv) seedUser(points int64) *models.User {
	e.t.Helper()
	id := uuid.New()
	u := &models.User{
		ID:            id,
		Email:         id.String()[:8] + "@gymmawy.test",
		FirstName:     "Omar",
		LastName:      "Hassan",
		Role:          models.RoleCustomer,
		LoyaltyPoints: points,
	}
	require.NoError(e.t, e.users.Create(e.ctx, u))
	return u
}

func (e *testEnv) seedProduct(priceCents int64, stock int) *models.Product {
	e.t.Helper()
	p := &models.Product{
		ID:         uuid.New(),
		Name:       "Resistance band " + uuid.NewString()[:4],
		Category:   "equipment",
		PriceCents: priceCents,
		Stock:      stock,
		IsActive:   true,
	}
	require.NoError(e.t, e.products.Create(e.ctx, p))
	return p
}

func (e *testEnv) seedProgramme(priceCents int64) *models.Programme {
	e.t.Helper()
	p := &models.Programme{
		ID:            uuid.New(),
		Title:         "Strength foundations",
		Level:         models.LevelBeginner,
		DurationWeeks: 8,
		PriceCents:    priceCents,
		IsActive:      true,
	}
	require.NoError(e.t, e.programmes.Create(e.ctx, p))
	return p
}

func (e *testEnv) seedPlan(priceCents int64, days int) *models.SubscriptionPlan {
	e.t.Helper()
	p := &models.SubscriptionPlan{
		ID:           uuid.New(),
		Name:         "Monthly coaching",
		DurationDays: days,
		PriceCents:   priceCents,
		Features:     []string{"weekly check-in"},
		IsActive:     true,
	}
	require.NoError(e.t, e.plans.Create(e.ctx, p))
	return p
}

func (e *testEnv) seedCoupon(code string, kind models.DiscountType, value int64, opts ...func(*models.Coupon)) *models.Coupon {
	e.t.Helper()
	c := &models.Coupon{
		ID:            uuid.New(),
		Code:          code,
		DiscountType:  kind,
		DiscountValue: value,
		PerUserLimit:  1,
		IsActive:      true,
	}
	for _, o := range opts {
		o(c)
	}
	require.NoError(e.t, e.couponRepo.Create(e.ctx, c))
	return c
}

func (e *testEnv) addToCart(userID uuid.UUID, kind models.ItemType, itemID uuid.UUID, qty int) {
	e.t.Helper()
	require.NoError(e.t, e.cartRepo.Upsert(e.ctx, &models.CartItem{
		ID:       uuid.New(),
		UserID:   userID,
		ItemType: kind,
		ItemID:   itemID,
		Quantity: qty,
	}))
}

// seedPendingOrder stores a PENDING order as checkout would have left it.
func (e *testEnv) seedPendingOrder(u *models.User, provider models.PaymentProvider, items ...models.OrderItem) *models.Order {
	e.t.Helper()
	now := time.Now().UTC()
	o := &models.Order{
		ID:              uuid.New(),
		UserID:          u.ID,
		Status:          models.OrderPending,
		Currency:        e.cfg.BaseCurrency,
		PaymentProvider: provider,
		ChargeCurrency:  e.cfg.BaseCurrency,
		FXRate:          1,
		ExpiresAt:       now.Add(e.cfg.OrderPaymentTTL),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, it := range items {
		it.ID = uuid.New()
		it.OrderID = o.ID
		o.Items = append(o.Items, it)
		o.SubtotalCents += it.LineTotalCents()
	}
	o.TotalCents = o.SubtotalCents
	o.ChargeAmountCents = o.TotalCents
	require.NoError(e.t, e.orderRepo.Create(e.ctx, o))
	return o
}

func productItem(p *models.Product, qty int) models.OrderItem {
	return models.OrderItem{ItemType: models.ItemProduct, ItemID: p.ID, Name: p.Name, UnitPriceCents: p.PriceCents, Quantity: qty}
}

func programmeItem(p *models.Programme) models.OrderItem {
	return models.OrderItem{ItemType: models.ItemProgramme, ItemID: p.ID, Name: p.Title, UnitPriceCents: p.PriceCents, Quantity: 1}
}

func planItem(p *models.SubscriptionPlan) models.OrderItem {
	return models.OrderItem{ItemType: models.ItemSubscription, ItemID: p.ID, Name: p.Name, UnitPriceCents: p.PriceCents, Quantity: 1}
}

// ---------------------------------------------------------------------
// reads
// ---------------------------------------------------------------------

func (e *testEnv) order(id uuid.UUID) *models.Order {
	e.t.Helper()
	o, err := e.orderRepo.GetByID(e.ctx, id)
	require.NoError(e.t, err)
	require.NotNil(e.t, o)
	return o
}

func (e *testEnv) user(id uuid.UUID) *models.User {
	e.t.Helper()
	u, err := e.users.GetByID(e.ctx, id)
	require.NoError(e.t, err)
	require.NotNil(e.t, u)
	return u
}

func (e *testEnv) stock(id uuid.UUID) int {
	e.t.Helper()
	p, err := e.products.GetByID(e.ctx, id)
	require.NoError(e.t, err)
	require.NotNil(e.t, p)
	return p.Stock
}

func (e *testEnv) ledgerTypes(orderID uuid.UUID) []models.LoyaltyTxnType {
	e.t.Helper()
	rows, err := (&fakeLedgerRepo{s: e.s}).ListByOrder(e.ctx, orderID)
	require.NoError(e.t, err)
	var out []models.LoyaltyTxnType
	for _, r := range rows {
		out = append(out, r.Type)
	}
	return out
}

func (e *testEnv) cartSize(userID uuid.UUID) int {
	e.t.Helper()
	items, err := e.cartRepo.ListByUser(e.ctx, userID)
	require.NoError(e.t, err)
	return len(items)
}

// requireAppError asserts err is an AppError with the given status and code.
func requireAppError(t *testing.T, err error, status int, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *utils.AppError
	require.True(t, errors.As(err, &appErr), "expected *AppError, got %T: %v", err, err)
	require.Equal(t, status, appErr.StatusCode, "status for %v", err)
	if code != "" {
		require.Equal(t, code, appErr.Code)
	}
}
