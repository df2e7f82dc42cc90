package services

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

func (e *testEnv) tabbyOrder(u *models.User, paymentID string) *models.Order {
	e.t.Helper()
	o := e.seedPendingOrder(u, models.ProviderTabby, programmeItem(e.seedProgramme(30000)))
	require.NoError(e.t, e.orderRepo.UpdateWithRetry(e.ctx, o.ID, func(cur *models.Order) error {
		cur.ProviderPaymentID = utils.Ptr(paymentID)
		return nil
	}))
	return e.order(o.ID)
}

func TestExpireStalePendingOrders(t *testing.T) {
	e := newTestEnv(t)
	m := NewMetrics(prometheus.NewRegistry(), "gymmawy")
	e.jobs.metrics = m
	u := e.seedUser(500)

	stale := e.seedPendingOrder(u, models.ProviderPaymob, programmeItem(e.seedProgramme(40000)))
	require.NoError(t, e.orderRepo.UpdateWithRetry(e.ctx, stale.ID, func(cur *models.Order) error {
		cur.PointsRedeemed = 200
		cur.ExpiresAt = time.Now().Add(-time.Minute)
		return nil
	}))
	require.NoError(t, e.rewards.Debit(e.ctx, u.ID, stale.ID, 200))
	fresh := e.seedPendingOrder(u, models.ProviderPaymob, programmeItem(e.seedProgramme(1000)))

	require.NoError(t, e.jobs.ExpireStalePendingOrders(e.ctx))

	got := e.order(stale.ID)
	assert.Equal(t, models.OrderCancelled, got.Status)
	assert.Equal(t, "payment window expired", utils.Val(got.FailureReason))
	assert.Equal(t, int64(500), e.user(u.ID).LoyaltyPoints)
	assert.Equal(t, models.OrderPending, e.order(fresh.ID).Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobRuns.WithLabelValues(JobExpirePendingOrders, "ok")))

	// A second run finds nothing left to do.
	require.NoError(t, e.jobs.ExpireStalePendingOrders(e.ctx))
	e.notifier.AssertNumberOfCalls(t, "OrderFailed", 1)
}

func TestExpiryPollsTabbyFirst(t *testing.T) {
	e := newTestEnv(t)
	u := e.seedUser(0)

	closed := e.tabbyOrder(u, "pay_closed")
	uncaptured := e.tabbyOrder(u, "pay_auth")
	created := e.tabbyOrder(u, "pay_created")
	unreachable := e.tabbyOrder(u, "pay_down")

	e.tabby.On("GetPayment", "pay_closed").Return(tabbyPayment(closed, "pay_closed", "CLOSED"), nil)
	e.tabby.On("GetPayment", "pay_auth").Return(tabbyPayment(uncaptured, "pay_auth", "AUTHORIZED"), nil)
	e.tabby.On("CapturePayment", "pay_auth", mock.Anything).Return(nil, errors.New("tabby 500"))
	e.tabby.On("GetPayment", "pay_created").Return(tabbyPayment(created, "pay_created", "CREATED"), nil)
	e.tabby.On("GetPayment", "pay_down").Return(nil, errors.New("dial tcp: timeout"))

	e.jobs.now = func() time.Time { return time.Now().Add(time.Hour) }
	require.NoError(t, e.jobs.ExpireStalePendingOrders(e.ctx))

	assert.Equal(t, models.OrderPaid, e.order(closed.ID).Status)
	assert.Equal(t, models.OrderPending, e.order(uncaptured.ID).Status)
	assert.Equal(t, models.OrderCancelled, e.order(created.ID).Status)
	assert.Equal(t, models.OrderPending, e.order(unreachable.ID).Status)
}

func TestExpireSubscriptions(t *testing.T) {
	e := newTestEnv(t)
	u := e.seedUser(0)
	o := e.seedPendingOrder(u, models.ProviderStripe, planItem(e.seedPlan(20000, 30)))
	e.apply(o.ID, OutcomePaid)

	require.NoError(t, e.jobs.ExpireSubscriptions(e.ctx))
	subs, err := e.subs.ListByUser(e.ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, models.SubscriptionActive, subs[0].Status)

	e.jobs.now = func() time.Time { return time.Now().AddDate(0, 0, 31) }
	require.NoError(t, e.jobs.ExpireSubscriptions(e.ctx))
	subs, err = e.subs.ListByUser(e.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionExpired, subs[0].Status)
}

func TestRefreshExchangeRates(t *testing.T) {
	e := newTestEnv(t)
	fetcher := &mockRateFetcher{}
	fetcher.On("FetchRates", "EGP").Return(map[string]float64{"AED": 0.076}, nil).Once()
	fetcher.On("FetchRates", "USD").Return(nil, errors.New("quota exceeded")).Once()

	rates := &fakeRateRepo{s: e.s}
	e.jobs.fx = NewCurrencyService(e.cfg, fetcher, rates, nil)
	e.jobs.cfg.FXRefreshPairs = []string{"EGP:AED", "usd:egp", "junk"}

	err := e.jobs.RefreshExchangeRates(e.ctx)
	require.Error(t, err)

	stored, err := rates.Get(e.ctx, "EGP", "AED")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 0.076, stored.Rate)

	// The refreshed rate is served from cache without another fetch.
	rate, err := e.jobs.fx.Rate(e.ctx, "EGP", "AED")
	require.NoError(t, err)
	assert.Equal(t, 0.076, rate)
	fetcher.AssertExpectations(t)
}

func TestCleanupRefreshTokensRetriesTransientError(t *testing.T) {
	e := newTestEnv(t)
	u := e.seedUser(0)
	require.NoError(t, e.tokens.CreateRefreshToken(e.ctx, &models.RefreshToken{
		ID: uuid.New(), UserID: u.ID, Token: "expired", ExpiresAt: time.Now().Add(-time.Hour),
	}))
	require.NoError(t, e.tokens.CreateRefreshToken(e.ctx, &models.RefreshToken{
		ID: uuid.New(), UserID: u.ID, Token: "live", ExpiresAt: time.Now().Add(time.Hour),
	}))

	e.tokens.cleanupErr = []error{io.EOF}
	require.NoError(t, e.jobs.CleanupRefreshTokens(e.ctx))
	assert.Len(t, e.s.tokens, 1)

	e.tokens.cleanupErr = []error{errors.New("permission denied")}
	require.Error(t, e.jobs.CleanupRefreshTokens(e.ctx))
}
