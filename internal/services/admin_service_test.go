package services

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/dtos"
	internal_utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/utils"
	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

func TestAdminProductEditsUseRowVersion(t *testing.T) {
	e := newTestEnv(t)
	adminID := uuid.New()

	p, err := e.admin.CreateProduct(e.ctx, adminID, dtos.AdminCreateProductRequest{
		Name: "Kettlebell 16kg", Category: "equipment", PriceCents: 120000, Stock: 10,
	})
	require.NoError(t, err)
	assert.True(t, p.IsActive)
	assert.Equal(t, int64(1), p.RowVersion)

	updated, err := e.admin.UpdateProduct(e.ctx, adminID, p.ID, dtos.AdminUpdateProductRequest{
		RowVersion: 1, PriceCents: utils.Ptr(int64(110000)),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(110000), updated.PriceCents)
	assert.Equal(t, int64(2), updated.RowVersion)

	_, err = e.admin.UpdateProduct(e.ctx, adminID, p.ID, dtos.AdminUpdateProductRequest{
		RowVersion: 1, Name: utils.Ptr("Kettlebell 20kg"),
	})
	requireAppError(t, err, http.StatusConflict, utils.ErrCodeRowVersionConflict)

	_, err = e.admin.UpdateProduct(e.ctx, adminID, uuid.New(), dtos.AdminUpdateProductRequest{RowVersion: 1})
	requireAppError(t, err, http.StatusNotFound, "")

	require.NoError(t, e.admin.DeleteProduct(e.ctx, adminID, p.ID))
	page, err := e.admin.ListProducts(e.ctx, "", "", 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Data, 1, "admin listing includes inactive products")
	assert.False(t, page.Data[0].IsActive)

	require.Len(t, e.s.audit, 3)
	assert.Equal(t, models.AuditCreate, e.s.audit[0].Action)
	assert.Equal(t, models.AuditDelete, e.s.audit[2].Action)
	assert.Equal(t, adminID, e.s.audit[2].AdminID)
}

func TestAdminAdjustStock(t *testing.T) {
	e := newTestEnv(t)
	p := e.seedProduct(1000, 3)

	got, err := e.admin.AdjustStock(e.ctx, uuid.New(), p.ID, dtos.AdminAdjustStockRequest{Delta: 7, Reason: utils.Ptr("delivery")})
	require.NoError(t, err)
	assert.Equal(t, 10, got.Stock)

	_, err = e.admin.AdjustStock(e.ctx, uuid.New(), p.ID, dtos.AdminAdjustStockRequest{Delta: -11})
	requireAppError(t, err, http.StatusConflict, internal_utils.ErrStockWouldGoNegative.Error())
	assert.Equal(t, 10, e.stock(p.ID))

	_, err = e.admin.AdjustStock(e.ctx, uuid.New(), uuid.New(), dtos.AdminAdjustStockRequest{Delta: 1})
	requireAppError(t, err, http.StatusNotFound, "")
}

func TestAdminCouponRules(t *testing.T) {
	e := newTestEnv(t)
	adminID := uuid.New()

	c, err := e.admin.CreateCoupon(e.ctx, adminID, dtos.AdminCreateCouponRequest{
		Code: "spring25", DiscountType: models.DiscountPercent, DiscountValue: 25,
	})
	require.NoError(t, err)
	assert.Equal(t, "SPRING25", c.Code)
	assert.Equal(t, 1, c.PerUserLimit)

	_, err = e.admin.CreateCoupon(e.ctx, adminID, dtos.AdminCreateCouponRequest{
		Code: "SPRING25", DiscountType: models.DiscountFixed, DiscountValue: 500,
	})
	requireAppError(t, err, http.StatusConflict, internal_utils.ErrCouponCodeExists.Error())

	_, err = e.admin.CreateCoupon(e.ctx, adminID, dtos.AdminCreateCouponRequest{
		Code: "HALFPLUS", DiscountType: models.DiscountPercent, DiscountValue: 150,
	})
	requireAppError(t, err, http.StatusBadRequest, utils.ErrCodeValidation)

	start := time.Now()
	_, err = e.admin.CreateCoupon(e.ctx, adminID, dtos.AdminCreateCouponRequest{
		Code: "BACKWARDS", DiscountType: models.DiscountFixed, DiscountValue: 100,
		StartsAt: &start, ExpiresAt: utils.Ptr(start.Add(-time.Hour)),
	})
	requireAppError(t, err, http.StatusBadRequest, utils.ErrCodeValidation)

	_, err = e.admin.UpdateCoupon(e.ctx, adminID, c.ID, dtos.AdminUpdateCouponRequest{
		RowVersion: c.RowVersion, DiscountValue: utils.Ptr(int64(101)),
	})
	requireAppError(t, err, http.StatusBadRequest, utils.ErrCodeValidation)

	updated, err := e.admin.UpdateCoupon(e.ctx, adminID, c.ID, dtos.AdminUpdateCouponRequest{
		RowVersion: c.RowVersion, UsageLimit: utils.Ptr(50),
	})
	require.NoError(t, err)
	assert.Equal(t, 50, utils.Val(updated.UsageLimit))

	require.NoError(t, e.admin.DeactivateCoupon(e.ctx, adminID, c.ID))
	_, _, err = e.coupons.Validate(e.ctx, "SPRING25", uuid.New(), 10000)
	require.ErrorIs(t, err, internal_utils.ErrCouponInactive)
}

func TestAdminRefundOrder(t *testing.T) {
	e := newTestEnv(t)
	u := e.seedUser(0)
	o := e.seedPendingOrder(u, models.ProviderPaymob, programmeItem(e.seedProgramme(40000)))

	_, err := e.admin.RefundOrder(e.ctx, uuid.New(), o.ID, dtos.AdminRefundOrderRequest{})
	requireAppError(t, err, http.StatusConflict, internal_utils.ErrInvalidTransition.Error())

	e.apply(o.ID, OutcomePaid)
	refunded, err := e.admin.RefundOrder(e.ctx, uuid.New(), o.ID, dtos.AdminRefundOrderRequest{Reason: utils.Ptr("duplicate purchase")})
	require.NoError(t, err)
	assert.Equal(t, models.OrderRefunded, refunded.Status)
	assert.Equal(t, "duplicate purchase", utils.Val(e.order(o.ID).FailureReason))
	assert.Equal(t, int64(0), e.user(u.ID).LoyaltyPoints)
	require.NotEmpty(t, e.s.audit)
	assert.Equal(t, models.TargetOrder, e.s.audit[len(e.s.audit)-1].TargetType)

	_, err = e.admin.RefundOrder(e.ctx, uuid.New(), uuid.New(), dtos.AdminRefundOrderRequest{})
	requireAppError(t, err, http.StatusNotFound, "")
}

func TestAdminAdjustPoints(t *testing.T) {
	e := newTestEnv(t)
	u := e.seedUser(100)

	resp, err := e.admin.AdjustPoints(e.ctx, uuid.New(), u.ID, dtos.AdminAdjustPointsRequest{Delta: 250, Note: "event bonus"})
	require.NoError(t, err)
	assert.Equal(t, int64(350), resp.Balance)

	_, err = e.admin.AdjustPoints(e.ctx, uuid.New(), u.ID, dtos.AdminAdjustPointsRequest{Delta: -1000, Note: "typo"})
	requireAppError(t, err, http.StatusConflict, internal_utils.ErrPointsExceedBalance.Error())
	assert.Equal(t, int64(350), e.user(u.ID).LoyaltyPoints)
}

func TestAdminDashboard(t *testing.T) {
	e := newTestEnv(t)
	u := e.seedUser(0)
	e.seedProduct(1000, 2)
	e.seedProduct(1000, 50)

	paid := e.seedPendingOrder(u, models.ProviderPaymob, programmeItem(e.seedProgramme(40000)))
	e.apply(paid.ID, OutcomePaid)
	e.seedPendingOrder(u, models.ProviderPaymob, programmeItem(e.seedProgramme(9000)))

	d, err := e.admin.Dashboard(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.OrdersByStatus[models.OrderPaid])
	assert.Equal(t, int64(1), d.OrdersByStatus[models.OrderPending])
	assert.Contains(t, d.OrdersByStatus, models.OrderRefunded)
	assert.Equal(t, int64(40000), d.RevenueCents)
	assert.Equal(t, int64(1), d.PaidOrders)
	assert.Equal(t, "EGP", d.Currency)
	require.Len(t, d.LowStock, 1)
	assert.Equal(t, 2, d.LowStock[0].Stock)

	_, err = e.admin.ListOrders(e.ctx, models.OrderPaid, 0, 0)
	require.NoError(t, err)
	_, err = e.admin.GetOrder(e.ctx, paid.ID)
	require.NoError(t, err)
	assert.Empty(t, e.s.audit, "reads are not audited")
}
