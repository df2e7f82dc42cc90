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
)

func TestCartAddMergesProductQuantities(t *testing.T) {
	e := newTestEnv(t)
	u := e.seedUser(0)
	p := e.seedProduct(15000, 5)

	_, err := e.cart.AddItem(e.ctx, u.ID, dtos.AddCartItemRequest{ItemType: models.ItemProduct, ItemID: p.ID, Quantity: 2})
	require.NoError(t, err)
	resp, err := e.cart.AddItem(e.ctx, u.ID, dtos.AddCartItemRequest{ItemType: models.ItemProduct, ItemID: p.ID, Quantity: 2})
	require.NoError(t, err)

	require.Len(t, resp.Items, 1)
	assert.Equal(t, 4, resp.Items[0].Quantity)
	assert.Equal(t, int64(60000), resp.SubtotalCents)
	assert.Equal(t, "EGP", resp.Currency)

	_, err = e.cart.AddItem(e.ctx, u.ID, dtos.AddCartItemRequest{ItemType: models.ItemProduct, ItemID: p.ID, Quantity: 2})
	requireAppError(t, err, http.StatusConflict, internal_utils.ErrInsufficientStock.Error())
}

func TestCartSingleUnitItems(t *testing.T) {
	e := newTestEnv(t)
	u := e.seedUser(0)
	prog := e.seedProgramme(50000)
	plan := e.seedPlan(30000, 30)

	_, err := e.cart.AddItem(e.ctx, u.ID, dtos.AddCartItemRequest{ItemType: models.ItemProgramme, ItemID: prog.ID, Quantity: 3})
	require.NoError(t, err)
	resp, err := e.cart.AddItem(e.ctx, u.ID, dtos.AddCartItemRequest{ItemType: models.ItemSubscription, ItemID: plan.ID, Quantity: 5})
	require.NoError(t, err)

	require.Len(t, resp.Items, 2)
	for _, l := range resp.Items {
		assert.Equal(t, 1, l.Quantity, "%s lines hold one unit", l.ItemType)
	}
	assert.Equal(t, int64(80000), resp.SubtotalCents)

	line := resp.Items[0]
	resp, err = e.cart.UpdateItem(e.ctx, u.ID, line.ID, 7)
	require.NoError(t, err)
	for _, l := range resp.Items {
		assert.Equal(t, 1, l.Quantity)
	}
}

func TestCartRejectsOwnedProgramme(t *testing.T) {
	e := newTestEnv(t)
	u := e.seedUser(0)
	prog := e.seedProgramme(50000)
	require.NoError(t, e.programmes.GrantToUser(e.ctx, &models.UserProgramme{
		UserID: u.ID, ProgrammeID: prog.ID, OrderID: uuid.New(), GrantedAt: time.Now(),
	}))

	_, err := e.cart.AddItem(e.ctx, u.ID, dtos.AddCartItemRequest{ItemType: models.ItemProgramme, ItemID: prog.ID})
	requireAppError(t, err, http.StatusConflict, internal_utils.ErrProgrammeOwned.Error())
}

func TestCartRejectsInactiveAndUnknownItems(t *testing.T) {
	e := newTestEnv(t)
	u := e.seedUser(0)
	p := e.seedProduct(1000, 10)
	require.NoError(t, e.products.UpdateWithRetry(e.ctx, p.ID, func(cur *models.Product) error {
		cur.IsActive = false
		return nil
	}))

	_, err := e.cart.AddItem(e.ctx, u.ID, dtos.AddCartItemRequest{ItemType: models.ItemProduct, ItemID: p.ID})
	requireAppError(t, err, http.StatusNotFound, internal_utils.ErrItemUnavailable.Error())

	_, err = e.cart.AddItem(e.ctx, u.ID, dtos.AddCartItemRequest{ItemType: models.ItemSubscription, ItemID: uuid.New()})
	requireAppError(t, err, http.StatusNotFound, internal_utils.ErrItemUnavailable.Error())

	_, err = e.cart.AddItem(e.ctx, u.ID, dtos.AddCartItemRequest{ItemType: "MEMBERSHIP", ItemID: uuid.New()})
	requireAppError(t, err, http.StatusBadRequest, internal_utils.ErrInvalidItemType.Error())
}

func TestCartSeparatesUnavailableLines(t *testing.T) {
	e := newTestEnv(t)
	u := e.seedUser(0)
	keep := e.seedProduct(2000, 10)
	gone := e.seedProduct(3000, 10)
	e.addToCart(u.ID, models.ItemProduct, keep.ID, 1)
	e.addToCart(u.ID, models.ItemProduct, gone.ID, 1)
	require.NoError(t, e.products.UpdateWithRetry(e.ctx, gone.ID, func(cur *models.Product) error {
		cur.IsActive = false
		return nil
	}))

	resp, err := e.cart.GetCart(e.ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	require.Len(t, resp.Unavailable, 1)
	assert.Equal(t, gone.ID, resp.Unavailable[0].ItemID)
	assert.Equal(t, int64(2000), resp.SubtotalCents)
}

func TestCartUpdateRemoveAndClear(t *testing.T) {
	e := newTestEnv(t)
	u := e.seedUser(0)
	p := e.seedProduct(1000, 3)
	resp, err := e.cart.AddItem(e.ctx, u.ID, dtos.AddCartItemRequest{ItemType: models.ItemProduct, ItemID: p.ID})
	require.NoError(t, err)
	lineID := resp.Items[0].ID

	_, err = e.cart.UpdateItem(e.ctx, u.ID, lineID, 4)
	requireAppError(t, err, http.StatusConflict, internal_utils.ErrInsufficientStock.Error())

	resp, err = e.cart.UpdateItem(e.ctx, u.ID, lineID, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), resp.SubtotalCents)

	_, err = e.cart.UpdateItem(e.ctx, e.seedUser(0).ID, lineID, 1)
	requireAppError(t, err, http.StatusNotFound, internal_utils.ErrCartLineNotFound.Error())

	resp, err = e.cart.UpdateItem(e.ctx, u.ID, lineID, 0)
	require.NoError(t, err)
	assert.Empty(t, resp.Items)

	_, err = e.cart.RemoveItem(e.ctx, u.ID, lineID)
	requireAppError(t, err, http.StatusNotFound, internal_utils.ErrCartLineNotFound.Error())

	e.addToCart(u.ID, models.ItemProduct, p.ID, 1)
	require.NoError(t, e.cart.Clear(e.ctx, u.ID))
	assert.Zero(t, e.cartSize(u.ID))
}

func TestCatalogHidesInactiveItems(t *testing.T) {
	e := newTestEnv(t)
	active := e.seedProduct(1000, 1)
	hidden := e.seedProduct(1000, 1)
	require.NoError(t, e.products.UpdateWithRetry(e.ctx, hidden.ID, func(cur *models.Product) error {
		cur.IsActive = false
		return nil
	}))

	page, err := e.catalog.ListProducts(e.ctx, "", "", 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, active.ID, page.Data[0].ID)
	assert.Equal(t, 20, page.Limit)

	_, err = e.catalog.GetProduct(e.ctx, hidden.ID)
	requireAppError(t, err, http.StatusNotFound, "")

	plans, err := e.catalog.ListPlans(e.ctx)
	require.NoError(t, err)
	assert.NotNil(t, plans)
	assert.Empty(t, plans)
}
