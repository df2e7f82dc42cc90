package controllers

import (
	"net/http"
	"strings"

	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/services"
	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

// OrderController serves the signed-in customer's orders and entitlements.
type OrderController struct {
	orders  *services.OrderService
	rewards *services.RewardsService
}

func NewOrderController(orders *services.OrderService, rewards *services.RewardsService) *OrderController {
	return &OrderController{orders: orders, rewards: rewards}
}

// statusParam reads the optional ?status= filter.
func statusParam(r *http.Request) (models.OrderStatus, error) {
	status := models.OrderStatus(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status"))))
	switch status {
	case "", models.OrderPending, models.OrderPaid, models.OrderFailed, models.OrderCancelled, models.OrderRefunded:
		return status, nil
	}
	return "", utils.NewAppError(http.StatusBadRequest, utils.ErrCodeValidation, "Unknown order status "+string(status), nil)
}

// GET /api/v1/orders?status=&limit=&offset=
func (c *OrderController) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	status, err := statusParam(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	limit, offset := pageParams(r)
	page, err := c.orders.ListMyOrders(r.Context(), userID, status, limit, offset)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, page)
}

// GET /api/v1/orders/{id}
func (c *OrderController) GetMyOrder(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	orderID, err := pathUUID(r, "id")
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	o, err := c.orders.GetMyOrder(r.Context(), userID, orderID)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, o)
}

// POST /api/v1/orders/{id}/cancel
func (c *OrderController) CancelMyOrder(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	orderID, err := pathUUID(r, "id")
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	o, err := c.orders.CancelMyOrder(r.Context(), userID, orderID)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, o)
}

// GET /api/v1/me/subscriptions
func (c *OrderController) ListMySubscriptions(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	subs, err := c.orders.ListMySubscriptions(r.Context(), userID)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, subs)
}

// GET /api/v1/me/programmes
func (c *OrderController) ListMyProgrammes(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	list, err := c.orders.ListMyProgrammes(r.Context(), userID)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

// GET /api/v1/me/rewards
func (c *OrderController) GetMyRewards(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	rewards, err := c.rewards.GetRewards(r.Context(), userID)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, rewards)
}
