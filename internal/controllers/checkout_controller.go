package controllers

import (
	"net/http"

	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/dtos"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/services"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

type CheckoutController struct {
	checkout *services.CheckoutService
}

func NewCheckoutController(checkout *services.CheckoutService) *CheckoutController {
	return &CheckoutController{checkout: checkout}
}

// POST /api/v1/checkout/quote
func (c *CheckoutController) Quote(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	var req dtos.QuoteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	quote, err := c.checkout.Quote(r.Context(), userID, req)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, quote)
}

// POST /api/v1/checkout
func (c *CheckoutController) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	var req dtos.CheckoutRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	resp, err := c.checkout.Checkout(r.Context(), userID, req)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.Logger.WithField("orderID", resp.OrderID).WithField("provider", resp.Provider).Info("Checkout started")
	utils.RespondWithJSON(w, http.StatusCreated, resp)
}

// POST /api/v1/coupons/validate
func (c *CheckoutController) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	var req dtos.ValidateCouponRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	resp, err := c.checkout.ValidateCoupon(r.Context(), userID, req.Code)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}
