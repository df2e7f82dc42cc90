package controllers

import (
	"net/http"

	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/dtos"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/services"
	shared_dtos "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-dtos"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

type CartController struct {
	cart *services.CartService
}

func NewCartController(cart *services.CartService) *CartController {
	return &CartController{cart: cart}
}

// GET /api/v1/cart
func (c *CartController) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	cart, err := c.cart.GetCart(r.Context(), userID)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, cart)
}

// POST /api/v1/cart/items
func (c *CartController) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	var req dtos.AddCartItemRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	cart, err := c.cart.AddItem(r.Context(), userID, req)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, cart)
}

// PATCH /api/v1/cart/items/{id}; quantity 0 removes the line.
func (c *CartController) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	lineID, err := pathUUID(r, "id")
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	var req dtos.UpdateCartItemRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	cart, err := c.cart.UpdateItem(r.Context(), userID, lineID, *req.Quantity)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, cart)
}

// DELETE /api/v1/cart/items/{id}
func (c *CartController) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	lineID, err := pathUUID(r, "id")
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	cart, err := c.cart.RemoveItem(r.Context(), userID, lineID)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, cart)
}

// DELETE /api/v1/cart
func (c *CartController) Clear(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	if err := c.cart.Clear(r.Context(), userID); err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, shared_dtos.ConfirmationResponse{Message: "Cart cleared"})
}
