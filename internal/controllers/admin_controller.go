package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/dtos"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/services"
	shared_dtos "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-dtos"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

// AdminController exposes back-office management. Every route sits behind
// AdminAuthMiddleware; mutations are audited by the service.
type AdminController struct {
	admin *services.AdminService
}

func NewAdminController(admin *services.AdminService) *AdminController {
	return &AdminController{admin: admin}
}

// adminTarget resolves the calling admin and the {id} path variable,
// writing the error response when either is missing.
func adminTarget(w http.ResponseWriter, r *http.Request) (adminID, id uuid.UUID, ok bool) {
	adminID, err := callerID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return uuid.Nil, uuid.Nil, false
	}
	id, err = pathUUID(r, "id")
	if err != nil {
		utils.HandleAppError(w, err)
		return uuid.Nil, uuid.Nil, false
	}
	return adminID, id, true
}

func respond(w http.ResponseWriter, status int, payload any, err error) {
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, status, payload)
}

// ---------------------------------------------------------------------
// Products
// ---------------------------------------------------------------------

// GET /api/v1/admin/products
func (c *AdminController) ListProducts(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	q := r.URL.Query()
	page, err := c.admin.ListProducts(r.Context(), q.Get("category"), q.Get("search"), limit, offset)
	respond(w, http.StatusOK, page, err)
}

// POST /api/v1/admin/products
func (c *AdminController) CreateProduct(w http.ResponseWriter, r *http.Request) {
	adminID, err := callerID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	var req dtos.AdminCreateProductRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	p, err := c.admin.CreateProduct(r.Context(), adminID, req)
	respond(w, http.StatusCreated, p, err)
}

// PATCH /api/v1/admin/products/{id}
func (c *AdminController) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	adminID, id, ok := adminTarget(w, r)
	if !ok {
		return
	}
	var req dtos.AdminUpdateProductRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	p, err := c.admin.UpdateProduct(r.Context(), adminID, id, req)
	respond(w, http.StatusOK, p, err)
}

// DELETE /api/v1/admin/products/{id}
func (c *AdminController) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	adminID, id, ok := adminTarget(w, r)
	if !ok {
		return
	}
	err := c.admin.DeleteProduct(r.Context(), adminID, id)
	respond(w, http.StatusOK, shared_dtos.ConfirmationResponse{Message: "Product deactivated", ID: id.String()}, err)
}

// POST /api/v1/admin/products/{id}/stock
func (c *AdminController) AdjustStock(w http.ResponseWriter, r *http.Request) {
	adminID, id, ok := adminTarget(w, r)
	if !ok {
		return
	}
	var req dtos.AdminAdjustStockRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	p, err := c.admin.AdjustStock(r.Context(), adminID, id, req)
	respond(w, http.StatusOK, p, err)
}

// ---------------------------------------------------------------------
// Programmes
// ---------------------------------------------------------------------

// GET /api/v1/admin/programmes
func (c *AdminController) ListProgrammes(w http.ResponseWriter, r *http.Request) {
	list, err := c.admin.ListProgrammes(r.Context(), r.URL.Query().Get("level"))
	respond(w, http.StatusOK, list, err)
}

// POST /api/v1/admin/programmes
func (c *AdminController) CreateProgramme(w http.ResponseWriter, r *http.Request) {
	adminID, err := callerID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	var req dtos.AdminCreateProgrammeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	p, err := c.admin.CreateProgramme(r.Context(), adminID, req)
	respond(w, http.StatusCreated, p, err)
}

// PATCH /api/v1/admin/programmes/{id}
func (c *AdminController) UpdateProgramme(w http.ResponseWriter, r *http.Request) {
	adminID, id, ok := adminTarget(w, r)
	if !ok {
		return
	}
	var req dtos.AdminUpdateProgrammeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	p, err := c.admin.UpdateProgramme(r.Context(), adminID, id, req)
	respond(w, http.StatusOK, p, err)
}

// DELETE /api/v1/admin/programmes/{id}
func (c *AdminController) DeleteProgramme(w http.ResponseWriter, r *http.Request) {
	adminID, id, ok := adminTarget(w, r)
	if !ok {
		return
	}
	err := c.admin.DeleteProgramme(r.Context(), adminID, id)
	respond(w, http.StatusOK, shared_dtos.ConfirmationResponse{Message: "Programme deactivated", ID: id.String()}, err)
}

// ---------------------------------------------------------------------
// Subscription plans
// ---------------------------------------------------------------------

// GET /api/v1/admin/plans
func (c *AdminController) ListPlans(w http.ResponseWriter, r *http.Request) {
	list, err := c.admin.ListPlans(r.Context())
	respond(w, http.StatusOK, list, err)
}

// POST /api/v1/admin/plans
func (c *AdminController) CreatePlan(w http.ResponseWriter, r *http.Request) {
	adminID, err := callerID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	var req dtos.AdminCreatePlanRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	p, err := c.admin.CreatePlan(r.Context(), adminID, req)
	respond(w, http.StatusCreated, p, err)
}

// PATCH /api/v1/admin/plans/{id}
func (c *AdminController) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	adminID, id, ok := adminTarget(w, r)
	if !ok {
		return
	}
	var req dtos.AdminUpdatePlanRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	p, err := c.admin.UpdatePlan(r.Context(), adminID, id, req)
	respond(w, http.StatusOK, p, err)
}

// DELETE /api/v1/admin/plans/{id}
func (c *AdminController) DeletePlan(w http.ResponseWriter, r *http.Request) {
	adminID, id, ok := adminTarget(w, r)
	if !ok {
		return
	}
	err := c.admin.DeletePlan(r.Context(), adminID, id)
	respond(w, http.StatusOK, shared_dtos.ConfirmationResponse{Message: "Plan deactivated", ID: id.String()}, err)
}

// ---------------------------------------------------------------------
// Coupons
// ---------------------------------------------------------------------

// GET /api/v1/admin/coupons
func (c *AdminController) ListCoupons(w http.ResponseWriter, r *http.Request) {
	list, err := c.admin.ListCoupons(r.Context())
	respond(w, http.StatusOK, list, err)
}

// POST /api/v1/admin/coupons
func (c *AdminController) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	adminID, err := callerID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	var req dtos.AdminCreateCouponRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	coupon, err := c.admin.CreateCoupon(r.Context(), adminID, req)
	respond(w, http.StatusCreated, coupon, err)
}

// PATCH /api/v1/admin/coupons/{id}
func (c *AdminController) UpdateCoupon(w http.ResponseWriter, r *http.Request) {
	adminID, id, ok := adminTarget(w, r)
	if !ok {
		return
	}
	var req dtos.AdminUpdateCouponRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	coupon, err := c.admin.UpdateCoupon(r.Context(), adminID, id, req)
	respond(w, http.StatusOK, coupon, err)
}

// DELETE /api/v1/admin/coupons/{id}
func (c *AdminController) DeactivateCoupon(w http.ResponseWriter, r *http.Request) {
	adminID, id, ok := adminTarget(w, r)
	if !ok {
		return
	}
	err := c.admin.DeactivateCoupon(r.Context(), adminID, id)
	respond(w, http.StatusOK, shared_dtos.ConfirmationResponse{Message: "Coupon deactivated", ID: id.String()}, err)
}

// ---------------------------------------------------------------------
// Orders, users, dashboard
// ---------------------------------------------------------------------

// GET /api/v1/admin/orders?status=&limit=&offset=
func (c *AdminController) ListOrders(w http.ResponseWriter, r *http.Request) {
	status, err := statusParam(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	limit, offset := pageParams(r)
	page, err := c.admin.ListOrders(r.Context(), status, limit, offset)
	respond(w, http.StatusOK, page, err)
}

// GET /api/v1/admin/orders/{id}
func (c *AdminController) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	o, err := c.admin.GetOrder(r.Context(), id)
	respond(w, http.StatusOK, o, err)
}

// POST /api/v1/admin/orders/{id}/refund
func (c *AdminController) RefundOrder(w http.ResponseWriter, r *http.Request) {
	adminID, id, ok := adminTarget(w, r)
	if !ok {
		return
	}
	var req dtos.AdminRefundOrderRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	o, err := c.admin.RefundOrder(r.Context(), adminID, id, req)
	respond(w, http.StatusOK, o, err)
}

// POST /api/v1/admin/users/{id}/points
func (c *AdminController) AdjustPoints(w http.ResponseWriter, r *http.Request) {
	adminID, userID, ok := adminTarget(w, r)
	if !ok {
		return
	}
	var req dtos.AdminAdjustPointsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	resp, err := c.admin.AdjustPoints(r.Context(), adminID, userID, req)
	respond(w, http.StatusOK, resp, err)
}

// GET /api/v1/admin/dashboard
func (c *AdminController) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := c.admin.Dashboard(r.Context())
	respond(w, http.StatusOK, d, err)
}
