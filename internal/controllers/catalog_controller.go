package controllers

import (
	"net/http"

	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/services"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

// CatalogController serves the public storefront listings. Only active
// items are visible here.
type CatalogController struct {
	catalog *services.CatalogService
}

func NewCatalogController(catalog *services.CatalogService) *CatalogController {
	return &CatalogController{catalog: catalog}
}

// GET /api/v1/products?category=&search=&limit=&offset=
func (c *CatalogController) ListProducts(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	q := r.URL.Query()
	page, err := c.catalog.ListProducts(r.Context(), q.Get("category"), q.Get("search"), limit, offset)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, page)
}

// GET /api/v1/products/{id}
func (c *CatalogController) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	p, err := c.catalog.GetProduct(r.Context(), id)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, p)
}

// GET /api/v1/programmes?level=
func (c *CatalogController) ListProgrammes(w http.ResponseWriter, r *http.Request) {
	list, err := c.catalog.ListProgrammes(r.Context(), r.URL.Query().Get("level"))
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

// GET /api/v1/programmes/{id}
func (c *CatalogController) GetProgramme(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	p, err := c.catalog.GetProgramme(r.Context(), id)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, p)
}

// GET /api/v1/plans
func (c *CatalogController) ListPlans(w http.ResponseWriter, r *http.Request) {
	list, err := c.catalog.ListPlans(r.Context())
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

// GET /api/v1/plans/{id}
func (c *CatalogController) GetPlan(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	p, err := c.catalog.GetPlan(r.Context(), id)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, p)
}
