package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/constants"
	shared_dtos "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-dtos"
	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
	repositories "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-repositories"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

// CatalogService serves the public storefront. Inactive rows are hidden.
type CatalogService struct {
	products   repositories.ProductRepository
	programmes repositories.ProgrammeRepository
	plans      repositories.SubscriptionPlanRepository
}

func NewCatalogService(
	products repositories.ProductRepository,
	programmes repositories.ProgrammeRepository,
	plans repositories.SubscriptionPlanRepository,
) *CatalogService {
	return &CatalogService{products: products, programmes: programmes, plans: plans}
}

func (s *CatalogService) ListProducts(ctx context.Context, category, search string, limit, offset int) (*shared_dtos.Page[*models.Product], error) {
	limit, offset = clampPage(limit, offset, constants.DefaultPageLimit, constants.MaxPageLimit)
	products, err := s.products.List(ctx, repositories.ProductFilter{
		Category: strings.TrimSpace(category),
		Search:   strings.TrimSpace(search),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, utils.InternalError("Failed to list products", err)
	}
	if products == nil {
		products = []*models.Product{}
	}
	return &shared_dtos.Page[*models.Product]{Data: products, Limit: limit, Offset: offset}, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, utils.InternalError("Failed to load product", err)
	}
	if p == nil || !p.IsActive {
		return nil, utils.NotFoundError("Product not found")
	}
	return p, nil
}

func (s *CatalogService) ListProgrammes(ctx context.Context, level string) ([]*models.Programme, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	programmes, err := s.programmes.List(ctx, level, false)
	if err != nil {
		return nil, utils.InternalError("Failed to list programmes", err)
	}
	if programmes == nil {
		programmes = []*models.Programme{}
	}
	return programmes, nil
}

func (s *CatalogService) GetProgramme(ctx context.Context, id uuid.UUID) (*models.Programme, error) {
	p, err := s.programmes.GetByID(ctx, id)
	if err != nil {
		return nil, utils.InternalError("Failed to load programme", err)
	}
	if p == nil || !p.IsActive {
		return nil, utils.NotFoundError("Programme not found")
	}
	return p, nil
}

func (s *CatalogService) ListPlans(ctx context.Context) ([]*models.SubscriptionPlan, error) {
	plans, err := s.plans.List(ctx, false)
	if err != nil {
		return nil, utils.InternalError("Failed to list plans", err)
	}
	if plans == nil {
		plans = []*models.SubscriptionPlan{}
	}
	return plans, nil
}

func (s *CatalogService) GetPlan(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error) {
	p, err := s.plans.GetByID(ctx, id)
	if err != nil {
		return nil, utils.InternalError("Failed to load plan", err)
	}
	if p == nil || !p.IsActive {
		return nil, utils.NotFoundError("Plan not found")
	}
	return p, nil
}
