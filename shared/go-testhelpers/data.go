package testhelpers

import (
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

// uniqueSuffix keeps names distinct across runs sharing one database.
func uniqueSuffix() string {
	return uuid.NewString()[:8]
}

// CreateTestUser inserts a customer with the given password and balance.
func (h *TestHelper) CreateTestUser(password string, points int64) *models.User {
	hash, err := utils.HashPassword(password)
	require.NoError(h.T, err)
	u := &models.User{
		ID:            uuid.New(),
		Email:         "it-" + uniqueSuffix() + "@gymmawy.test",
		PasswordHash:  hash,
		FirstName:     "Integration",
		LastName:      "Runner",
		Role:          models.RoleCustomer,
		LoyaltyPoints: points,
	}
	require.NoError(h.T, h.UserRepo.Create(h.Ctx, u))
	return u
}

// CreateTestAdmin inserts an admin protected by totpSecret.
func (h *TestHelper) CreateTestAdmin(password, totpSecret string) *models.User {
	hash, err := utils.HashPassword(password)
	require.NoError(h.T, err)
	u := &models.User{
		ID:           uuid.New(),
		Email:        "it-admin-" + uniqueSuffix() + "@gymmawy.test",
		PasswordHash: hash,
		FirstName:    "Integration",
		Role:         models.RoleAdmin,
		TOTPSecret:   totpSecret,
	}
	require.NoError(h.T, h.UserRepo.Create(h.Ctx, u))
	return u
}

func (h *TestHelper) CreateTestProduct(priceCents int64, stock int) *models.Product {
	p := &models.Product{
		ID:         uuid.New(),
		Name:       "IT dumbbell " + uniqueSuffix(),
		Category:   "equipment",
		PriceCents: priceCents,
		Stock:      stock,
		IsActive:   true,
	}
	require.NoError(h.T, h.ProductRepo.Create(h.Ctx, p))
	return p
}

func (h *TestHelper) CreateTestProgramme(priceCents int64) *models.Programme {
	p := &models.Programme{
		ID:            uuid.New(),
		Title:         "IT programme " + uniqueSuffix(),
		Level:         models.LevelIntermediate,
		DurationWeeks: 6,
		PriceCents:    priceCents,
		IsActive:      true,
	}
	require.NoError(h.T, h.ProgrammeRepo.Create(h.Ctx, p))
	return p
}

func (h *TestHelper) CreateTestPlan(priceCents int64, days int) *models.SubscriptionPlan {
	p := &models.SubscriptionPlan{
		ID:           uuid.New(),
		Name:         "IT plan " + uniqueSuffix(),
		DurationDays: days,
		PriceCents:   priceCents,
		Features:     []string{"coach chat"},
		IsActive:     true,
	}
	require.NoError(h.T, h.PlanRepo.Create(h.Ctx, p))
	return p
}

// CreatePendingOrder inserts a PENDING order for items charged in the base
// currency, as checkout would before handing the buyer to provider.
func (h *TestHelper) CreatePendingOrder(u *models.User, provider models.PaymentProvider, currency string, items ...models.OrderItem) *models.Order {
	now := time.Now().UTC()
	o := &models.Order{
		ID:              uuid.New(),
		UserID:          u.ID,
		Status:          models.OrderPending,
		Currency:        currency,
		PaymentProvider: provider,
		ChargeCurrency:  currency,
		FXRate:          1,
		ExpiresAt:       now.Add(30 * time.Minute),
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
	require.NoError(h.T, h.OrderRepo.Create(h.Ctx, o))
	return o
}

// ReloadOrder reads the order straight from the database.
func (h *TestHelper) ReloadOrder(id uuid.UUID) *models.Order {
	o, err := h.OrderRepo.GetByID(h.Ctx, id)
	require.NoError(h.T, err)
	require.NotNil(h.T, o, "order %s not found", id)
	return o
}

func (h *TestHelper) ReloadUser(id uuid.UUID) *models.User {
	u, err := h.UserRepo.GetByID(h.Ctx, id)
	require.NoError(h.T, err)
	require.NotNil(h.T, u, "user %s not found", id)
	return u
}

func ProductLine(p *models.Product, qty int) models.OrderItem {
	return models.OrderItem{ItemType: models.ItemProduct, ItemID: p.ID, Name: p.Name, UnitPriceCents: p.PriceCents, Quantity: qty}
}

func ProgrammeLine(p *models.Programme) models.OrderItem {
	return models.OrderItem{ItemType: models.ItemProgramme, ItemID: p.ID, Name: p.Title, UnitPriceCents: p.PriceCents, Quantity: 1}
}

func PlanLine(p *models.SubscriptionPlan) models.OrderItem {
	return models.OrderItem{ItemType: models.ItemSubscription, ItemID: p.ID, Name: p.Name, UnitPriceCents: p.PriceCents, Quantity: 1}
}
