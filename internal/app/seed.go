package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"

	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
	repositories "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-repositories"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

// Fixed ids so seeding is idempotent across restarts.
var (
	SeedAdminID         = uuid.MustParse("11111111-2222-3333-4444-555555555555")
	SeedCustomerID      = uuid.MustParse("11111111-2222-3333-4444-666666666666")
	SeedProductID       = uuid.MustParse("2a3e5c10-0000-4000-8000-000000000001")
	SeedProductLowID    = uuid.MustParse("2a3e5c10-0000-4000-8000-000000000002")
	SeedProgrammeID     = uuid.MustParse("2a3e5c10-0000-4000-8000-000000000010")
	SeedPlanID          = uuid.MustParse("2a3e5c10-0000-4000-8000-000000000020")
	SeedCouponID        = uuid.MustParse("2a3e5c10-0000-4000-8000-000000000030")
	SeedAdminTOTPSecret = "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP"
)

const (
	SeedAdminEmail    = "admin@gymmawy.com"
	SeedCustomerEmail = "customer@gymmawy.com"
	SeedPassword      = "Gymmawy!2024"
	SeedCouponCode    = "WELCOME10"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type Seeder struct {
	Users      repositories.UserRepository
	Products   repositories.ProductRepository
	Programmes repositories.ProgrammeRepository
	Plans      repositories.SubscriptionPlanRepository
	Coupons    repositories.CouponRepository
}

// SeedAll inserts demo accounts and catalog rows. Rows that already exist
// are left untouched.
func (s *Seeder) SeedAll(ctx context.Context) error {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"users", s.seedUsers},
		{"products", s.seedProducts},
		{"programmes", s.seedProgrammes},
		{"plans", s.seedPlans},
		{"coupons", s.seedCoupons},
	}
	for _, st := range steps {
		if err := st.fn(ctx); err != nil {
			return fmt.Errorf("seed %s: %w", st.name, err)
		}
	}
	return nil
}

func (s *Seeder) seedUsers(ctx context.Context) error {
	hash, err := utils.HashPassword(SeedPassword)
	if err != nil {
		return err
	}
	users := []*models.User{
		{
			ID:           SeedAdminID,
			Email:        SeedAdminEmail,
			PasswordHash: hash,
			FirstName:    "Seed",
			LastName:     "Admin",
			Role:         models.RoleAdmin,
			TOTPSecret:   SeedAdminTOTPSecret,
		},
		{
			ID:            SeedCustomerID,
			Email:         SeedCustomerEmail,
			PasswordHash:  hash,
			FirstName:     "Seed",
			LastName:      "Customer",
			PhoneNumber:   utils.Ptr("+201000000000"),
			Role:          models.RoleCustomer,
			LoyaltyPoints: 500,
		},
	}
	for _, u := range users {
		if err := s.Users.Create(ctx, u); err != nil {
			if isUniqueViolation(err) {
				utils.Logger.Infof("Seed user %s already present; skipping.", u.Email)
				continue
			}
			return err
		}
		utils.Logger.Infof("Created seed user %s (role=%s)", u.Email, u.Role)
	}
	return nil
}

func (s *Seeder) seedProducts(ctx context.Context) error {
	products := []*models.Product{
		{ID: SeedProductID, Name: "Whey Protein 2kg", Description: "Chocolate flavour", Category: "supplements", PriceCents: 250000, Stock: 50, IsActive: true},
		{ID: SeedProductLowID, Name: "Lifting Straps", Description: "Cotton, pair", Category: "accessories", PriceCents: 30000, Stock: 2, IsActive: true},
	}
	for _, p := range products {
		if err := s.Products.Create(ctx, p); err != nil && !isUniqueViolation(err) {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedProgrammes(ctx context.Context) error {
	p := &models.Programme{
		ID:            SeedProgrammeID,
		Title:         "12-Week Strength Foundation",
		Description:   "Progressive barbell programme",
		Level:         models.LevelBeginner,
		DurationWeeks: 12,
		PriceCents:    90000,
		IsActive:      true,
	}
	if err := s.Programmes.Create(ctx, p); err != nil && !isUniqueViolation(err) {
		return err
	}
	return nil
}

func (s *Seeder) seedPlans(ctx context.Context) error {
	p := &models.SubscriptionPlan{
		ID:           SeedPlanID,
		Name:         "Monthly Coaching",
		Description:  "Weekly check-ins with a coach",
		DurationDays: 30,
		PriceCents:   60000,
		Features:     []string{"weekly check-in", "nutrition plan"},
		IsActive:     true,
	}
	if err := s.Plans.Create(ctx, p); err != nil && !isUniqueViolation(err) {
		return err
	}
	return nil
}

func (s *Seeder) seedCoupons(ctx context.Context) error {
	c := &models.Coupon{
		ID:               SeedCouponID,
		Code:             SeedCouponCode,
		DiscountType:     models.DiscountPercent,
		DiscountValue:    10,
		MaxDiscountCents: utils.Ptr(int64(50000)),
		PerUserLimit:     1,
		IsActive:         true,
	}
	if err := s.Coupons.Create(ctx, c); err != nil && !isUniqueViolation(err) {
		return err
	}
	return nil
}
