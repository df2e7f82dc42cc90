package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"

	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
	repositories "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-repositories"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

// memStore backs every fake repository. It is not transactional: the fake
// TxManager just runs the callback, so tests assert on the final state.
type memStore struct {
	mu          sync.Mutex
	users       map[uuid.UUID]*models.User
	products    map[uuid.UUID]*models.Product
	programmes  map[uuid.UUID]*models.Programme
	plans       map[uuid.UUID]*models.SubscriptionPlan
	coupons     map[uuid.UUID]*models.Coupon
	redemptions []*models.CouponRedemption
	orders      map[uuid.UUID]*models.Order
	cart        map[uuid.UUID]*models.CartItem
	grants      []*models.UserProgramme
	subs        map[uuid.UUID]*models.UserSubscription
	ledger      []*models.LoyaltyTransaction
	events      map[string]*models.PaymentEvent
	rates       map[string]*models.ExchangeRate
	tokens      map[uuid.UUID]*models.RefreshToken
	audit       []*models.AdminAuditLog
}

func newMemStore() *memStore {
	return &memStore{
		users:      map[uuid.UUID]*models.User{},
		products:   map[uuid.UUID]*models.Product{},
		programmes: map[uuid.UUID]*models.Programme{},
		plans:      map[uuid.UUID]*models.SubscriptionPlan{},
		coupons:    map[uuid.UUID]*models.Coupon{},
		orders:     map[uuid.UUID]*models.Order{},
		cart:       map[uuid.UUID]*models.CartItem{},
		subs:       map[uuid.UUID]*models.UserSubscription{},
		events:     map[string]*models.PaymentEvent{},
		rates:      map[string]*models.ExchangeRate{},
		tokens:     map[uuid.UUID]*models.RefreshToken{},
	}
}

func updated(n int) pgconn.CommandTag {
	if n == 1 {
		return pgconn.CommandTag("UPDATE 1")
	}
	return pgconn.CommandTag("UPDATE 0")
}

type fakeTx struct{ calls int }

func (f *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

// ---------------------------------------------------------------------
// users
// ---------------------------------------------------------------------

type fakeUserRepo struct{ s *memStore }

func (r *fakeUserRepo) Create(_ context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	cp := *u
	cp.RowVersion = 1
	r.s.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) UpdateIfVersion(_ context.Context, u *models.User, expected int64) (pgconn.CommandTag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.users[u.ID]
	if !ok || cur.RowVersion != expected {
		return updated(0), nil
	}
	cp := *u
	cp.LoyaltyPoints = cur.LoyaltyPoints
	cp.RowVersion = expected + 1
	r.s.users[u.ID] = &cp
	return updated(1), nil
}

func (r *fakeUserRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.User) error) error {
	return repositories.WithRetry(ctx, 3, id.String(),
		func(ctx context.Context, sid string) (*models.User, error) {
			return r.GetByID(ctx, uuid.MustParse(sid))
		},
		r.UpdateIfVersion, mutate)
}

func (r *fakeUserRepo) AddLoyaltyPoints(_ context.Context, id uuid.UUID, delta int64, clamp bool) (int64, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return 0, 0, repositories.ErrInsufficientPoints
	}
	before := u.LoyaltyPoints
	after := before + delta
	if after < 0 {
		if !clamp {
			return 0, before, repositories.ErrInsufficientPoints
		}
		after = 0
	}
	u.LoyaltyPoints = after
	u.RowVersion++
	return after - before, after, nil
}

// ---------------------------------------------------------------------
// catalog
// ---------------------------------------------------------------------

type fakeProductRepo struct{ s *memStore }

func (r *fakeProductRepo) Create(_ context.Context, p *models.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *p
	cp.RowVersion = 1
	r.s.products[p.ID] = &cp
	return nil
}

func (r *fakeProductRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProductRepo) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := map[uuid.UUID]*models.Product{}
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

func (r *fakeProductRepo) List(_ context.Context, f repositories.ProductFilter) ([]*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Product
	for _, p := range r.s.products {
		if !f.IncludeInactive && !p.IsActive {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeProductRepo) ListLowStock(_ context.Context, threshold int) ([]*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Product
	for _, p := range r.s.products {
		if p.IsActive && p.Stock <= threshold {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeProductRepo) UpdateIfVersion(_ context.Context, p *models.Product, expected int64) (pgconn.CommandTag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.products[p.ID]
	if !ok || cur.RowVersion != expected {
		return updated(0), nil
	}
	cp := *p
	cp.Stock = cur.Stock
	cp.RowVersion = expected + 1
	r.s.products[p.ID] = &cp
	return updated(1), nil
}

func (r *fakeProductRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Product) error) error {
	return repositories.WithRetry(ctx, 3, id.String(),
		func(ctx context.Context, sid string) (*models.Product, error) {
			return r.GetByID(ctx, uuid.MustParse(sid))
		},
		r.UpdateIfVersion, mutate)
}

func (r *fakeProductRepo) AdjustStock(_ context.Context, id uuid.UUID, delta int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok || p.Stock+delta < 0 {
		return 0, repositories.ErrInsufficientStock
	}
	p.Stock += delta
	p.RowVersion++
	return p.Stock, nil
}

type fakeProgrammeRepo struct{ s *memStore }

func (r *fakeProgrammeRepo) Create(_ context.Context, p *models.Programme) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *p
	cp.RowVersion = 1
	r.s.programmes[p.ID] = &cp
	return nil
}

func (r *fakeProgrammeRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Programme, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.programmes[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProgrammeRepo) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Programme, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := map[uuid.UUID]*models.Programme{}
	for _, id := range ids {
		if p, ok := r.s.programmes[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

func (r *fakeProgrammeRepo) List(_ context.Context, level string, includeInactive bool) ([]*models.Programme, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Programme
	for _, p := range r.s.programmes {
		if (!includeInactive && !p.IsActive) || (level != "" && string(p.Level) != level) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeProgrammeRepo) UpdateIfVersion(_ context.Context, p *models.Programme, expected int64) (pgconn.CommandTag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.programmes[p.ID]
	if !ok || cur.RowVersion != expected {
		return updated(0), nil
	}
	cp := *p
	cp.RowVersion = expected + 1
	r.s.programmes[p.ID] = &cp
	return updated(1), nil
}

func (r *fakeProgrammeRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Programme) error) error {
	return repositories.WithRetry(ctx, 3, id.String(),
		func(ctx context.Context, sid string) (*models.Programme, error) {
			return r.GetByID(ctx, uuid.MustParse(sid))
		},
		r.UpdateIfVersion, mutate)
}

func (r *fakeProgrammeRepo) GrantToUser(_ context.Context, g *models.UserProgramme) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.grants {
		if existing.UserID == g.UserID && existing.ProgrammeID == g.ProgrammeID {
			return nil
		}
	}
	cp := *g
	r.s.grants = append(r.s.grants, &cp)
	return nil
}

func (r *fakeProgrammeRepo) RevokeForOrder(_ context.Context, orderID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var kept []*models.UserProgramme
	var n int64
	for _, g := range r.s.grants {
		if g.OrderID == orderID {
			n++
			continue
		}
		kept = append(kept, g)
	}
	r.s.grants = kept
	return n, nil
}

func (r *fakeProgrammeRepo) UserOwns(_ context.Context, userID, programmeID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, g := range r.s.grants {
		if g.UserID == userID && g.ProgrammeID == programmeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeProgrammeRepo) ListOwnedByUser(_ context.Context, userID uuid.UUID) ([]*models.Programme, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Programme
	for _, g := range r.s.grants {
		if g.UserID == userID {
			if p, ok := r.s.programmes[g.ProgrammeID]; ok {
				cp := *p
				out = append(out, &cp)
			}
		}
	}
	return out, nil
}

type fakePlanRepo struct{ s *memStore }

func (r *fakePlanRepo) Create(_ context.Context, p *models.SubscriptionPlan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *p
	cp.RowVersion = 1
	r.s.plans[p.ID] = &cp
	return nil
}

func (r *fakePlanRepo) GetByID(_ context.Context, id uuid.UUID) (*models.SubscriptionPlan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.plans[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakePlanRepo) List(_ context.Context, includeInactive bool) ([]*models.SubscriptionPlan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.SubscriptionPlan
	for _, p := range r.s.plans {
		if includeInactive || p.IsActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakePlanRepo) UpdateIfVersion(_ context.Context, p *models.SubscriptionPlan, expected int64) (pgconn.CommandTag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.plans[p.ID]
	if !ok || cur.RowVersion != expected {
		return updated(0), nil
	}
	cp := *p
	cp.RowVersion = expected + 1
	r.s.plans[p.ID] = &cp
	return updated(1), nil
}

func (r *fakePlanRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.SubscriptionPlan) error) error {
	return repositories.WithRetry(ctx, 3, id.String(),
		func(ctx context.Context, sid string) (*models.SubscriptionPlan, error) {
			return r.GetByID(ctx, uuid.MustParse(sid))
		},
		r.UpdateIfVersion, mutate)
}

// ---------------------------------------------------------------------
// coupons
// ---------------------------------------------------------------------

type fakeCouponRepo struct{ s *memStore }

func (r *fakeCouponRepo) Create(_ context.Context, c *models.Coupon) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.coupons {
		if existing.Code == c.Code {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	cp := *c
	cp.RowVersion = 1
	r.s.coupons[c.ID] = &cp
	return nil
}

func (r *fakeCouponRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.coupons[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCouponRepo) GetByCode(_ context.Context, code string) (*models.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.coupons {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeCouponRepo) List(_ context.Context, includeInactive bool) ([]*models.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Coupon
	for _, c := range r.s.coupons {
		if includeInactive || c.IsActive {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeCouponRepo) UpdateIfVersion(_ context.Context, c *models.Coupon, expected int64) (pgconn.CommandTag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.coupons[c.ID]
	if !ok || cur.RowVersion != expected {
		return updated(0), nil
	}
	cp := *c
	cp.UsedCount = cur.UsedCount
	cp.RowVersion = expected + 1
	r.s.coupons[c.ID] = &cp
	return updated(1), nil
}

func (r *fakeCouponRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Coupon) error) error {
	return repositories.WithRetry(ctx, 3, id.String(),
		func(ctx context.Context, sid string) (*models.Coupon, error) {
			return r.GetByID(ctx, uuid.MustParse(sid))
		},
		r.UpdateIfVersion, mutate)
}

func (r *fakeCouponRepo) CountUserRedemptions(_ context.Context, couponID, userID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, red := range r.s.redemptions {
		if red.CouponID == couponID && red.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *fakeCouponRepo) Redeem(_ context.Context, red *models.CouponRedemption) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.coupons[red.CouponID]
	if !ok || (c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit) {
		return repositories.ErrCouponExhausted
	}
	c.UsedCount++
	c.RowVersion++
	cp := *red
	r.s.redemptions = append(r.s.redemptions, &cp)
	return nil
}

// ---------------------------------------------------------------------
// orders, cart, entitlements
// ---------------------------------------------------------------------

type fakeOrderRepo struct{ s *memStore }

func cloneOrder(o *models.Order) *models.Order {
	cp := *o
	cp.Items = append([]models.OrderItem(nil), o.Items...)
	return &cp
}

func (r *fakeOrderRepo) Create(_ context.Context, o *models.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := cloneOrder(o)
	cp.RowVersion = 1
	r.s.orders[o.ID] = cp
	return nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, nil
	}
	return cloneOrder(o), nil
}

func (r *fakeOrderRepo) findBy(match func(*models.Order) bool) *models.Order {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.orders {
		if match(o) {
			return cloneOrder(o)
		}
	}
	return nil
}

func (r *fakeOrderRepo) GetByProviderOrderID(_ context.Context, p models.PaymentProvider, id string) (*models.Order, error) {
	return r.findBy(func(o *models.Order) bool {
		return o.PaymentProvider == p && o.ProviderOrderID != nil && *o.ProviderOrderID == id
	}), nil
}

func (r *fakeOrderRepo) GetByProviderPaymentID(_ context.Context, p models.PaymentProvider, id string) (*models.Order, error) {
	return r.findBy(func(o *models.Order) bool {
		return o.PaymentProvider == p && o.ProviderPaymentID != nil && *o.ProviderPaymentID == id
	}), nil
}

func (r *fakeOrderRepo) List(_ context.Context, f repositories.OrderFilter) ([]*models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Order
	for _, o := range r.s.orders {
		if f.UserID != nil && o.UserID != *f.UserID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeOrderRepo) ListExpiredPending(_ context.Context, now time.Time, limit int) ([]*models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Order
	for _, o := range r.s.orders {
		if o.Status == models.OrderPending && o.ExpiresAt.Before(now) && len(out) < limit {
			out = append(out, cloneOrder(o))
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) UpdateIfVersion(_ context.Context, o *models.Order, expected int64) (pgconn.CommandTag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.orders[o.ID]
	if !ok || cur.RowVersion != expected {
		return updated(0), nil
	}
	cp := cloneOrder(o)
	cp.Items = cur.Items
	cp.RowVersion = expected + 1
	r.s.orders[o.ID] = cp
	return updated(1), nil
}

func (r *fakeOrderRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Order) error) error {
	return repositories.WithRetry(ctx, 3, id.String(),
		func(ctx context.Context, sid string) (*models.Order, error) {
			return r.GetByID(ctx, uuid.MustParse(sid))
		},
		r.UpdateIfVersion, mutate)
}

func (r *fakeOrderRepo) SetItemStockDeducted(_ context.Context, itemID uuid.UUID, deducted bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.orders {
		for i := range o.Items {
			if o.Items[i].ID == itemID {
				items := append([]models.OrderItem(nil), o.Items...)
				items[i].StockDeducted = deducted
				o.Items = items
				return nil
			}
		}
	}
	return fmt.Errorf("order item %s not found", itemID)
}

func (r *fakeOrderRepo) StatusCounts(_ context.Context) (map[models.OrderStatus]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := map[models.OrderStatus]int64{}
	for _, o := range r.s.orders {
		out[o.Status]++
	}
	return out, nil
}

func (r *fakeOrderRepo) RevenueSince(_ context.Context, since time.Time) (int64, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var revenue, n int64
	for _, o := range r.s.orders {
		if o.Status == models.OrderPaid && o.PaidAt != nil && !o.PaidAt.Before(since) {
			revenue += o.TotalCents
			n++
		}
	}
	return revenue, n, nil
}

type fakeCartRepo struct{ s *memStore }

func (r *fakeCartRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*models.CartItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.CartItem
	for _, it := range r.s.cart {
		if it.UserID == userID {
			cp := *it
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeCartRepo) GetByID(_ context.Context, userID, id uuid.UUID) (*models.CartItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.cart[id]
	if !ok || it.UserID != userID {
		return nil, nil
	}
	cp := *it
	return &cp, nil
}

func (r *fakeCartRepo) Find(_ context.Context, userID uuid.UUID, t models.ItemType, itemID uuid.UUID) (*models.CartItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, it := range r.s.cart {
		if it.UserID == userID && it.ItemType == t && it.ItemID == itemID {
			cp := *it
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeCartRepo) Upsert(_ context.Context, item *models.CartItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, it := range r.s.cart {
		if it.UserID == item.UserID && it.ItemType == item.ItemType && it.ItemID == item.ItemID {
			it.Quantity = item.Quantity
			return nil
		}
	}
	cp := *item
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	r.s.cart[item.ID] = &cp
	return nil
}

func (r *fakeCartRepo) UpdateQuantity(_ context.Context, userID, id uuid.UUID, qty int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.cart[id]
	if !ok || it.UserID != userID {
		return false, nil
	}
	it.Quantity = qty
	return true, nil
}

func (r *fakeCartRepo) Remove(_ context.Context, userID, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.cart[id]
	if !ok || it.UserID != userID {
		return false, nil
	}
	delete(r.s.cart, id)
	return true, nil
}

func (r *fakeCartRepo) Clear(_ context.Context, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, it := range r.s.cart {
		if it.UserID == userID {
			delete(r.s.cart, id)
		}
	}
	return nil
}

type fakeSubRepo struct{ s *memStore }

func (r *fakeSubRepo) Create(_ context.Context, sub *models.UserSubscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *sub
	cp.RowVersion = 1
	r.s.subs[sub.ID] = &cp
	return nil
}

func (r *fakeSubRepo) GetByID(_ context.Context, id uuid.UUID) (*models.UserSubscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.subs[id]
	if !ok {
		return nil, nil
	}
	cp := *sub
	return &cp, nil
}

func (r *fakeSubRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*models.UserSubscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.UserSubscription
	for _, sub := range r.s.subs {
		if sub.UserID == userID {
			cp := *sub
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (r *fakeSubRepo) LatestActiveEnd(_ context.Context, userID, planID uuid.UUID) (*time.Time, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var latest *time.Time
	for _, sub := range r.s.subs {
		if sub.UserID == userID && sub.PlanID == planID && sub.Status == models.SubscriptionActive {
			end := sub.EndsAt
			if latest == nil || end.After(*latest) {
				latest = &end
			}
		}
	}
	return latest, nil
}

func (r *fakeSubRepo) CancelByOrder(_ context.Context, orderID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, sub := range r.s.subs {
		if sub.OrderID == orderID && sub.Status == models.SubscriptionActive {
			sub.Status = models.SubscriptionCancelled
			n++
		}
	}
	return n, nil
}

func (r *fakeSubRepo) ExpireDue(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, sub := range r.s.subs {
		if sub.Status == models.SubscriptionActive && !sub.EndsAt.After(now) {
			sub.Status = models.SubscriptionExpired
			n++
		}
	}
	return n, nil
}

func (r *fakeSubRepo) UpdateIfVersion(_ context.Context, sub *models.UserSubscription, expected int64) (pgconn.CommandTag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.subs[sub.ID]
	if !ok || cur.RowVersion != expected {
		return updated(0), nil
	}
	cp := *sub
	cp.RowVersion = expected + 1
	r.s.subs[sub.ID] = &cp
	return updated(1), nil
}

func (r *fakeSubRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.UserSubscription) error) error {
	return repositories.WithRetry(ctx, 3, id.String(),
		func(ctx context.Context, sid string) (*models.UserSubscription, error) {
			return r.GetByID(ctx, uuid.MustParse(sid))
		},
		r.UpdateIfVersion, mutate)
}

// ---------------------------------------------------------------------
// ledger, events, rates, tokens, audit
// ---------------------------------------------------------------------

type fakeLedgerRepo struct{ s *memStore }

func (r *fakeLedgerRepo) Create(_ context.Context, t *models.LoyaltyTransaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *t
	cp.CreatedAt = time.Now()
	r.s.ledger = append(r.s.ledger, &cp)
	return nil
}

func (r *fakeLedgerRepo) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]*models.LoyaltyTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.LoyaltyTransaction
	for i := len(r.s.ledger) - 1; i >= 0 && len(out) < limit; i-- {
		if r.s.ledger[i].UserID == userID {
			cp := *r.s.ledger[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) ListByOrder(_ context.Context, orderID uuid.UUID) ([]*models.LoyaltyTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.LoyaltyTransaction
	for _, t := range r.s.ledger {
		if t.OrderID != nil && *t.OrderID == orderID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeEventRepo struct{ s *memStore }

func (r *fakeEventRepo) Record(_ context.Context, ev *models.PaymentEvent) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := string(ev.Provider) + "|" + ev.EventKey
	if _, dup := r.s.events[key]; dup {
		return false, nil
	}
	cp := *ev
	r.s.events[key] = &cp
	return true, nil
}

type fakeRateRepo struct{ s *memStore }

func (r *fakeRateRepo) Upsert(_ context.Context, rate *models.ExchangeRate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *rate
	r.s.rates[pairKey(rate.Base, rate.Quote)] = &cp
	return nil
}

func (r *fakeRateRepo) Get(_ context.Context, base, quote string) (*models.ExchangeRate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rate, ok := r.s.rates[pairKey(base, quote)]
	if !ok {
		return nil, nil
	}
	cp := *rate
	return &cp, nil
}

type fakeTokenRepo struct {
	s          *memStore
	cleanupErr []error
}

func (r *fakeTokenRepo) CreateRefreshToken(_ context.Context, t *models.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *t
	if cp.TokenHash == "" {
		cp.TokenHash = utils.HashToken(t.Token)
	}
	cp.Token = ""
	r.s.tokens[t.ID] = &cp
	return nil
}

func (r *fakeTokenRepo) GetRefreshToken(_ context.Context, raw string) (*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tokens {
		if t.TokenHash == utils.HashToken(raw) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeTokenRepo) RemoveRefreshToken(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.tokens, id)
	return nil
}

func (r *fakeTokenRepo) RemoveAllForUser(_ context.Context, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, t := range r.s.tokens {
		if t.UserID == userID {
			delete(r.s.tokens, id)
		}
	}
	return nil
}

func (r *fakeTokenRepo) DeleteExpiredOrRevoked(_ context.Context) (int64, error) {
	if len(r.cleanupErr) > 0 {
		err := r.cleanupErr[0]
		r.cleanupErr = r.cleanupErr[1:]
		if err != nil {
			return 0, err
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, t := range r.s.tokens {
		if t.Revoked || time.Now().After(t.ExpiresAt) {
			delete(r.s.tokens, id)
			n++
		}
	}
	return n, nil
}

type fakeAuditRepo struct{ s *memStore }

func (r *fakeAuditRepo) Create(_ context.Context, l *models.AdminAuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *l
	r.s.audit = append(r.s.audit, &cp)
	return nil
}

func (r *fakeAuditRepo) ListByTarget(_ context.Context, t models.AuditTargetType, id uuid.UUID) ([]*models.AdminAuditLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.AdminAuditLog
	for _, l := range r.s.audit {
		if l.TargetType == t && l.TargetID == id {
			out = append(out, l)
		}
	}
	return out, nil
}

var (
	_ repositories.UserRepository             = (*fakeUserRepo)(nil)
	_ repositories.ProductRepository          = (*fakeProductRepo)(nil)
	_ repositories.ProgrammeRepository        = (*fakeProgrammeRepo)(nil)
	_ repositories.SubscriptionPlanRepository = (*fakePlanRepo)(nil)
	_ repositories.CouponRepository           = (*fakeCouponRepo)(nil)
	_ repositories.OrderRepository            = (*fakeOrderRepo)(nil)
	_ repositories.CartRepository             = (*fakeCartRepo)(nil)
	_ repositories.UserSubscriptionRepository = (*fakeSubRepo)(nil)
	_ repositories.LoyaltyRepository          = (*fakeLedgerRepo)(nil)
	_ repositories.PaymentEventRepository     = (*fakeEventRepo)(nil)
	_ repositories.ExchangeRateRepository     = (*fakeRateRepo)(nil)
	_ repositories.TokenRepository            = (*fakeTokenRepo)(nil)
	_ repositories.AdminAuditLogRepository    = (*fakeAuditRepo)(nil)
	_ repositories.TxManager                  = (*fakeTx)(nil)
)
