package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"

	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
)

type OrderFilter struct {
	UserID *uuid.UUID
	Status models.OrderStatus
	Limit  int
	Offset int
}

type OrderRepository interface {
	// Create inserts the order and its Items.
	Create(ctx context.Context, o *models.Order) error
	// GetByID loads the order with its items.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByProviderOrderID(ctx context.Context, provider models.PaymentProvider, providerOrderID string) (*models.Order, error)
	GetByProviderPaymentID(ctx context.Context, provider models.PaymentProvider, providerPaymentID string) (*models.Order, error)
	List(ctx context.Context, f OrderFilter) ([]*models.Order, error)
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]*models.Order, error)
	UpdateIfVersion(ctx context.Context, o *models.Order, expected int64) (pgconn.CommandTag, error)
	UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Order) error) error
	SetItemStockDeducted(ctx context.Context, itemID uuid.UUID, deducted bool) error

	StatusCounts(ctx context.Context) (map[models.OrderStatus]int64, error)
	// RevenueSince sums total_cents of orders paid at or after since.
	RevenueSince(ctx context.Context, since time.Time) (revenueCents int64, orders int64, err error)
}

type orderRepo struct {
	*BaseVersionedRepo[*models.Order]
	db DB
}

func NewOrderRepository(db DB) OrderRepository {
	r := &orderRepo{db: db}
	r.BaseVersionedRepo = NewBaseRepo(db, baseSelectOrder()+" WHERE id=$1", scanOrder)
	return r
}

func (r *orderRepo) Create(ctx context.Context, o *models.Order) error {
	shipping, err := marshalShipping(o.Shipping)
	if err != nil {
		return err
	}
	db := conn(ctx, r.db)

	_, err = db.Exec(ctx, `
		INSERT INTO orders (
			id, user_id, status,
			subtotal_cents, coupon_discount_cents, points_discount_cents, total_cents, currency,
			coupon_id, coupon_code, points_redeemed, points_earned,
			payment_provider, provider_order_id, provider_payment_id, provider_transaction_id,
			charge_amount_cents, charge_currency, fx_rate, checkout_url, failure_reason,
			shipping, flagged_for_review, paid_at, expires_at,
			created_at, updated_at, row_version
		) VALUES (
			$1,$2,$3,
			$4,$5,$6,$7,$8,
			$9,$10,$11,$12,
			$13,$14,$15,$16,
			$17,$18,$19,$20,$21,
			$22,$23,$24,$25,
			NOW(),NOW(),1
		)`,
		o.ID, o.UserID, string(o.Status),
		o.SubtotalCents, o.CouponDiscountCents, o.PointsDiscountCents, o.TotalCents, o.Currency,
		o.CouponID, o.CouponCode, o.PointsRedeemed, o.PointsEarned,
		string(o.PaymentProvider), o.ProviderOrderID, o.ProviderPaymentID, o.ProviderTransactionID,
		o.ChargeAmountCents, o.ChargeCurrency, o.FXRate, o.CheckoutURL, o.FailureReason,
		shipping, o.FlaggedForReview, o.PaidAt, o.ExpiresAt,
	)
	if err != nil {
		return err
	}

	for i := range o.Items {
		it := &o.Items[i]
		if it.ID == uuid.Nil {
			it.ID = uuid.New()
		}
		it.OrderID = o.ID
		if _, err := db.Exec(ctx, `
			INSERT INTO order_items (id, order_id, item_type, item_id, name, unit_price_cents, quantity, stock_deducted)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			it.ID, it.OrderID, string(it.ItemType), it.ItemID, it.Name, it.UnitPriceCents, it.Quantity, it.StockDeducted,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	o.RowVersion = 1
	return nil
}

func (r *orderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	o, err := r.BaseVersionedRepo.GetByID(ctx, id.String())
	if err != nil || o == nil {
		return o, err
	}
	return o, r.loadItems(ctx, o)
}

func (r *orderRepo) GetByProviderOrderID(ctx context.Context, provider models.PaymentProvider, providerOrderID string) (*models.Order, error) {
	return r.getOne(ctx, " WHERE payment_provider=$1 AND provider_order_id=$2", string(provider), providerOrderID)
}

func (r *orderRepo) GetByProviderPaymentID(ctx context.Context, provider models.PaymentProvider, providerPaymentID string) (*models.Order, error) {
	return r.getOne(ctx, " WHERE payment_provider=$1 AND provider_payment_id=$2", string(provider), providerPaymentID)
}

func (r *orderRepo) getOne(ctx context.Context, where string, args ...any) (*models.Order, error) {
	o, err := scanOrder(conn(ctx, r.db).QueryRow(ctx, baseSelectOrder()+where+" ORDER BY created_at DESC LIMIT 1", args...))
	if err != nil || o == nil {
		return o, err
	}
	return o, r.loadItems(ctx, o)
}

func (r *orderRepo) List(ctx context.Context, f OrderFilter) ([]*models.Order, error) {
	q := baseSelectOrder() + " WHERE ($1::uuid IS NULL OR user_id=$1) AND ($2 = '' OR status=$2) ORDER BY created_at DESC"
	args := []any{f.UserID, string(f.Status)}
	q, args = appendPaging(q, args, f.Limit, f.Offset)
	return r.queryOrders(ctx, q, args...)
}

func (r *orderRepo) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]*models.Order, error) {
	return r.queryOrders(ctx,
		baseSelectOrder()+" WHERE status='PENDING' AND expires_at <= $1 ORDER BY expires_at ASC LIMIT $2",
		now, limit)
}

func (r *orderRepo) queryOrders(ctx context.Context, q string, args ...any) ([]*models.Order, error) {
	rows, err := conn(ctx, r.db).Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	var out []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, o := range out {
		if err := r.loadItems(ctx, o); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *orderRepo) loadItems(ctx context.Context, o *models.Order) error {
	rows, err := conn(ctx, r.db).Query(ctx, `
		SELECT id, order_id, item_type, item_id, name, unit_price_cents, quantity, stock_deducted
		FROM order_items WHERE order_id=$1 ORDER BY name ASC`, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	o.Items = o.Items[:0]
	for rows.Next() {
		var it models.OrderItem
		var itemType string
		if err := rows.Scan(&it.ID, &it.OrderID, &itemType, &it.ItemID, &it.Name, &it.UnitPriceCents, &it.Quantity, &it.StockDeducted); err != nil {
			return err
		}
		it.ItemType = models.ItemType(itemType)
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

func (r *orderRepo) UpdateIfVersion(ctx context.Context, o *models.Order, expected int64) (pgconn.CommandTag, error) {
	shipping, err := marshalShipping(o.Shipping)
	if err != nil {
		return nil, err
	}
	return conn(ctx, r.db).Exec(ctx, `
		UPDATE orders SET
			status=$1, points_earned=$2,
			provider_order_id=$3, provider_payment_id=$4, provider_transaction_id=$5,
			charge_amount_cents=$6, charge_currency=$7, fx_rate=$8,
			checkout_url=$9, failure_reason=$10, shipping=$11, flagged_for_review=$12,
			paid_at=$13, expires_at=$14,
			updated_at=NOW(), row_version=row_version+1
		WHERE id=$15 AND row_version=$16`,
		string(o.Status), o.PointsEarned,
		o.ProviderOrderID, o.ProviderPaymentID, o.ProviderTransactionID,
		o.ChargeAmountCents, o.ChargeCurrency, o.FXRate,
		o.CheckoutURL, o.FailureReason, shipping, o.FlaggedForReview,
		o.PaidAt, o.ExpiresAt,
		o.ID, expected,
	)
}

func (r *orderRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Order) error) error {
	return r.BaseVersionedRepo.UpdateWithRetry(ctx, id.String(), mutate, r.UpdateIfVersion)
}

func (r *orderRepo) SetItemStockDeducted(ctx context.Context, itemID uuid.UUID, deducted bool) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `UPDATE order_items SET stock_deducted=$2 WHERE id=$1`, itemID, deducted)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order item %s: %w", itemID, pgx.ErrNoRows)
	}
	return nil
}

func (r *orderRepo) StatusCounts(ctx context.Context) (map[models.OrderStatus]int64, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[models.OrderStatus]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[models.OrderStatus(status)] = n
	}
	return out, rows.Err()
}

func (r *orderRepo) RevenueSince(ctx context.Context, since time.Time) (int64, int64, error) {
	var revenue, n int64
	err := conn(ctx, r.db).QueryRow(ctx, `
		SELECT COALESCE(SUM(total_cents), 0), COUNT(*)
		FROM orders WHERE status='PAID' AND paid_at >= $1`, since,
	).Scan(&revenue, &n)
	return revenue, n, err
}

func baseSelectOrder() string {
	return `
		SELECT id, user_id, status,
		       subtotal_cents, coupon_discount_cents, points_discount_cents, total_cents, currency,
		       coupon_id, coupon_code, points_redeemed, points_earned,
		       payment_provider, provider_order_id, provider_payment_id, provider_transaction_id,
		       charge_amount_cents, charge_currency, fx_rate, checkout_url, failure_reason,
		       shipping, flagged_for_review, paid_at, expires_at,
		       row_version, created_at, updated_at
		FROM orders`
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	var o models.Order
	var status, provider string
	var shipping []byte
	var paidAt pgtype.Timestamptz

	err := row.Scan(
		&o.ID, &o.UserID, &status,
		&o.SubtotalCents, &o.CouponDiscountCents, &o.PointsDiscountCents, &o.TotalCents, &o.Currency,
		&o.CouponID, &o.CouponCode, &o.PointsRedeemed, &o.PointsEarned,
		&provider, &o.ProviderOrderID, &o.ProviderPaymentID, &o.ProviderTransactionID,
		&o.ChargeAmountCents, &o.ChargeCurrency, &o.FXRate, &o.CheckoutURL, &o.FailureReason,
		&shipping, &o.FlaggedForReview, &paidAt, &o.ExpiresAt,
		&o.RowVersion, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	o.Status = models.OrderStatus(status)
	o.PaymentProvider = models.PaymentProvider(provider)
	if paidAt.Status == pgtype.Present {
		o.PaidAt = &paidAt.Time
	}

	if len(shipping) > 0 {
		var s models.ShippingDetails
		if err := json.Unmarshal(shipping, &s); err != nil {
			return nil, fmt.Errorf("decode shipping: %w", err)
		}
		o.Shipping = &s
	}
	return &o, nil
}

func marshalShipping(s *models.ShippingDetails) (any, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
