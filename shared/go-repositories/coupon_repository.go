package repositories

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
)

type CouponRepository interface {
	Create(ctx context.Context, c *models.Coupon) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	List(ctx context.Context, includeInactive bool) ([]*models.Coupon, error)
	UpdateIfVersion(ctx context.Context, c *models.Coupon, expected int64) (pgconn.CommandTag, error)
	UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Coupon) error) error

	CountUserRedemptions(ctx context.Context, couponID, userID uuid.UUID) (int, error)
	// Redeem increments used_count (respecting usage_limit) and records the
	// redemption for the order. Fails with ErrCouponExhausted at the limit.
	Redeem(ctx context.Context, red *models.CouponRedemption) error
}

type couponRepo struct {
	*BaseVersionedRepo[*models.Coupon]
	db DB
}

func NewCouponRepository(db DB) CouponRepository {
	r := &couponRepo{db: db}
	r.BaseVersionedRepo = NewBaseRepo(db, baseSelectCoupon()+" WHERE id=$1", scanCoupon)
	return r
}

// NormalizeCouponCode is applied on every write and lookup.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (r *couponRepo) Create(ctx context.Context, c *models.Coupon) error {
	c.Code = NormalizeCouponCode(c.Code)
	_, err := conn(ctx, r.db).Exec(ctx, `
		INSERT INTO coupons (
			id, code, discount_type, discount_value, max_discount_cents, min_order_cents,
			usage_limit, used_count, per_user_limit, starts_at, expires_at, is_active,
			created_at, updated_at, row_version
		) VALUES ($1,$2,$3,$4,$5,$6,$7,0,$8,$9,$10,$11,NOW(),NOW(),1)`,
		c.ID, c.Code, string(c.DiscountType), c.DiscountValue, c.MaxDiscountCents, c.MinOrderCents,
		c.UsageLimit, c.PerUserLimit, c.StartsAt, c.ExpiresAt, c.IsActive,
	)
	return err
}

func (r *couponRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	return r.BaseVersionedRepo.GetByID(ctx, id.String())
}

func (r *couponRepo) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	return scanCoupon(conn(ctx, r.db).QueryRow(ctx, baseSelectCoupon()+" WHERE code=$1", NormalizeCouponCode(code)))
}

func (r *couponRepo) List(ctx context.Context, includeInactive bool) ([]*models.Coupon, error) {
	rows, err := conn(ctx, r.db).Query(ctx,
		baseSelectCoupon()+" WHERE ($1 OR is_active) ORDER BY created_at DESC", includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateIfVersion leaves used_count alone; only Redeem moves it.
func (r *couponRepo) UpdateIfVersion(ctx context.Context, c *models.Coupon, expected int64) (pgconn.CommandTag, error) {
	c.Code = NormalizeCouponCode(c.Code)
	return conn(ctx, r.db).Exec(ctx, `
		UPDATE coupons SET
			code=$1, discount_type=$2, discount_value=$3, max_discount_cents=$4, min_order_cents=$5,
			usage_limit=$6, per_user_limit=$7, starts_at=$8, expires_at=$9, is_active=$10,
			updated_at=NOW(), row_version=row_version+1
		WHERE id=$11 AND row_version=$12`,
		c.Code, string(c.DiscountType), c.DiscountValue, c.MaxDiscountCents, c.MinOrderCents,
		c.UsageLimit, c.PerUserLimit, c.StartsAt, c.ExpiresAt, c.IsActive,
		c.ID, expected,
	)
}

func (r *couponRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Coupon) error) error {
	return r.BaseVersionedRepo.UpdateWithRetry(ctx, id.String(), mutate, r.UpdateIfVersion)
}

func (r *couponRepo) CountUserRedemptions(ctx context.Context, couponID, userID uuid.UUID) (int, error) {
	var n int
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT COUNT(*) FROM coupon_redemptions WHERE coupon_id=$1 AND user_id=$2`,
		couponID, userID,
	).Scan(&n)
	return n, err
}

func (r *couponRepo) Redeem(ctx context.Context, red *models.CouponRedemption) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE coupons SET
			used_count = used_count + 1, updated_at=NOW(), row_version=row_version+1
		WHERE id=$1 AND (usage_limit IS NULL OR used_count < usage_limit)`,
		red.CouponID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCouponExhausted
	}

	_, err = conn(ctx, r.db).Exec(ctx, `
		INSERT INTO coupon_redemptions (id, coupon_id, user_id, order_id, created_at)
		VALUES ($1,$2,$3,$4,NOW())`,
		red.ID, red.CouponID, red.UserID, red.OrderID,
	)
	return err
}

func baseSelectCoupon() string {
	return `
		SELECT id, code, discount_type, discount_value, max_discount_cents, min_order_cents,
		       usage_limit, used_count, per_user_limit, starts_at, expires_at, is_active,
		       row_version, created_at, updated_at
		FROM coupons`
}

func scanCoupon(row pgx.Row) (*models.Coupon, error) {
	var c models.Coupon
	var dt string
	err := row.Scan(
		&c.ID, &c.Code, &dt, &c.DiscountValue, &c.MaxDiscountCents, &c.MinOrderCents,
		&c.UsageLimit, &c.UsedCount, &c.PerUserLimit, &c.StartsAt, &c.ExpiresAt, &c.IsActive,
		&c.RowVersion, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	c.DiscountType = models.DiscountType(dt)
	return &c, nil
}
