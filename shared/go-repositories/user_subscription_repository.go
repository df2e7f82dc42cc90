package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
)

type UserSubscriptionRepository interface {
	Create(ctx context.Context, s *models.UserSubscription) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.UserSubscription, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.UserSubscription, error)
	// LatestActiveEnd returns the furthest ends_at of the user's active
	// subscriptions to plan, or nil if there are none.
	LatestActiveEnd(ctx context.Context, userID, planID uuid.UUID) (*time.Time, error)
	CancelByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
	UpdateIfVersion(ctx context.Context, s *models.UserSubscription, expected int64) (pgconn.CommandTag, error)
	UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.UserSubscription) error) error
}

type userSubscriptionRepo struct {
	*BaseVersionedRepo[*models.UserSubscription]
	db DB
}

func NewUserSubscriptionRepository(db DB) UserSubscriptionRepository {
	r := &userSubscriptionRepo{db: db}
	r.BaseVersionedRepo = NewBaseRepo(db, baseSelectUserSubscription()+" WHERE id=$1", scanUserSubscription)
	return r
}

func (r *userSubscriptionRepo) Create(ctx context.Context, s *models.UserSubscription) error {
	_, err := conn(ctx, r.db).Exec(ctx, `
		INSERT INTO user_subscriptions (
			id, user_id, plan_id, order_id, status, starts_at, ends_at,
			created_at, updated_at, row_version
		) VALUES ($1,$2,$3,$4,$5,$6,$7,NOW(),NOW(),1)`,
		s.ID, s.UserID, s.PlanID, s.OrderID, string(s.Status), s.StartsAt, s.EndsAt,
	)
	return err
}

func (r *userSubscriptionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.UserSubscription, error) {
	return r.BaseVersionedRepo.GetByID(ctx, id.String())
}

func (r *userSubscriptionRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.UserSubscription, error) {
	rows, err := conn(ctx, r.db).Query(ctx,
		baseSelectUserSubscription()+" WHERE user_id=$1 ORDER BY ends_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.UserSubscription
	for rows.Next() {
		s, err := scanUserSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *userSubscriptionRepo) LatestActiveEnd(ctx context.Context, userID, planID uuid.UUID) (*time.Time, error) {
	var end *time.Time
	err := conn(ctx, r.db).QueryRow(ctx, `
		SELECT MAX(ends_at) FROM user_subscriptions
		WHERE user_id=$1 AND plan_id=$2 AND status='ACTIVE'`,
		userID, planID,
	).Scan(&end)
	return end, err
}

func (r *userSubscriptionRepo) CancelByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	tag, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE user_subscriptions SET
			status='CANCELLED', updated_at=NOW(), row_version=row_version+1
		WHERE order_id=$1 AND status='ACTIVE'`, orderID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *userSubscriptionRepo) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	tag, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE user_subscriptions SET
			status='EXPIRED', updated_at=NOW(), row_version=row_version+1
		WHERE status='ACTIVE' AND ends_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *userSubscriptionRepo) UpdateIfVersion(ctx context.Context, s *models.UserSubscription, expected int64) (pgconn.CommandTag, error) {
	return conn(ctx, r.db).Exec(ctx, `
		UPDATE user_subscriptions SET
			status=$1, starts_at=$2, ends_at=$3,
			updated_at=NOW(), row_version=row_version+1
		WHERE id=$4 AND row_version=$5`,
		string(s.Status), s.StartsAt, s.EndsAt, s.ID, expected,
	)
}

func (r *userSubscriptionRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.UserSubscription) error) error {
	return r.BaseVersionedRepo.UpdateWithRetry(ctx, id.String(), mutate, r.UpdateIfVersion)
}

func baseSelectUserSubscription() string {
	return `
		SELECT id, user_id, plan_id, order_id, status, starts_at, ends_at,
		       row_version, created_at, updated_at
		FROM user_subscriptions`
}

func scanUserSubscription(row pgx.Row) (*models.UserSubscription, error) {
	var s models.UserSubscription
	var status string
	err := row.Scan(
		&s.ID, &s.UserID, &s.PlanID, &s.OrderID, &status, &s.StartsAt, &s.EndsAt,
		&s.RowVersion, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.Status = models.SubscriptionStatus(status)
	return &s, nil
}
