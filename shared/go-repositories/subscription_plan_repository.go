package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
)

type SubscriptionPlanRepository interface {
	Create(ctx context.Context, p *models.SubscriptionPlan) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error)
	List(ctx context.Context, includeInactive bool) ([]*models.SubscriptionPlan, error)
	UpdateIfVersion(ctx context.Context, p *models.SubscriptionPlan, expected int64) (pgconn.CommandTag, error)
	UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.SubscriptionPlan) error) error
}

type subscriptionPlanRepo struct {
	*BaseVersionedRepo[*models.SubscriptionPlan]
	db DB
}

func NewSubscriptionPlanRepository(db DB) SubscriptionPlanRepository {
	r := &subscriptionPlanRepo{db: db}
	r.BaseVersionedRepo = NewBaseRepo(db, baseSelectPlan()+" WHERE id=$1", scanPlan)
	return r
}

func (r *subscriptionPlanRepo) Create(ctx context.Context, p *models.SubscriptionPlan) error {
	if p.Features == nil {
		p.Features = []string{}
	}
	_, err := conn(ctx, r.db).Exec(ctx, `
		INSERT INTO subscription_plans (
			id, name, description, duration_days, price_cents, features, is_active,
			created_at, updated_at, row_version
		) VALUES ($1,$2,$3,$4,$5,$6,$7,NOW(),NOW(),1)`,
		p.ID, p.Name, p.Description, p.DurationDays, p.PriceCents, p.Features, p.IsActive,
	)
	return err
}

func (r *subscriptionPlanRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error) {
	return r.BaseVersionedRepo.GetByID(ctx, id.String())
}

func (r *subscriptionPlanRepo) List(ctx context.Context, includeInactive bool) ([]*models.SubscriptionPlan, error) {
	rows, err := conn(ctx, r.db).Query(ctx,
		baseSelectPlan()+" WHERE ($1 OR is_active) ORDER BY price_cents ASC", includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.SubscriptionPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *subscriptionPlanRepo) UpdateIfVersion(ctx context.Context, p *models.SubscriptionPlan, expected int64) (pgconn.CommandTag, error) {
	if p.Features == nil {
		p.Features = []string{}
	}
	return conn(ctx, r.db).Exec(ctx, `
		UPDATE subscription_plans SET
			name=$1, description=$2, duration_days=$3, price_cents=$4, features=$5, is_active=$6,
			updated_at=NOW(), row_version=row_version+1
		WHERE id=$7 AND row_version=$8`,
		p.Name, p.Description, p.DurationDays, p.PriceCents, p.Features, p.IsActive,
		p.ID, expected,
	)
}

func (r *subscriptionPlanRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.SubscriptionPlan) error) error {
	return r.BaseVersionedRepo.UpdateWithRetry(ctx, id.String(), mutate, r.UpdateIfVersion)
}

func baseSelectPlan() string {
	return `
		SELECT id, name, description, duration_days, price_cents, features, is_active,
		       row_version, created_at, updated_at
		FROM subscription_plans`
}

func scanPlan(row pgx.Row) (*models.SubscriptionPlan, error) {
	var p models.SubscriptionPlan
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.DurationDays, &p.PriceCents, &p.Features, &p.IsActive,
		&p.RowVersion, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}
