package repositories

import (
	"context"

	"github.com/google/uuid"

	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
)

// LoyaltyRepository is the append-only points ledger.
type LoyaltyRepository interface {
	Create(ctx context.Context, t *models.LoyaltyTransaction) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.LoyaltyTransaction, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*models.LoyaltyTransaction, error)
}

type loyaltyRepo struct {
	db DB
}

func NewLoyaltyRepository(db DB) LoyaltyRepository {
	return &loyaltyRepo{db: db}
}

func (r *loyaltyRepo) Create(ctx context.Context, t *models.LoyaltyTransaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO loyalty_transactions (id, user_id, order_id, type, points, balance_after, note, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
		RETURNING created_at`,
		t.ID, t.UserID, t.OrderID, string(t.Type), t.Points, t.BalanceAfter, t.Note,
	).Scan(&t.CreatedAt)
}

const selectLoyalty = `
	SELECT id, user_id, order_id, type, points, balance_after, note, created_at
	FROM loyalty_transactions`

func (r *loyaltyRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.LoyaltyTransaction, error) {
	q, args := appendPaging(selectLoyalty+" WHERE user_id=$1 ORDER BY created_at DESC", []any{userID}, limit, 0)
	return r.query(ctx, q, args...)
}

func (r *loyaltyRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*models.LoyaltyTransaction, error) {
	return r.query(ctx, selectLoyalty+" WHERE order_id=$1 ORDER BY created_at ASC", orderID)
}

func (r *loyaltyRepo) query(ctx context.Context, q string, args ...any) ([]*models.LoyaltyTransaction, error) {
	rows, err := conn(ctx, r.db).Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.LoyaltyTransaction
	for rows.Next() {
		var t models.LoyaltyTransaction
		var typ string
		if err := rows.Scan(&t.ID, &t.UserID, &t.OrderID, &typ, &t.Points, &t.BalanceAfter, &t.Note, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Type = models.LoyaltyTxnType(typ)
		out = append(out, &t)
	}
	return out, rows.Err()
}
