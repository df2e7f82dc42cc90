package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
)

type CartRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.CartItem, error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (*models.CartItem, error)
	Find(ctx context.Context, userID uuid.UUID, itemType models.ItemType, itemID uuid.UUID) (*models.CartItem, error)
	// Upsert inserts the line or, if the user already has it, replaces its quantity.
	Upsert(ctx context.Context, item *models.CartItem) error
	UpdateQuantity(ctx context.Context, userID, id uuid.UUID, qty int) (bool, error)
	Remove(ctx context.Context, userID, id uuid.UUID) (bool, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type cartRepo struct {
	db DB
}

func NewCartRepository(db DB) CartRepository {
	return &cartRepo{db: db}
}

const selectCartItem = `
	SELECT id, user_id, item_type, item_id, quantity, created_at, updated_at
	FROM cart_items`

func (r *cartRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.CartItem, error) {
	rows, err := conn(ctx, r.db).Query(ctx, selectCartItem+" WHERE user_id=$1 ORDER BY created_at ASC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.CartItem
	for rows.Next() {
		it, err := scanCartItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *cartRepo) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.CartItem, error) {
	return scanCartItem(conn(ctx, r.db).QueryRow(ctx, selectCartItem+" WHERE id=$1 AND user_id=$2", id, userID))
}

func (r *cartRepo) Find(ctx context.Context, userID uuid.UUID, itemType models.ItemType, itemID uuid.UUID) (*models.CartItem, error) {
	return scanCartItem(conn(ctx, r.db).QueryRow(ctx,
		selectCartItem+" WHERE user_id=$1 AND item_type=$2 AND item_id=$3",
		userID, string(itemType), itemID))
}

func (r *cartRepo) Upsert(ctx context.Context, it *models.CartItem) error {
	return conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO cart_items (id, user_id, item_type, item_id, quantity, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,NOW(),NOW())
		ON CONFLICT (user_id, item_type, item_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = NOW()
		RETURNING id, created_at, updated_at`,
		it.ID, it.UserID, string(it.ItemType), it.ItemID, it.Quantity,
	).Scan(&it.ID, &it.CreatedAt, &it.UpdatedAt)
}

func (r *cartRepo) UpdateQuantity(ctx context.Context, userID, id uuid.UUID, qty int) (bool, error) {
	tag, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE cart_items SET quantity=$1, updated_at=NOW() WHERE id=$2 AND user_id=$3`,
		qty, id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *cartRepo) Remove(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	tag, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM cart_items WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *cartRepo) Clear(ctx context.Context, userID uuid.UUID) error {
	_, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1`, userID)
	return err
}

func scanCartItem(row pgx.Row) (*models.CartItem, error) {
	var it models.CartItem
	var itemType string
	err := row.Scan(&it.ID, &it.UserID, &itemType, &it.ItemID, &it.Quantity, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	it.ItemType = models.ItemType(itemType)
	return &it, nil
}
