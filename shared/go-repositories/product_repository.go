package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
)

// ProductFilter narrows List. Zero values mean "no filter".
type ProductFilter struct {
	Category        string
	Search          string
	IncludeInactive bool
	Limit           int
	Offset          int
}

type ProductRepository interface {
	Create(ctx context.Context, p *models.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error)
	List(ctx context.Context, f ProductFilter) ([]*models.Product, error)
	ListLowStock(ctx context.Context, threshold int) ([]*models.Product, error)
	UpdateIfVersion(ctx context.Context, p *models.Product, expected int64) (pgconn.CommandTag, error)
	UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Product) error) error

	// AdjustStock adds delta to stock and returns the new level. A change
	// that would go below zero fails with ErrInsufficientStock.
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) (int, error)
}

type productRepo struct {
	*BaseVersionedRepo[*models.Product]
	db DB
}

func NewProductRepository(db DB) ProductRepository {
	r := &productRepo{db: db}
	r.BaseVersionedRepo = NewBaseRepo(db, baseSelectProduct()+" WHERE id=$1", scanProduct)
	return r
}

func (r *productRepo) Create(ctx context.Context, p *models.Product) error {
	_, err := conn(ctx, r.db).Exec(ctx, `
		INSERT INTO products (
			id, name, description, category, price_cents, stock, image_url, is_active,
			created_at, updated_at, row_version
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW(),NOW(),1)`,
		p.ID, p.Name, p.Description, p.Category, p.PriceCents, p.Stock, p.ImageURL, p.IsActive,
	)
	return err
}

func (r *productRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return r.BaseVersionedRepo.GetByID(ctx, id.String())
}

func (r *productRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	out := make(map[uuid.UUID]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := conn(ctx, r.db).Query(ctx, baseSelectProduct()+" WHERE id = ANY($1)", uuidStrings(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (r *productRepo) List(ctx context.Context, f ProductFilter) ([]*models.Product, error) {
	var (
		where []string
		args  []any
	)
	if !f.IncludeInactive {
		where = append(where, "is_active")
	}
	if f.Category != "" {
		args = append(args, f.Category)
		where = append(where, fmt.Sprintf("category=$%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}

	q := baseSelectProduct()
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC"
	q, args = appendPaging(q, args, f.Limit, f.Offset)

	rows, err := conn(ctx, r.db).Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

func (r *productRepo) ListLowStock(ctx context.Context, threshold int) ([]*models.Product, error) {
	rows, err := conn(ctx, r.db).Query(ctx,
		baseSelectProduct()+" WHERE is_active AND stock <= $1 ORDER BY stock ASC, name ASC", threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

func (r *productRepo) UpdateIfVersion(ctx context.Context, p *models.Product, expected int64) (pgconn.CommandTag, error) {
	return conn(ctx, r.db).Exec(ctx, `
		UPDATE products SET
			name=$1, description=$2, category=$3, price_cents=$4, stock=$5,
			image_url=$6, is_active=$7,
			updated_at=NOW(), row_version=row_version+1
		WHERE id=$8 AND row_version=$9`,
		p.Name, p.Description, p.Category, p.PriceCents, p.Stock,
		p.ImageURL, p.IsActive,
		p.ID, expected,
	)
}

func (r *productRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Product) error) error {
	return r.BaseVersionedRepo.UpdateWithRetry(ctx, id.String(), mutate, r.UpdateIfVersion)
}

func (r *productRepo) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	var stock int
	err := conn(ctx, r.db).QueryRow(ctx, `
		UPDATE products SET
			stock = stock + $2, updated_at=NOW(), row_version=row_version+1
		WHERE id=$1 AND stock + $2 >= 0
		RETURNING stock`,
		id, delta,
	).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrInsufficientStock
	}
	return stock, err
}

func baseSelectProduct() string {
	return `
		SELECT id, name, description, category, price_cents, stock, image_url, is_active,
		       row_version, created_at, updated_at
		FROM products`
}

func scanProduct(row pgx.Row) (*models.Product, error) {
	var p models.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Category, &p.PriceCents, &p.Stock, &p.ImageURL, &p.IsActive,
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

func collectProducts(rows pgx.Rows) ([]*models.Product, error) {
	var out []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// appendPaging adds LIMIT/OFFSET placeholders when limit > 0.
func appendPaging(q string, args []any, limit, offset int) (string, []any) {
	if limit <= 0 {
		return q, args
	}
	args = append(args, limit)
	q += fmt.Sprintf(" LIMIT $%d", len(args))
	if offset > 0 {
		args = append(args, offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return q, args
}
