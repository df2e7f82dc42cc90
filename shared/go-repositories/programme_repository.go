package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
)

type ProgrammeRepository interface {
	Create(ctx context.Context, p *models.Programme) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Programme, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Programme, error)
	List(ctx context.Context, level string, includeInactive bool) ([]*models.Programme, error)
	UpdateIfVersion(ctx context.Context, p *models.Programme, expected int64) (pgconn.CommandTag, error)
	UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Programme) error) error

	GrantToUser(ctx context.Context, grant *models.UserProgramme) error
	RevokeForOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
	UserOwns(ctx context.Context, userID, programmeID uuid.UUID) (bool, error)
	ListOwnedByUser(ctx context.Context, userID uuid.UUID) ([]*models.Programme, error)
}

type programmeRepo struct {
	*BaseVersionedRepo[*models.Programme]
	db DB
}

func NewProgrammeRepository(db DB) ProgrammeRepository {
	r := &programmeRepo{db: db}
	r.BaseVersionedRepo = NewBaseRepo(db, baseSelectProgramme()+" WHERE p.id=$1", scanProgramme)
	return r
}

func (r *programmeRepo) Create(ctx context.Context, p *models.Programme) error {
	_, err := conn(ctx, r.db).Exec(ctx, `
		INSERT INTO programmes (
			id, title, description, level, duration_weeks, price_cents, image_url, is_active,
			created_at, updated_at, row_version
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW(),NOW(),1)`,
		p.ID, p.Title, p.Description, string(p.Level), p.DurationWeeks, p.PriceCents, p.ImageURL, p.IsActive,
	)
	return err
}

func (r *programmeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Programme, error) {
	return r.BaseVersionedRepo.GetByID(ctx, id.String())
}

func (r *programmeRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Programme, error) {
	out := make(map[uuid.UUID]*models.Programme, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := conn(ctx, r.db).Query(ctx, baseSelectProgramme()+" WHERE p.id = ANY($1)", uuidStrings(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProgramme(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (r *programmeRepo) List(ctx context.Context, level string, includeInactive bool) ([]*models.Programme, error) {
	q := baseSelectProgramme() + " WHERE ($1 = '' OR p.level = $1) AND ($2 OR p.is_active) ORDER BY p.created_at DESC"
	rows, err := conn(ctx, r.db).Query(ctx, q, level, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProgrammes(rows)
}

func (r *programmeRepo) UpdateIfVersion(ctx context.Context, p *models.Programme, expected int64) (pgconn.CommandTag, error) {
	return conn(ctx, r.db).Exec(ctx, `
		UPDATE programmes SET
			title=$1, description=$2, level=$3, duration_weeks=$4, price_cents=$5,
			image_url=$6, is_active=$7,
			updated_at=NOW(), row_version=row_version+1
		WHERE id=$8 AND row_version=$9`,
		p.Title, p.Description, string(p.Level), p.DurationWeeks, p.PriceCents,
		p.ImageURL, p.IsActive,
		p.ID, expected,
	)
}

func (r *programmeRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Programme) error) error {
	return r.BaseVersionedRepo.UpdateWithRetry(ctx, id.String(), mutate, r.UpdateIfVersion)
}

// GrantToUser is idempotent per (user, programme).
func (r *programmeRepo) GrantToUser(ctx context.Context, g *models.UserProgramme) error {
	_, err := conn(ctx, r.db).Exec(ctx, `
		INSERT INTO user_programmes (user_id, programme_id, order_id, granted_at)
		VALUES ($1,$2,$3,NOW())
		ON CONFLICT (user_id, programme_id) DO NOTHING`,
		g.UserID, g.ProgrammeID, g.OrderID,
	)
	return err
}

func (r *programmeRepo) RevokeForOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	tag, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM user_programmes WHERE order_id=$1`, orderID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *programmeRepo) UserOwns(ctx context.Context, userID, programmeID uuid.UUID) (bool, error) {
	var owned bool
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_programmes WHERE user_id=$1 AND programme_id=$2)`,
		userID, programmeID,
	).Scan(&owned)
	return owned, err
}

func (r *programmeRepo) ListOwnedByUser(ctx context.Context, userID uuid.UUID) ([]*models.Programme, error) {
	q := baseSelectProgramme() + `
		JOIN user_programmes up ON up.programme_id = p.id
		WHERE up.user_id=$1
		ORDER BY up.granted_at DESC`
	rows, err := conn(ctx, r.db).Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProgrammes(rows)
}

func baseSelectProgramme() string {
	return `
		SELECT p.id, p.title, p.description, p.level, p.duration_weeks,
		       p.price_cents, p.image_url, p.is_active,
		       p.row_version, p.created_at, p.updated_at
		FROM programmes p`
}

func scanProgramme(row pgx.Row) (*models.Programme, error) {
	var p models.Programme
	var level string
	err := row.Scan(
		&p.ID, &p.Title, &p.Description, &level, &p.DurationWeeks,
		&p.PriceCents, &p.ImageURL, &p.IsActive,
		&p.RowVersion, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p.Level = models.ProgrammeLevel(level)
	return &p, nil
}

func collectProgrammes(rows pgx.Rows) ([]*models.Programme, error) {
	var out []*models.Programme
	for rows.Next() {
		p, err := scanProgramme(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
