package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

// TokenRepository stores refresh tokens by SHA-256 hash only.
type TokenRepository interface {
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	GetRefreshToken(ctx context.Context, raw string) (*models.RefreshToken, error)
	RemoveRefreshToken(ctx context.Context, id uuid.UUID) error
	RemoveAllForUser(ctx context.Context, userID uuid.UUID) error
	DeleteExpiredOrRevoked(ctx context.Context) (int64, error)
}

type tokenRepo struct {
	db DB
}

func NewTokenRepository(db DB) TokenRepository {
	return &tokenRepo{db: db}
}

func (r *tokenRepo) CreateRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	if t.TokenHash == "" {
		t.TokenHash = utils.HashToken(t.Token)
	}
	_, err := conn(ctx, r.db).Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked, created_at)
		VALUES ($1,$2,$3,$4,$5,NOW())`,
		t.ID, t.UserID, t.TokenHash, t.ExpiresAt, t.Revoked,
	)
	return err
}

func (r *tokenRepo) GetRefreshToken(ctx context.Context, raw string) (*models.RefreshToken, error) {
	var t models.RefreshToken
	err := conn(ctx, r.db).QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, revoked, created_at
		FROM refresh_tokens WHERE token_hash=$1`,
		utils.HashToken(raw),
	).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.Revoked, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *tokenRepo) RemoveRefreshToken(ctx context.Context, id uuid.UUID) error {
	_, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM refresh_tokens WHERE id=$1`, id)
	return err
}

func (r *tokenRepo) RemoveAllForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id=$1`, userID)
	return err
}

func (r *tokenRepo) DeleteExpiredOrRevoked(ctx context.Context) (int64, error) {
	tag, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < NOW() OR revoked`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
