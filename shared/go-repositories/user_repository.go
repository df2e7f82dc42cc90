package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateIfVersion(ctx context.Context, user *models.User, expected int64) (pgconn.CommandTag, error)
	UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.User) error) error

	// AddLoyaltyPoints applies delta to the balance. With clampAtZero the
	// balance floors at zero and applied may be smaller than delta; without
	// it a debit larger than the balance fails with ErrInsufficientPoints.
	AddLoyaltyPoints(ctx context.Context, id uuid.UUID, delta int64, clampAtZero bool) (applied, balance int64, err error)
}

type userRepo struct {
	*BaseVersionedRepo[*models.User]
	db     DB
	encKey []byte
}

// NewUserRepository takes the 32-byte key used to encrypt admin TOTP secrets.
func NewUserRepository(db DB, encKey []byte) UserRepository {
	r := &userRepo{db: db, encKey: encKey}
	r.BaseVersionedRepo = NewBaseRepo(db, baseSelectUser()+" WHERE id=$1", r.scanUser)
	return r
}

func (r *userRepo) Create(ctx context.Context, u *models.User) error {
	encTOTP, err := r.encryptTOTP(u.TOTPSecret)
	if err != nil {
		return err
	}
	_, err = conn(ctx, r.db).Exec(ctx, `
		INSERT INTO users (
			id, email, password_hash, first_name, last_name, phone_number,
			role, loyalty_points, totp_secret,
			created_at, updated_at, row_version
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW(),NOW(),1)`,
		u.ID, utils.NormalizeEmail(u.Email), u.PasswordHash, u.FirstName, u.LastName, u.PhoneNumber,
		string(u.Role), u.LoyaltyPoints, encTOTP,
	)
	return err
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.BaseVersionedRepo.GetByID(ctx, id.String())
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := conn(ctx, r.db).QueryRow(ctx, baseSelectUser()+" WHERE email=$1", utils.NormalizeEmail(email))
	return r.scanUser(row)
}

// UpdateIfVersion never touches loyalty_points; balance changes go through
// AddLoyaltyPoints so concurrent debits cannot be lost.
func (r *userRepo) UpdateIfVersion(ctx context.Context, u *models.User, expected int64) (pgconn.CommandTag, error) {
	encTOTP, err := r.encryptTOTP(u.TOTPSecret)
	if err != nil {
		return nil, err
	}
	return conn(ctx, r.db).Exec(ctx, `
		UPDATE users SET
			email=$1, password_hash=$2, first_name=$3, last_name=$4, phone_number=$5,
			role=$6, totp_secret=$7, failed_login_attempts=$8, locked_until=$9,
			updated_at=NOW(), row_version=row_version+1
		WHERE id=$10 AND row_version=$11`,
		utils.NormalizeEmail(u.Email), u.PasswordHash, u.FirstName, u.LastName, u.PhoneNumber,
		string(u.Role), encTOTP, u.FailedLoginAttempts, u.LockedUntil,
		u.ID, expected,
	)
}

func (r *userRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.User) error) error {
	return r.BaseVersionedRepo.UpdateWithRetry(ctx, id.String(), mutate, r.UpdateIfVersion)
}

func (r *userRepo) AddLoyaltyPoints(ctx context.Context, id uuid.UUID, delta int64, clampAtZero bool) (int64, int64, error) {
	q := `
		WITH old AS (SELECT loyalty_points FROM users WHERE id=$1 FOR UPDATE)
		UPDATE users u SET
			loyalty_points = GREATEST(u.loyalty_points + $2, 0),
			updated_at=NOW(), row_version=u.row_version+1
		FROM old
		WHERE u.id=$1`
	if !clampAtZero {
		q += ` AND u.loyalty_points + $2 >= 0`
	}
	q += ` RETURNING old.loyalty_points, u.loyalty_points`

	var before, after int64
	err := conn(ctx, r.db).QueryRow(ctx, q, id, delta).Scan(&before, &after)
	if errors.Is(err, pgx.ErrNoRows) {
		if clampAtZero {
			return 0, 0, pgx.ErrNoRows
		}
		return 0, 0, ErrInsufficientPoints
	}
	if err != nil {
		return 0, 0, err
	}
	return after - before, after, nil
}

func (r *userRepo) encryptTOTP(secret string) (*string, error) {
	if secret == "" {
		return nil, nil
	}
	enc, err := utils.Encrypt(r.encKey, secret)
	if err != nil {
		return nil, err
	}
	return &enc, nil
}

func baseSelectUser() string {
	return `
		SELECT id, email, password_hash, first_name, last_name, phone_number,
		       role, loyalty_points, totp_secret, failed_login_attempts, locked_until,
		       row_version, created_at, updated_at
		FROM users`
}

func (r *userRepo) scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var role string
	var enc *string

	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.PhoneNumber,
		&role, &u.LoyaltyPoints, &enc, &u.FailedLoginAttempts, &u.LockedUntil,
		&u.RowVersion, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Role = models.UserRole(role)

	if enc != nil && *enc != "" {
		dec, err := utils.Decrypt(r.encKey, *enc)
		if err != nil {
			return nil, err
		}
		u.TOTPSecret = dec
	}
	return &u, nil
}
