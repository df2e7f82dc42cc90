package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"

	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
)

// ExchangeRateRepository keeps the last known good rate per currency pair.
type ExchangeRateRepository interface {
	Upsert(ctx context.Context, rate *models.ExchangeRate) error
	Get(ctx context.Context, base, quote string) (*models.ExchangeRate, error)
}

type exchangeRateRepo struct {
	db DB
}

func NewExchangeRateRepository(db DB) ExchangeRateRepository {
	return &exchangeRateRepo{db: db}
}

func (r *exchangeRateRepo) Upsert(ctx context.Context, rate *models.ExchangeRate) error {
	_, err := conn(ctx, r.db).Exec(ctx, `
		INSERT INTO exchange_rates (base, quote, rate, fetched_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (base, quote) DO UPDATE SET rate=EXCLUDED.rate, fetched_at=EXCLUDED.fetched_at`,
		rate.Base, rate.Quote, rate.Rate, rate.FetchedAt,
	)
	return err
}

func (r *exchangeRateRepo) Get(ctx context.Context, base, quote string) (*models.ExchangeRate, error) {
	var rate models.ExchangeRate
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT base, quote, rate, fetched_at FROM exchange_rates WHERE base=$1 AND quote=$2`,
		base, quote,
	).Scan(&rate.Base, &rate.Quote, &rate.Rate, &rate.FetchedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rate, nil
}
