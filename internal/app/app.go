package app

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/config"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

const (
	dbConnectAttempts = 5
	dbConnectTimeout  = 5 * time.Second
	dbInitialBackoff  = 500 * time.Millisecond
)

// App owns the process-wide resources shared by every service.
type App struct {
	Config *config.Config
	DB     *pgxpool.Pool
}

// NewApp connects to Postgres, backing off between attempts so the service
// can start alongside a database that is still booting.
func NewApp(cfg *config.Config) (*App, error) {
	var pool *pgxpool.Pool
	attempt := 0
	err := retry.Do(
		func() error {
			attempt++
			p, err := openPool(cfg.DBUrl)
			if err != nil {
				return err
			}
			pool = p
			return nil
		},
		retry.Attempts(dbConnectAttempts),
		retry.Delay(dbInitialBackoff),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			utils.Logger.WithError(err).Warnf("Store DB connect attempt %d/%d failed", n+1, dbConnectAttempts)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect store database after %d attempts: %w", dbConnectAttempts, err)
	}
	utils.Logger.Infof("%s connected to DB on attempt %d", cfg.AppName, attempt)
	return &App{Config: cfg, DB: pool}, nil
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
		utils.Logger.Infof("%s DB connection closed.", a.Config.AppName)
	}
}

func openPool(databaseURL string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbConnectTimeout)
	defer cancel()

	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, retry.Unrecoverable(err)
	}
	poolCfg.MaxConnIdleTime = 2 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second
	return pgxpool.ConnectConfig(ctx, poolCfg)
}
