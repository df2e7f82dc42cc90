package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/jackc/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/config"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/constants"
	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
	repositories "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-repositories"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

const cleanupRetryDelay = 3 * time.Second

// Job names double as metric labels.
const (
	JobExpirePendingOrders = "expire_pending_orders"
	JobExpireSubscriptions = "expire_subscriptions"
	JobRefreshFXRates      = "refresh_fx_rates"
	JobCleanupTokens       = "cleanup_refresh_tokens"
)

// JobsService holds the cron entry points.
type JobsService struct {
	cfg        *config.Config
	orders     repositories.OrderRepository
	subs       repositories.UserSubscriptionRepository
	tokens     repositories.TokenRepository
	lifecycle  *OrderLifecycleService
	webhooks   *PaymentWebhookService
	fx         *CurrencyService
	metrics    *Metrics
	now        func() time.Time
	retryDelay time.Duration
}

func NewJobsService(
	cfg *config.Config,
	orders repositories.OrderRepository,
	subs repositories.UserSubscriptionRepository,
	tokens repositories.TokenRepository,
	lifecycle *OrderLifecycleService,
	webhooks *PaymentWebhookService,
	fx *CurrencyService,
	metrics *Metrics,
) *JobsService {
	return &JobsService{
		cfg:        cfg,
		orders:     orders,
		subs:       subs,
		tokens:     tokens,
		lifecycle:  lifecycle,
		webhooks:   webhooks,
		fx:         fx,
		metrics:    metrics,
		now:        time.Now,
		retryDelay: cleanupRetryDelay,
	}
}

// ExpireStalePendingOrders cancels PENDING orders past their payment
// window. Tabby orders are polled first since Tabby may have captured
// without a webhook reaching us.
func (s *JobsService) ExpireStalePendingOrders(ctx context.Context) (err error) {
	defer func() { s.metrics.jobRun(JobExpirePendingOrders, err) }()

	stale, err := s.orders.ListExpiredPending(ctx, s.now().UTC(), constants.ExpireOrdersBatchSize)
	if err != nil {
		utils.Logger.WithError(err).Error("Failed to list expired pending orders")
		return err
	}

	var cancelled, reconciled, skipped int
	for _, o := range stale {
		logger := utils.Logger.WithFields(logrus.Fields{"orderID": o.ID, "provider": o.PaymentProvider})

		if o.PaymentProvider == models.ProviderTabby && o.ProviderPaymentID != nil {
			res, perr := s.webhooks.ReconcileTabbyOrder(ctx, o)
			switch {
			case perr != nil:
				logger.WithError(perr).Warn("Tabby poll failed; will retry next run")
				skipped++
				continue
			case res == WebhookCapturePending:
				logger.Warn("Tabby payment authorized but not captured; leaving order pending")
				skipped++
				continue
			case res != WebhookPending:
				reconciled++
				continue
			}
		}

		res, aerr := s.lifecycle.Apply(ctx, TransitionRequest{
			OrderID:       o.ID,
			Outcome:       OutcomeCancelled,
			FailureReason: utils.Ptr("payment window expired"),
			Source:        "expiry",
		})
		if aerr != nil {
			logger.WithError(aerr).Error("Failed to expire order")
			if err == nil {
				err = aerr
			}
			continue
		}
		if res.Applied {
			cancelled++
		}
	}

	utils.Logger.WithFields(logrus.Fields{
		"found":      len(stale),
		"cancelled":  cancelled,
		"reconciled": reconciled,
		"skipped":    skipped,
	}).Info("Expired pending orders")
	return err
}

func (s *JobsService) ExpireSubscriptions(ctx context.Context) (err error) {
	defer func() { s.metrics.jobRun(JobExpireSubscriptions, err) }()

	n, err := s.subs.ExpireDue(ctx, s.now().UTC())
	if err != nil {
		utils.Logger.WithError(err).Error("Failed to expire subscriptions")
		return err
	}
	if n > 0 {
		utils.Logger.WithField("count", n).Info("Expired subscriptions")
	}
	return nil
}

func (s *JobsService) RefreshExchangeRates(ctx context.Context) (err error) {
	defer func() { s.metrics.jobRun(JobRefreshFXRates, err) }()

	if len(s.cfg.FXRefreshPairs) == 0 {
		return nil
	}
	if err = s.fx.RefreshRates(ctx, s.cfg.FXRefreshPairs); err != nil {
		utils.Logger.WithError(err).Error("Exchange rate refresh incomplete")
		return err
	}
	utils.Logger.WithField("pairs", s.cfg.FXRefreshPairs).Info("Exchange rates refreshed")
	return nil
}

// CleanupRefreshTokens deletes expired and revoked refresh tokens.
func (s *JobsService) CleanupRefreshTokens(ctx context.Context) (err error) {
	defer func() { s.metrics.jobRun(JobCleanupTokens, err) }()

	var removed int64
	err = s.runWithRetry(ctx, func(ctx context.Context) error {
		var opErr error
		removed, opErr = s.tokens.DeleteExpiredOrRevoked(ctx)
		return opErr
	})
	if err != nil {
		utils.Logger.WithError(err).Error("Failed to cleanup refresh tokens")
		return err
	}
	utils.Logger.WithField("removed", removed).Info("Daily token cleanup completed")
	return nil
}

// runWithRetry retries op once after a transient connection error.
func (s *JobsService) runWithRetry(ctx context.Context, op func(context.Context) error) error {
	err := op(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) || pgconn.SafeToRetry(err) ||
		strings.Contains(err.Error(), "connection was closed") {
		utils.Logger.WithError(err).Warn("Cleanup hit transient DB error; retrying once")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.retryDelay):
		}
		return op(ctx)
	}
	return err
}
