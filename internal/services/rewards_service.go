package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/config"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/constants"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/dtos"
	internal_utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/utils"
	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
	repositories "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-repositories"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

// RewardsService owns the loyalty balance and its ledger. Every balance
// change goes through AddLoyaltyPoints and writes exactly one ledger row.
type RewardsService struct {
	cfg    *config.Config
	users  repositories.UserRepository
	ledger repositories.LoyaltyRepository
}

func NewRewardsService(cfg *config.Config, users repositories.UserRepository, ledger repositories.LoyaltyRepository) *RewardsService {
	return &RewardsService{cfg: cfg, users: users, ledger: ledger}
}

// PointsToEarn awards PointsPerCurrencyUnit for every whole currency unit.
func (s *RewardsService) PointsToEarn(totalCents int64) int64 {
	if totalCents <= 0 {
		return 0
	}
	return totalCents / 100 * s.cfg.PointsPerCurrencyUnit
}

// RedeemValue prices a redemption against the post-coupon amount.
func (s *RewardsService) RedeemValue(points, eligibleCents, balance int64) (int64, error) {
	if points == 0 {
		return 0, nil
	}
	if points < s.cfg.MinRedeemPoints {
		return 0, internal_utils.BadRequest(internal_utils.ErrPointsBelowMinimum,
			fmt.Sprintf("Redeem at least %d points", s.cfg.MinRedeemPoints))
	}
	if points > balance {
		return 0, internal_utils.BadRequest(internal_utils.ErrPointsExceedBalance,
			fmt.Sprintf("You have %d points", balance))
	}
	value := points * s.cfg.PointValueCents
	limit := eligibleCents * s.cfg.MaxRedeemPercent / 100
	if value > limit {
		return 0, internal_utils.BadRequest(internal_utils.ErrPointsExceedLimit,
			fmt.Sprintf("Points may cover at most %d%% of the order", s.cfg.MaxRedeemPercent))
	}
	return value, nil
}

// Debit takes redeemed points at checkout.
func (s *RewardsService) Debit(ctx context.Context, userID, orderID uuid.UUID, points int64) error {
	if points <= 0 {
		return nil
	}
	_, balance, err := s.users.AddLoyaltyPoints(ctx, userID, -points, false)
	if errors.Is(err, repositories.ErrInsufficientPoints) {
		return internal_utils.Conflict(internal_utils.ErrPointsExceedBalance, "Not enough points")
	}
	if err != nil {
		return err
	}
	return s.record(ctx, userID, &orderID, models.LoyaltyRedeem, -points, balance, nil)
}

// Restore returns the points an order redeemed.
func (s *RewardsService) Restore(ctx context.Context, order *models.Order) error {
	if order.PointsRedeemed <= 0 {
		return nil
	}
	_, balance, err := s.users.AddLoyaltyPoints(ctx, order.UserID, order.PointsRedeemed, false)
	if err != nil {
		return err
	}
	return s.record(ctx, order.UserID, &order.ID, models.LoyaltyRestore, order.PointsRedeemed, balance, nil)
}

// Earn credits the points recorded on a paid order.
func (s *RewardsService) Earn(ctx context.Context, order *models.Order) error {
	if order.PointsEarned <= 0 {
		return nil
	}
	_, balance, err := s.users.AddLoyaltyPoints(ctx, order.UserID, order.PointsEarned, false)
	if err != nil {
		return err
	}
	return s.record(ctx, order.UserID, &order.ID, models.LoyaltyEarn, order.PointsEarned, balance, nil)
}

// Reverse claws back earned points on refund. The balance floors at zero,
// so the ledger row carries what was actually removed.
func (s *RewardsService) Reverse(ctx context.Context, order *models.Order) error {
	if order.PointsEarned <= 0 {
		return nil
	}
	applied, balance, err := s.users.AddLoyaltyPoints(ctx, order.UserID, -order.PointsEarned, true)
	if err != nil {
		return err
	}
	if applied != -order.PointsEarned {
		utils.Logger.WithFields(logrus.Fields{
			"orderID":  order.ID,
			"earned":   order.PointsEarned,
			"reversed": -applied,
		}).Warn("Earned points partially spent; reversal floored at zero")
	}
	return s.record(ctx, order.UserID, &order.ID, models.LoyaltyReverse, applied, balance, nil)
}

// Adjust is the admin correction path. Negative deltas may not overdraw.
func (s *RewardsService) Adjust(ctx context.Context, userID uuid.UUID, delta int64, note string) (*models.LoyaltyTransaction, error) {
	if delta == 0 {
		return nil, utils.NewAppError(http.StatusBadRequest, utils.ErrCodeValidation, "Delta must not be zero", nil)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, utils.InternalError("Failed to load user", err)
	}
	if user == nil {
		return nil, utils.NotFoundError("User not found")
	}

	_, balance, err := s.users.AddLoyaltyPoints(ctx, userID, delta, false)
	if errors.Is(err, repositories.ErrInsufficientPoints) {
		return nil, internal_utils.Conflict(internal_utils.ErrPointsExceedBalance, "Adjustment would make the balance negative")
	}
	if err != nil {
		return nil, utils.InternalError("Failed to adjust points", err)
	}

	var notePtr *string
	if note != "" {
		notePtr = &note
	}
	txn := &models.LoyaltyTransaction{
		ID:           uuid.New(),
		UserID:       userID,
		Type:         models.LoyaltyAdjust,
		Points:       delta,
		BalanceAfter: balance,
		Note:         notePtr,
	}
	if err := s.ledger.Create(ctx, txn); err != nil {
		return nil, utils.InternalError("Failed to record adjustment", err)
	}
	return txn, nil
}

func (s *RewardsService) GetRewards(ctx context.Context, userID uuid.UUID) (*dtos.RewardsResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, utils.InternalError("Failed to load user", err)
	}
	if user == nil {
		return nil, utils.NotFoundError("User not found")
	}
	history, err := s.ledger.ListByUser(ctx, userID, constants.RewardsHistoryLimit)
	if err != nil {
		return nil, utils.InternalError("Failed to load points history", err)
	}
	if history == nil {
		history = []*models.LoyaltyTransaction{}
	}
	return &dtos.RewardsResponse{
		Balance:               user.LoyaltyPoints,
		PointValueCents:       s.cfg.PointValueCents,
		PointsPerCurrencyUnit: s.cfg.PointsPerCurrencyUnit,
		MinRedeemPoints:       s.cfg.MinRedeemPoints,
		MaxRedeemPercent:      s.cfg.MaxRedeemPercent,
		History:               history,
	}, nil
}

func (s *RewardsService) record(
	ctx context.Context,
	userID uuid.UUID,
	orderID *uuid.UUID,
	kind models.LoyaltyTxnType,
	points, balance int64,
	note *string,
) error {
	return s.ledger.Create(ctx, &models.LoyaltyTransaction{
		ID:           uuid.New(),
		UserID:       userID,
		OrderID:      orderID,
		Type:         kind,
		Points:       points,
		BalanceAfter: balance,
		Note:         note,
	})
}
