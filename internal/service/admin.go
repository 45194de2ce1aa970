package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"telegram-referral-bot/internal/model"
	"telegram-referral-bot/internal/repository"
)

// Admin operation errors.
var (
	ErrCannotBlockSelf = errors.New("admin cannot block own account")
)

// UserDetail is the admin drill-down projection of one user.
type UserDetail struct {
	User        *model.User
	Investments int64
}

// AdminService implements the admin moderation surface.
type AdminService struct {
	users       *repository.UserRepository
	txs         *repository.TransactionRepository
	investments *repository.InvestmentRepository
	listLimit   int
	topN        int
}

// NewAdminService creates a new AdminService instance.
func NewAdminService(
	users *repository.UserRepository,
	txs *repository.TransactionRepository,
	investments *repository.InvestmentRepository,
	listLimit, topN int,
) *AdminService {
	return &AdminService{
		users:       users,
		txs:         txs,
		investments: investments,
		listLimit:   listLimit,
		topN:        topN,
	}
}

// Stats returns the ledger-wide aggregates.
func (s *AdminService) Stats(ctx context.Context) (*model.Stats, error) {
	return s.users.Stats(ctx)
}

// TopUsers returns the top-N users by balance, referral count as tiebreak.
func (s *AdminService) TopUsers(ctx context.Context) ([]*model.User, error) {
	return s.users.TopByBalance(ctx, s.topN)
}

// ListUsers returns the newest users, capped at the configured limit.
func (s *AdminService) ListUsers(ctx context.Context) ([]*model.User, error) {
	return s.users.List(ctx, s.listLimit)
}

// GetUserDetail returns the full profile for the admin drill-down.
func (s *AdminService) GetUserDetail(ctx context.Context, userID int64) (*UserDetail, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	count, err := s.investments.CountByUser(ctx, userID)
	if err != nil {
		// The profile is still useful without the count.
		log.Warn().Err(err).Int64("user_id", userID).Msg("Failed to count investments")
		count = 0
	}
	return &UserDetail{User: user, Investments: count}, nil
}

// Block marks a user blocked. Blocking the admin's own account is refused.
func (s *AdminService) Block(ctx context.Context, adminID, targetID int64) (*model.User, error) {
	if adminID == targetID {
		return nil, ErrCannotBlockSelf
	}
	user, err := s.users.SetBlocked(ctx, targetID, true)
	if err != nil {
		return nil, err
	}
	log.Info().Int64("admin_id", adminID).Int64("target_id", targetID).Msg("User blocked")
	return user, nil
}

// Unblock clears a user's blocked flag.
func (s *AdminService) Unblock(ctx context.Context, adminID, targetID int64) (*model.User, error) {
	user, err := s.users.SetBlocked(ctx, targetID, false)
	if err != nil {
		return nil, err
	}
	log.Info().Int64("admin_id", adminID).Int64("target_id", targetID).Msg("User unblocked")
	return user, nil
}

// ApproveWithdrawal pays out a user's entire balance: the balance is reset
// to zero unconditionally, referrals stay untouched.
func (s *AdminService) ApproveWithdrawal(ctx context.Context, userID int64) (*model.User, int64, error) {
	before, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	paid := before.Balance

	user, err := s.users.SetBalance(ctx, userID, 0)
	if err != nil {
		return nil, 0, err
	}

	desc := fmt.Sprintf("withdrawal payout of %d", paid)
	if _, err := s.txs.Create(ctx, userID, -paid, model.TxTypeWithdrawPayout, &desc); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("Failed to record payout transaction")
	}

	log.Info().Int64("user_id", userID).Int64("paid", paid).Msg("Withdrawal approved")
	return user, paid, nil
}

// RejectWithdrawal declines a withdrawal. Balances are never escrowed at
// request time, so there is nothing to restore; the user is only notified
// that the funds remain available.
func (s *AdminService) RejectWithdrawal(ctx context.Context, userID int64) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}
