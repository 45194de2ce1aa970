// Package service provides business logic implementations.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"telegram-referral-bot/internal/model"
	"telegram-referral-bot/internal/repository"
)

// refCodeLen is the ref code length in hex characters. Four random bytes
// give ~4 billion values, so collision retries are unnecessary.
const refCodeLen = 8

// ErrCooldownActive is returned by Earn when the cooldown has not elapsed.
var ErrCooldownActive = errors.New("earn cooldown active")

// AccountService handles onboarding, referral attribution and the earn
// action.
type AccountService struct {
	users        *repository.UserRepository
	txs          *repository.TransactionRepository
	botUsername  string
	earnReward   int64
	earnCooldown time.Duration
	refBonus     int64
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(
	users *repository.UserRepository,
	txs *repository.TransactionRepository,
	botUsername string,
	earnReward int64,
	earnCooldown time.Duration,
	refBonus int64,
) *AccountService {
	return &AccountService{
		users:        users,
		txs:          txs,
		botUsername:  botUsername,
		earnReward:   earnReward,
		earnCooldown: earnCooldown,
		refBonus:     refBonus,
	}
}

// Onboard ensures a user row exists, creating one on first contact.
// When refToken resolves to a different existing user, that inviter is
// credited exactly once: attribution only happens at row creation, so a
// repeated /start with a token can never double-credit.
// Returns the user, whether the row was created, and the credited inviter
// (nil when no attribution happened).
func (s *AccountService) Onboard(ctx context.Context, userID int64, username, refToken string) (*model.User, bool, *model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err == nil {
		// Known user: refresh the username if it changed, nothing else.
		if username != "" && user.Username != username {
			if err := s.users.UpdateUsername(ctx, userID, username); err != nil {
				log.Warn().Err(err).Int64("user_id", userID).Msg("Failed to update username")
			} else {
				user.Username = username
			}
		}
		return user, false, nil, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, false, nil, fmt.Errorf("failed to onboard user: %w", err)
	}

	var referredBy *int64
	var inviter *model.User
	if refToken != "" {
		inviter, err = s.users.GetByRefCode(ctx, refToken)
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			// Unknown token, onboard without attribution.
		case err != nil:
			return nil, false, nil, fmt.Errorf("failed to resolve referral token: %w", err)
		case inviter.UserID == userID:
			// Self-referral never changes any count.
			inviter = nil
		default:
			referredBy = &inviter.UserID
		}
	}

	user, err = s.users.Create(ctx, userID, username, newRefCode(), referredBy)
	if err != nil {
		// Concurrent first contact may have created the row already.
		if existing, getErr := s.users.GetByID(ctx, userID); getErr == nil {
			return existing, false, nil, nil
		}
		return nil, false, nil, fmt.Errorf("failed to create user: %w", err)
	}

	if referredBy != nil {
		inviter, err = s.users.CreditReferral(ctx, *referredBy, s.refBonus)
		if err != nil {
			// The invitee is onboarded either way.
			log.Error().Err(err).Int64("inviter_id", *referredBy).Msg("Failed to credit referral")
			return user, true, nil, nil
		}
		desc := fmt.Sprintf("referral bonus for user %d", userID)
		if _, err := s.txs.Create(ctx, inviter.UserID, s.refBonus, model.TxTypeReferralBonus, &desc); err != nil {
			log.Warn().Err(err).Int64("inviter_id", inviter.UserID).Msg("Failed to record referral transaction")
		}
		return user, true, inviter, nil
	}

	return user, true, nil, nil
}

// GetUser retrieves a user by their Telegram ID.
func (s *AccountService) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}

// Earn credits the fixed earn reward, subject to the cooldown. When the
// cooldown is active it returns ErrCooldownActive together with the time
// remaining until the next eligible attempt.
func (s *AccountService) Earn(ctx context.Context, userID int64) (*model.User, time.Duration, error) {
	user, err := s.users.TryEarn(ctx, userID, s.earnReward, s.earnCooldown)
	if err == nil {
		if _, txErr := s.txs.Create(ctx, userID, s.earnReward, model.TxTypeEarn, nil); txErr != nil {
			log.Warn().Err(txErr).Int64("user_id", userID).Msg("Failed to record earn transaction")
		}
		return user, 0, nil
	}
	if !errors.Is(err, repository.ErrEarnNotEligible) {
		return nil, 0, err
	}

	user, err = s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return user, earnRemaining(user.LastEarn, s.earnCooldown, time.Now()), ErrCooldownActive
}

// ReferralLink builds the deep link carrying a user's ref code.
func (s *AccountService) ReferralLink(refCode string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", s.botUsername, refCode)
}

// earnRemaining computes the time left until the next eligible earn.
// Zero means the user may earn now.
func earnRemaining(lastEarn *time.Time, cooldown time.Duration, now time.Time) time.Duration {
	if lastEarn == nil {
		return 0
	}
	remaining := lastEarn.Add(cooldown).Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// newRefCode generates a fresh referral code: refCodeLen hex characters.
func newRefCode() string {
	buf := make([]byte, refCodeLen/2)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(fmt.Sprintf("ref code generation: %v", err))
	}
	return hex.EncodeToString(buf)
}
