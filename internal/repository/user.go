package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"telegram-referral-bot/internal/model"
)

// userColumns is the canonical column list scanned into model.User.
const userColumns = "user_id, username, balance, referrals, ref_code, referred_by, blocked, last_earn, joined_at"

// UserRepository handles user ledger persistence.
type UserRepository struct {
	db Querier
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(db Querier) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.UserID,
		&user.Username,
		&user.Balance,
		&user.Referrals,
		&user.RefCode,
		&user.ReferredBy,
		&user.Blocked,
		&user.LastEarn,
		&user.JoinedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a new user row. Balance, referrals and blocked start at
// their zero values; referredBy is nil when the user was not invited.
func (r *UserRepository) Create(ctx context.Context, userID int64, username, refCode string, referredBy *int64) (*model.User, error) {
	const query = `
		INSERT INTO users (user_id, username, balance, referrals, ref_code, referred_by, blocked, joined_at)
		VALUES ($1, $2, 0, 0, $3, $4, FALSE, NOW())
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(ctx, query, userID, username, refCode, referredBy))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetByID retrieves a user by their Telegram ID.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, userID int64) (*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByRefCode resolves a referral code to its owner.
// Returns ErrUserNotFound for unknown codes.
func (r *UserRepository) GetByRefCode(ctx context.Context, refCode string) (*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE ref_code = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, refCode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by ref code: %w", err)
	}
	return user, nil
}

// Exists checks if a user with the given Telegram ID exists.
func (r *UserRepository) Exists(ctx context.Context, userID int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM users WHERE user_id = $1)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// UpdateUsername updates a user's username when it changed on the platform.
func (r *UserRepository) UpdateUsername(ctx context.Context, userID int64, username string) error {
	const query = `UPDATE users SET username = $2 WHERE user_id = $1`

	result, err := r.db.Exec(ctx, query, userID, username)
	if err != nil {
		return fmt.Errorf("failed to update username: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// AddBalance updates a user's balance by adding the specified amount.
func (r *UserRepository) AddBalance(ctx context.Context, userID int64, amount int64) (*model.User, error) {
	const query = `
		UPDATE users SET balance = balance + $2
		WHERE user_id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(ctx, query, userID, amount))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}
	return user, nil
}

// SetBalance sets a user's balance to an exact value.
// Used for the admin withdrawal approval, which resets the balance to zero.
func (r *UserRepository) SetBalance(ctx context.Context, userID int64, balance int64) (*model.User, error) {
	const query = `
		UPDATE users SET balance = $2
		WHERE user_id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(ctx, query, userID, balance))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to set balance: %w", err)
	}
	return user, nil
}

// CreditReferral credits an inviter for one onboarded invitee: referrals
// plus one and the configured balance bonus, in a single statement.
func (r *UserRepository) CreditReferral(ctx context.Context, inviterID int64, bonus int64) (*model.User, error) {
	const query = `
		UPDATE users SET referrals = referrals + 1, balance = balance + $2
		WHERE user_id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(ctx, query, inviterID, bonus))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to credit referral: %w", err)
	}
	return user, nil
}

// SetBlocked toggles a user's blocked flag.
func (r *UserRepository) SetBlocked(ctx context.Context, userID int64, blocked bool) (*model.User, error) {
	const query = `
		UPDATE users SET blocked = $2
		WHERE user_id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(ctx, query, userID, blocked))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to set blocked: %w", err)
	}
	return user, nil
}

// TryEarn performs the earn action as one conditional update: the balance
// is credited and last_earn stamped only when the cooldown has elapsed.
// Concurrent taps for the same user resolve in the database, so at most
// one of them succeeds per cooldown window.
// Returns ErrEarnNotEligible when the cooldown is still active and
// ErrUserNotFound for unknown users.
func (r *UserRepository) TryEarn(ctx context.Context, userID int64, reward int64, cooldown time.Duration) (*model.User, error) {
	const query = `
		UPDATE users SET balance = balance + $2, last_earn = NOW()
		WHERE user_id = $1
		  AND (last_earn IS NULL OR last_earn <= NOW() - make_interval(secs => $3))
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(ctx, query, userID, reward, cooldown.Seconds()))
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to earn: %w", err)
	}

	// No row updated: either the user is unknown or still cooling down.
	exists, err := r.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrUserNotFound
	}
	return nil, ErrEarnNotEligible
}

// List returns the most recently joined users, capped at limit.
func (r *UserRepository) List(ctx context.Context, limit int) ([]*model.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY joined_at DESC
		LIMIT $1`

	return r.queryUsers(ctx, query, limit)
}

// TopByBalance returns the top N users ordered by balance descending,
// ties broken by referrals descending.
func (r *UserRepository) TopByBalance(ctx context.Context, limit int) ([]*model.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY balance DESC, referrals DESC
		LIMIT $1`

	return r.queryUsers(ctx, query, limit)
}

func (r *UserRepository) queryUsers(ctx context.Context, query string, args ...any) ([]*model.User, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// Stats computes the aggregate counters over the whole ledger.
func (r *UserRepository) Stats(ctx context.Context) (*model.Stats, error) {
	const query = `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE NOT blocked),
			COUNT(*) FILTER (WHERE blocked),
			COALESCE(SUM(balance), 0),
			COALESCE(SUM(referrals), 0)
		FROM users`

	var stats model.Stats
	err := r.db.QueryRow(ctx, query).Scan(
		&stats.TotalUsers,
		&stats.ActiveUsers,
		&stats.BlockedUsers,
		&stats.TotalBalance,
		&stats.TotalReferrals,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	return &stats, nil
}
