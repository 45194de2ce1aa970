// Package model defines the data models for the referral bot.
package model

import "time"

// User represents one Telegram user tracked by the ledger.
type User struct {
	UserID     int64      `db:"user_id"`
	Username   string     `db:"username"`
	Balance    int64      `db:"balance"`
	Referrals  int64      `db:"referrals"`
	RefCode    string     `db:"ref_code"`
	ReferredBy *int64     `db:"referred_by"`
	Blocked    bool       `db:"blocked"`
	LastEarn   *time.Time `db:"last_earn"`
	JoinedAt   time.Time  `db:"joined_at"`
}

// Transaction records a single balance change.
type Transaction struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	Amount      int64     `db:"amount"`
	Type        string    `db:"type"`
	Description *string   `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

// Transaction types for categorizing balance changes.
const (
	TxTypeEarn           = "earn"            // Earn action reward
	TxTypeReferralBonus  = "referral_bonus"  // Inviter bonus for an onboarded invitee
	TxTypeWithdrawPayout = "withdraw_payout" // Admin approved withdrawal, balance reset to zero
)

// Investment is carried for schema compatibility; no handler populates it.
type Investment struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	PlanID    int64     `db:"plan_id"`
	Amount    int64     `db:"amount"`
	StartDate time.Time `db:"start_date"`
	EndDate   time.Time `db:"end_date"`
	Status    string    `db:"status"`
}

// Investment statuses.
const (
	InvestmentActive    = "active"
	InvestmentCompleted = "completed"
)

// StatChannel is a destination for the periodic statistics broadcast.
// Rows are managed by an external administrative process.
type StatChannel struct {
	ID        int64     `db:"id"`
	ChannelID int64     `db:"channel_id"`
	AddedAt   time.Time `db:"added_at"`
}

// Stats holds the aggregate counters shown to the admin and broadcast
// to stat channels.
type Stats struct {
	TotalUsers     int64
	ActiveUsers    int64
	BlockedUsers   int64
	TotalBalance   int64
	TotalReferrals int64
}
