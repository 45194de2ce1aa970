// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Common errors for repository operations.
var (
	ErrUserNotFound = errors.New("user not found")
	// ErrEarnNotEligible is returned when the earn cooldown has not elapsed.
	ErrEarnNotEligible = errors.New("earn cooldown active")
)

// Querier is the subset of pgxpool.Pool the repositories depend on.
// pgxmock satisfies it as well, so repositories can be unit-tested
// without a running database.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
