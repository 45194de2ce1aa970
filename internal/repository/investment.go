package repository

import (
	"context"
	"fmt"

	"telegram-referral-bot/internal/model"
)

// InvestmentRepository carries the investments table. No handler creates
// investments; the schema exists for compatibility and the admin user
// detail view shows the per-user count.
type InvestmentRepository struct {
	db Querier
}

// NewInvestmentRepository creates a new InvestmentRepository instance.
func NewInvestmentRepository(db Querier) *InvestmentRepository {
	return &InvestmentRepository{db: db}
}

// CountByUser returns the number of investment rows owned by a user.
func (r *InvestmentRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	const query = `SELECT COUNT(*) FROM investments WHERE user_id = $1`

	var count int64
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count investments: %w", err)
	}
	return count, nil
}

// ListByUser returns a user's investments, newest first.
func (r *InvestmentRepository) ListByUser(ctx context.Context, userID int64) ([]*model.Investment, error) {
	const query = `
		SELECT id, user_id, plan_id, amount, start_date, end_date, status
		FROM investments
		WHERE user_id = $1
		ORDER BY start_date DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query investments: %w", err)
	}
	defer rows.Close()

	var investments []*model.Investment
	for rows.Next() {
		var inv model.Investment
		err := rows.Scan(&inv.ID, &inv.UserID, &inv.PlanID, &inv.Amount, &inv.StartDate, &inv.EndDate, &inv.Status)
		if err != nil {
			return nil, fmt.Errorf("failed to scan investment: %w", err)
		}
		investments = append(investments, &inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating investments: %w", err)
	}
	return investments, nil
}
