package repository

import (
	"context"
	"fmt"

	"telegram-referral-bot/internal/model"
)

// StatChannelRepository reads the statistics broadcast destinations.
// Rows are created and deleted by an external administrative process.
type StatChannelRepository struct {
	db Querier
}

// NewStatChannelRepository creates a new StatChannelRepository instance.
func NewStatChannelRepository(db Querier) *StatChannelRepository {
	return &StatChannelRepository{db: db}
}

// List returns all broadcast destinations.
func (r *StatChannelRepository) List(ctx context.Context) ([]*model.StatChannel, error) {
	const query = `
		SELECT id, channel_id, added_at
		FROM stat_channels
		ORDER BY added_at
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query stat channels: %w", err)
	}
	defer rows.Close()

	var channels []*model.StatChannel
	for rows.Next() {
		var ch model.StatChannel
		if err := rows.Scan(&ch.ID, &ch.ChannelID, &ch.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stat channel: %w", err)
		}
		channels = append(channels, &ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stat channels: %w", err)
	}
	return channels, nil
}
