package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-referral-bot/internal/gateway"
	"telegram-referral-bot/internal/menu"
	"telegram-referral-bot/internal/repository"
)

// sender is the gateway call the broadcaster depends on.
type sender interface {
	Send(chatID int64, threadID int, text string, markup *tele.ReplyMarkup) gateway.Result
}

// StatsBroadcaster periodically pushes the aggregate statistics to every
// configured stat channel.
type StatsBroadcaster struct {
	users    *repository.UserRepository
	channels *repository.StatChannelRepository
	gw       sender
	interval time.Duration
}

// NewStatsBroadcaster creates a broadcaster. A zero interval disables it.
func NewStatsBroadcaster(
	users *repository.UserRepository,
	channels *repository.StatChannelRepository,
	gw sender,
	interval time.Duration,
) *StatsBroadcaster {
	return &StatsBroadcaster{users: users, channels: channels, gw: gw, interval: interval}
}

// Start launches the broadcast loop. It returns immediately; the loop
// stops when ctx is cancelled.
func (b *StatsBroadcaster) Start(ctx context.Context) {
	if b.interval <= 0 {
		log.Info().Msg("Stats broadcaster disabled")
		return
	}
	log.Info().Dur("interval", b.interval).Msg("Stats broadcaster started")
	go b.run(ctx)
}

func (b *StatsBroadcaster) run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Stats broadcaster stopped")
			return
		case <-ticker.C:
			b.broadcast(ctx)
		}
	}
}

func (b *StatsBroadcaster) broadcast(ctx context.Context) {
	channels, err := b.channels.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list stat channels")
		return
	}
	if len(channels) == 0 {
		return
	}

	stats, err := b.users.Stats(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to compute stats for broadcast")
		return
	}

	text := menu.FormatStats(stats)
	for _, ch := range channels {
		if res := b.gw.Send(ch.ChannelID, 0, text, nil); !res.OK {
			log.Warn().Int64("channel_id", ch.ChannelID).Msg("Stats broadcast delivery failed")
		}
	}
}
