package bot

import (
	"context"
	"errors"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-referral-bot/internal/config"
	"telegram-referral-bot/internal/gateway"
	"telegram-referral-bot/internal/repository"
	"telegram-referral-bot/internal/service"
)

// LoggingMiddleware logs every inbound update.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			logEvent := log.Debug()
			if sender := c.Sender(); sender != nil {
				logEvent = logEvent.
					Int64("user_id", sender.ID).
					Str("username", sender.Username)
			}
			if chat := c.Chat(); chat != nil {
				logEvent = logEvent.Int64("chat_id", chat.ID)
			}
			if cb := c.Callback(); cb != nil {
				logEvent = logEvent.Str("callback", cb.Data)
			}
			logEvent.Str("text", c.Text()).Msg("Received update")

			return next(c)
		}
	}
}

// RecoveryMiddleware recovers from handler panics. The failure is logged
// with the stack and relayed to the administrator; the update is then
// considered handled so the webhook still answers 200.
func RecoveryMiddleware(cfg *config.Config, gw *gateway.Client) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Bytes("stack", debug.Stack()).
						Msg("Recovered from panic in handler")
					if cfg.Admin.ID != 0 {
						gw.Send(cfg.Admin.ID, 0, "⚠️ Internal error while handling an update, see logs.", nil)
					}
				}
			}()
			return next(c)
		}
	}
}

// BlockedMiddleware drops every update from a blocked user. The admin is
// never droppable. Unknown users pass through to onboarding.
func BlockedMiddleware(cfg *config.Config, accounts *service.AccountService) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil || cfg.IsAdmin(sender.ID) {
				return next(c)
			}

			user, err := accounts.GetUser(context.Background(), sender.ID)
			if err != nil {
				if !errors.Is(err, repository.ErrUserNotFound) {
					log.Error().Err(err).Int64("user_id", sender.ID).Msg("Blocked check failed")
				}
				return next(c)
			}
			if user.Blocked {
				log.Debug().Int64("user_id", sender.ID).Msg("Dropping update from blocked user")
				return nil
			}
			return next(c)
		}
	}
}
