package bot

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-referral-bot/internal/config"
	"telegram-referral-bot/internal/gateway"
	"telegram-referral-bot/internal/handler"
	"telegram-referral-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies. It runs
// in webhook mode: updates are injected through ProcessUpdate by the HTTP
// server, and Synchronous handling keeps each update inside its request.
type Bot struct {
	bot *tele.Bot
	cfg *config.Config
	gw  *gateway.Client

	accountHandler      *handler.AccountHandler
	subscriptionHandler *handler.SubscriptionHandler
	adminHandler        *handler.AdminHandler
}

// Dependencies holds everything the dispatcher and handlers need.
type Dependencies struct {
	Config         *config.Config
	Gateway        *gateway.Client
	AccountService *service.AccountService
	AdminService   *service.AdminService
	Gate           *service.SubscriptionGate
}

// NewTelebot creates the underlying telebot instance for webhook mode.
// The HTTP client timeout is the gateway's per-attempt timeout.
func NewTelebot(cfg *config.Config, policy gateway.RetryPolicy) (*tele.Bot, error) {
	pref := tele.Settings{
		Token:       cfg.Bot.Token,
		Synchronous: true,
		Client:      &http.Client{Timeout: policy.AttemptTimeout},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return b, nil
}

// New creates a Bot over an existing telebot instance and registers all
// middleware and handlers.
func New(teleBot *tele.Bot, deps *Dependencies) *Bot {
	b := &Bot{
		bot: teleBot,
		cfg: deps.Config,
		gw:  deps.Gateway,
	}

	b.accountHandler = handler.NewAccountHandler(deps.Config, deps.Gateway, deps.AccountService, deps.Gate)
	b.subscriptionHandler = handler.NewSubscriptionHandler(deps.Config, deps.Gateway, deps.AccountService, deps.Gate)
	b.adminHandler = handler.NewAdminHandler(deps.Config, deps.Gateway, deps.AdminService, deps.Gate)

	b.registerMiddleware(deps)
	b.registerHandlers()

	return b
}

func (b *Bot) registerMiddleware(deps *Dependencies) {
	b.bot.Use(RecoveryMiddleware(b.cfg, b.gw))
	b.bot.Use(LoggingMiddleware())
	b.bot.Use(BlockedMiddleware(b.cfg, deps.AccountService))
}

func (b *Bot) registerHandlers() {
	// Any plain message routes through onboarding / main menu.
	b.bot.Handle("/start", b.accountHandler.HandleMessage)
	b.bot.Handle(tele.OnText, b.accountHandler.HandleMessage)

	// All callbacks go through the typed parser.
	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// handleCallback decodes the callback data once and dispatches on the
// closed action set. Every path acknowledges the callback, including
// unknown data and denied admin actions.
func (b *Bot) handleCallback(c tele.Context) error {
	cb := c.Callback()
	sender := c.Sender()
	if cb == nil || sender == nil {
		return nil
	}

	action := ParseCallback(cb.Data)

	if action.Kind.AdminOnly() && !b.cfg.IsAdmin(sender.ID) {
		log.Warn().
			Int64("user_id", sender.ID).
			Str("callback", cb.Data).
			Msg("Non-admin attempted admin action")
		b.gw.AnswerCallback(cb.ID, "", false)
		return nil
	}

	switch action.Kind {
	case ActionCheckSubscription:
		return b.subscriptionHandler.HandleCheckSubscription(c)
	case ActionEarn:
		return b.accountHandler.HandleEarn(c)
	case ActionReferral:
		return b.accountHandler.HandleReferral(c)
	case ActionProfile:
		return b.accountHandler.HandleProfile(c)
	case ActionMenu:
		return b.accountHandler.HandleMenu(c)
	case ActionAdminPanel:
		return b.adminHandler.HandlePanel(c)
	case ActionAdminStats:
		return b.adminHandler.HandleStats(c)
	case ActionAdminUsersList:
		return b.adminHandler.HandleUsersList(c)
	case ActionAdminUserDetails:
		return b.adminHandler.HandleUserDetails(c, action.TargetID)
	case ActionAdminBlock:
		return b.adminHandler.HandleBlock(c, action.TargetID)
	case ActionAdminUnblock:
		return b.adminHandler.HandleUnblock(c, action.TargetID)
	case ActionApproveWithdrawal:
		return b.adminHandler.HandleApproveWithdrawal(c, action.TargetID)
	case ActionRejectWithdrawal:
		return b.adminHandler.HandleRejectWithdrawal(c, action.TargetID)
	default:
		log.Info().Str("callback", cb.Data).Int64("user_id", sender.ID).Msg("Unknown callback data")
		b.gw.AnswerCallback(cb.ID, "❓ Unknown command", true)
		return nil
	}
}

// ProcessUpdate feeds one decoded update through the dispatcher.
func (b *Bot) ProcessUpdate(u tele.Update) {
	b.bot.ProcessUpdate(u)
}
