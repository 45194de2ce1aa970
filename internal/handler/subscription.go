package handler

import (
	"context"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-referral-bot/internal/config"
	"telegram-referral-bot/internal/gateway"
	"telegram-referral-bot/internal/menu"
	"telegram-referral-bot/internal/service"
)

// SubscriptionHandler handles the gate re-check callback.
type SubscriptionHandler struct {
	cfg      *config.Config
	gw       *gateway.Client
	accounts *service.AccountService
	gate     *service.SubscriptionGate
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(cfg *config.Config, gw *gateway.Client, accounts *service.AccountService, gate *service.SubscriptionGate) *SubscriptionHandler {
	return &SubscriptionHandler{cfg: cfg, gw: gw, accounts: accounts, gate: gate}
}

// HandleCheckSubscription re-evaluates membership on the "I've subscribed"
// tap. A passing check edits the prompt into the main menu; a failing one
// re-prompts with an alert and changes no state.
func (h *SubscriptionHandler) HandleCheckSubscription(c tele.Context) error {
	ctx := context.Background()
	cb := c.Callback()
	sender := c.Sender()
	if cb == nil || sender == nil {
		return nil
	}
	// Inline-mode callbacks carry no message to edit.
	if cb.Message == nil {
		h.gw.AnswerCallback(cb.ID, "", false)
		return nil
	}

	if !h.gate.IsSubscribed(sender.ID) {
		h.gw.AnswerCallback(cb.ID, "❌ You are not subscribed yet!", true)
		return nil
	}

	user, err := h.accounts.GetUser(ctx, sender.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Subscription check failed to load user")
		h.gw.AnswerCallback(cb.ID, "❌ Something went wrong", true)
		return nil
	}

	h.gw.AnswerCallback(cb.ID, "✅ Thanks for subscribing!", false)
	h.gw.Edit(cb.Message.Chat.ID, cb.Message.ID,
		menu.FormatWelcome(user, h.accounts.ReferralLink(user.RefCode)),
		menu.BuildMainMenu(h.cfg.IsAdmin(sender.ID)))
	return nil
}
