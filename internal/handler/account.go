// Package handler implements the per-action business logic behind the
// bot's commands and callbacks.
package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-referral-bot/internal/config"
	"telegram-referral-bot/internal/gateway"
	"telegram-referral-bot/internal/menu"
	"telegram-referral-bot/internal/model"
	"telegram-referral-bot/internal/service"
)

// AccountHandler handles onboarding, the main menu, earn and the
// read-only projections.
type AccountHandler struct {
	cfg      *config.Config
	gw       *gateway.Client
	accounts *service.AccountService
	gate     *service.SubscriptionGate
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(cfg *config.Config, gw *gateway.Client, accounts *service.AccountService, gate *service.SubscriptionGate) *AccountHandler {
	return &AccountHandler{cfg: cfg, gw: gw, accounts: accounts, gate: gate}
}

// HandleMessage handles any plain message, including /start with an
// optional referral token payload. First contact creates the ledger row;
// known users get the main menu, behind the subscription gate unless they
// are the admin.
func (h *AccountHandler) HandleMessage(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	chat := c.Chat()
	if sender == nil || chat == nil {
		return nil
	}

	threadID := 0
	payload := ""
	if msg := c.Message(); msg != nil {
		threadID = msg.ThreadID
		payload = msg.Payload
	}

	user, created, inviter, err := h.accounts.Onboard(ctx, sender.ID, sender.Username, payload)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Onboarding failed")
		h.gw.Send(chat.ID, threadID, "❌ Something went wrong, please try again later", nil)
		return nil
	}

	if inviter != nil {
		h.notifyInviter(inviter, user)
	}

	if !h.cfg.IsAdmin(sender.ID) && !h.gate.IsSubscribed(sender.ID) {
		h.gw.Send(chat.ID, threadID,
			menu.FormatSubscribePrompt(h.gate.Channel()),
			menu.BuildSubscribePrompt(h.gate.Channel()))
		return nil
	}

	if created {
		h.gw.Send(chat.ID, threadID,
			menu.FormatWelcome(user, h.accounts.ReferralLink(user.RefCode)),
			menu.BuildMainMenu(h.cfg.IsAdmin(sender.ID)))
		return nil
	}

	h.gw.Send(chat.ID, threadID, menu.FormatMenu(user), menu.BuildMainMenu(h.cfg.IsAdmin(sender.ID)))
	return nil
}

// notifyInviter tells the inviter their referral was counted.
func (h *AccountHandler) notifyInviter(inviter, invitee *model.User) {
	text := fmt.Sprintf("🎉 New referral! You now have %d invitees and %d pts.", inviter.Referrals, inviter.Balance)
	if res := h.gw.Send(inviter.UserID, 0, text, nil); !res.OK {
		log.Warn().Int64("inviter_id", inviter.UserID).Int64("invitee_id", invitee.UserID).Msg("Inviter notification failed")
	}
}

// HandleEarn handles the earn callback: one credit per cooldown window.
func (h *AccountHandler) HandleEarn(c tele.Context) error {
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

	user, remaining, err := h.accounts.Earn(ctx, sender.ID)
	switch {
	case errors.Is(err, service.ErrCooldownActive):
		h.gw.AnswerCallback(cb.ID, menu.FormatEarnCooldown(remaining), true)
		return nil
	case err != nil:
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Earn failed")
		h.gw.AnswerCallback(cb.ID, "❌ Something went wrong", true)
		return nil
	}

	h.gw.AnswerCallback(cb.ID, menu.FormatEarnSuccess(h.cfg.Earn.Reward, user.Balance), false)
	h.editToMenu(cb, user, sender.ID)
	return nil
}

// HandleReferral shows the user's referral projection.
func (h *AccountHandler) HandleReferral(c tele.Context) error {
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

	user, err := h.accounts.GetUser(ctx, sender.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Referral info failed")
		h.gw.AnswerCallback(cb.ID, "❌ Something went wrong", true)
		return nil
	}

	h.gw.AnswerCallback(cb.ID, "", false)
	h.gw.Edit(cb.Message.Chat.ID, cb.Message.ID,
		menu.FormatReferralInfo(user, h.accounts.ReferralLink(user.RefCode)),
		menu.BuildBackToMenu())
	return nil
}

// HandleProfile shows the user's profile projection.
func (h *AccountHandler) HandleProfile(c tele.Context) error {
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

	user, err := h.accounts.GetUser(ctx, sender.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Profile failed")
		h.gw.AnswerCallback(cb.ID, "❌ Something went wrong", true)
		return nil
	}

	h.gw.AnswerCallback(cb.ID, "", false)
	h.gw.Edit(cb.Message.Chat.ID, cb.Message.ID, menu.FormatProfile(user), menu.BuildBackToMenu())
	return nil
}

// HandleMenu returns to the main menu.
func (h *AccountHandler) HandleMenu(c tele.Context) error {
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

	user, err := h.accounts.GetUser(ctx, sender.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Menu failed")
		h.gw.AnswerCallback(cb.ID, "❌ Something went wrong", true)
		return nil
	}

	h.gw.AnswerCallback(cb.ID, "", false)
	h.editToMenu(cb, user, sender.ID)
	return nil
}

func (h *AccountHandler) editToMenu(cb *tele.Callback, user *model.User, senderID int64) {
	h.gw.Edit(cb.Message.Chat.ID, cb.Message.ID, menu.FormatMenu(user), menu.BuildMainMenu(h.cfg.IsAdmin(senderID)))
}
