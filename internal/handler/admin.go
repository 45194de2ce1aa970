package handler

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-referral-bot/internal/config"
	"telegram-referral-bot/internal/gateway"
	"telegram-referral-bot/internal/menu"
	"telegram-referral-bot/internal/service"
)

// AdminHandler handles the admin moderation callbacks. Admin authorization
// happens at the dispatch layer; these handlers assume the sender is the
// configured admin.
type AdminHandler struct {
	cfg    *config.Config
	gw     *gateway.Client
	admins *service.AdminService
	gate   *service.SubscriptionGate
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(cfg *config.Config, gw *gateway.Client, admins *service.AdminService, gate *service.SubscriptionGate) *AdminHandler {
	return &AdminHandler{cfg: cfg, gw: gw, admins: admins, gate: gate}
}

// HandlePanel shows the admin panel.
func (h *AdminHandler) HandlePanel(c tele.Context) error {
	cb := c.Callback()
	if cb == nil {
		return nil
	}
	if cb.Message == nil {
		h.gw.AnswerCallback(cb.ID, "", false)
		return nil
	}
	h.gw.AnswerCallback(cb.ID, "", false)
	h.gw.Edit(cb.Message.Chat.ID, cb.Message.ID, "🛠 Admin panel", menu.BuildAdminPanel())
	return nil
}

// HandleStats shows the aggregate counters and the top listing.
func (h *AdminHandler) HandleStats(c tele.Context) error {
	ctx := context.Background()
	cb := c.Callback()
	if cb == nil {
		return nil
	}
	if cb.Message == nil {
		h.gw.AnswerCallback(cb.ID, "", false)
		return nil
	}

	stats, err := h.admins.Stats(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Stats query failed")
		h.gw.AnswerCallback(cb.ID, "❌ Something went wrong", true)
		return nil
	}
	top, err := h.admins.TopUsers(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Top users query failed")
		h.gw.AnswerCallback(cb.ID, "❌ Something went wrong", true)
		return nil
	}

	h.gw.AnswerCallback(cb.ID, "", false)
	h.gw.Edit(cb.Message.Chat.ID, cb.Message.ID, menu.FormatStatsWithTop(stats, top), menu.BuildAdminPanel())
	return nil
}

// HandleUsersList shows the newest users with one drill-down button each.
func (h *AdminHandler) HandleUsersList(c tele.Context) error {
	ctx := context.Background()
	cb := c.Callback()
	if cb == nil {
		return nil
	}
	if cb.Message == nil {
		h.gw.AnswerCallback(cb.ID, "", false)
		return nil
	}

	users, err := h.admins.ListUsers(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Users list query failed")
		h.gw.AnswerCallback(cb.ID, "❌ Something went wrong", true)
		return nil
	}

	h.gw.AnswerCallback(cb.ID, "", false)
	h.gw.Edit(cb.Message.Chat.ID, cb.Message.ID, menu.FormatUsersList(len(users)), menu.BuildUsersList(users))
	return nil
}

// HandleUserDetails shows one user's full profile with live subscription
// status and the moderation buttons.
func (h *AdminHandler) HandleUserDetails(c tele.Context, targetID int64) error {
	ctx := context.Background()
	cb := c.Callback()
	if cb == nil {
		return nil
	}
	if cb.Message == nil {
		h.gw.AnswerCallback(cb.ID, "", false)
		return nil
	}

	if err := h.renderUserDetail(ctx, cb, targetID); err != nil {
		log.Error().Err(err).Int64("target_id", targetID).Msg("User detail query failed")
		h.gw.AnswerCallback(cb.ID, "❌ User not found", true)
		return nil
	}
	h.gw.AnswerCallback(cb.ID, "", false)
	return nil
}

// renderUserDetail re-reads the target's row and re-renders the drill-down
// view, so the investment count, blocked flag and subscription status are
// current after every moderation action.
func (h *AdminHandler) renderUserDetail(ctx context.Context, cb *tele.Callback, targetID int64) error {
	detail, err := h.admins.GetUserDetail(ctx, targetID)
	if err != nil {
		return err
	}

	subscribed := h.gate.Enabled() && h.gate.IsSubscribed(targetID)

	h.gw.Edit(cb.Message.Chat.ID, cb.Message.ID,
		menu.FormatUserDetail(detail.User, detail.Investments, h.gate.Enabled(), subscribed),
		menu.BuildUserDetail(detail.User))
	return nil
}

// HandleBlock blocks a user. Blocking the admin's own account is rejected
// with an alert and no state change. The target is notified directly.
func (h *AdminHandler) HandleBlock(c tele.Context, targetID int64) error {
	ctx := context.Background()
	cb := c.Callback()
	sender := c.Sender()
	if cb == nil || sender == nil {
		return nil
	}
	if cb.Message == nil {
		h.gw.AnswerCallback(cb.ID, "", false)
		return nil
	}

	_, err := h.admins.Block(ctx, sender.ID, targetID)
	switch {
	case errors.Is(err, service.ErrCannotBlockSelf):
		h.gw.AnswerCallback(cb.ID, "❌ You cannot block your own account", true)
		return nil
	case err != nil:
		log.Error().Err(err).Int64("target_id", targetID).Msg("Block failed")
		h.gw.AnswerCallback(cb.ID, "❌ Something went wrong", true)
		return nil
	}

	h.gw.Send(targetID, 0, menu.FormatBlockedNotice(true), nil)
	h.gw.AnswerCallback(cb.ID, "🚫 User blocked", false)
	if err := h.renderUserDetail(ctx, cb, targetID); err != nil {
		log.Error().Err(err).Int64("target_id", targetID).Msg("Detail refresh failed")
	}
	return nil
}

// HandleUnblock clears a user's blocked flag and notifies them.
func (h *AdminHandler) HandleUnblock(c tele.Context, targetID int64) error {
	ctx := context.Background()
	cb := c.Callback()
	sender := c.Sender()
	if cb == nil || sender == nil {
		return nil
	}
	if cb.Message == nil {
		h.gw.AnswerCallback(cb.ID, "", false)
		return nil
	}

	_, err := h.admins.Unblock(ctx, sender.ID, targetID)
	if err != nil {
		log.Error().Err(err).Int64("target_id", targetID).Msg("Unblock failed")
		h.gw.AnswerCallback(cb.ID, "❌ Something went wrong", true)
		return nil
	}

	h.gw.Send(targetID, 0, menu.FormatBlockedNotice(false), nil)
	h.gw.AnswerCallback(cb.ID, "✅ User unblocked", false)
	if err := h.renderUserDetail(ctx, cb, targetID); err != nil {
		log.Error().Err(err).Int64("target_id", targetID).Msg("Detail refresh failed")
	}
	return nil
}

// HandleApproveWithdrawal pays out and zeroes the target's balance.
func (h *AdminHandler) HandleApproveWithdrawal(c tele.Context, targetID int64) error {
	ctx := context.Background()
	cb := c.Callback()
	if cb == nil {
		return nil
	}
	if cb.Message == nil {
		h.gw.AnswerCallback(cb.ID, "", false)
		return nil
	}

	_, paid, err := h.admins.ApproveWithdrawal(ctx, targetID)
	if err != nil {
		log.Error().Err(err).Int64("target_id", targetID).Msg("Withdrawal approval failed")
		h.gw.AnswerCallback(cb.ID, "❌ Something went wrong", true)
		return nil
	}

	h.gw.Send(targetID, 0, menu.FormatPayoutNotice(true, paid), nil)
	h.gw.AnswerCallback(cb.ID, "💸 Withdrawal approved", false)
	if err := h.renderUserDetail(ctx, cb, targetID); err != nil {
		log.Error().Err(err).Int64("target_id", targetID).Msg("Detail refresh failed")
	}
	return nil
}

// HandleRejectWithdrawal declines a withdrawal; the balance is untouched.
func (h *AdminHandler) HandleRejectWithdrawal(c tele.Context, targetID int64) error {
	ctx := context.Background()
	cb := c.Callback()
	if cb == nil {
		return nil
	}
	if cb.Message == nil {
		h.gw.AnswerCallback(cb.ID, "", false)
		return nil
	}

	_, err := h.admins.RejectWithdrawal(ctx, targetID)
	if err != nil {
		log.Error().Err(err).Int64("target_id", targetID).Msg("Withdrawal rejection failed")
		h.gw.AnswerCallback(cb.ID, "❌ Something went wrong", true)
		return nil
	}

	h.gw.Send(targetID, 0, menu.FormatPayoutNotice(false, 0), nil)
	h.gw.AnswerCallback(cb.ID, "↩️ Withdrawal rejected", false)
	if err := h.renderUserDetail(ctx, cb, targetID); err != nil {
		log.Error().Err(err).Int64("target_id", targetID).Msg("Detail refresh failed")
	}
	return nil
}
