// Package bot wires the Telegram dispatcher: update routing, middleware
// and the typed callback parser.
package bot

import (
	"strconv"
	"strings"

	"telegram-referral-bot/internal/menu"
)

// ActionKind is the closed set of callback actions the bot understands.
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionCheckSubscription
	ActionEarn
	ActionReferral
	ActionProfile
	ActionMenu
	ActionAdminPanel
	ActionAdminStats
	ActionAdminUsersList
	ActionAdminUserDetails
	ActionAdminBlock
	ActionAdminUnblock
	ActionApproveWithdrawal
	ActionRejectWithdrawal
)

// Action is one decoded callback. TargetID is set only for the per-user
// admin actions.
type Action struct {
	Kind     ActionKind
	TargetID int64
}

// AdminOnly reports whether the action requires the configured admin.
func (k ActionKind) AdminOnly() bool {
	switch k {
	case ActionAdminPanel, ActionAdminStats, ActionAdminUsersList,
		ActionAdminUserDetails, ActionAdminBlock, ActionAdminUnblock,
		ActionApproveWithdrawal, ActionRejectWithdrawal:
		return true
	default:
		return false
	}
}

// ParseCallback decodes a raw callback data string into an Action.
// All prefix matching happens here, once, at the dispatcher boundary;
// anything unrecognized maps to ActionUnknown.
func ParseCallback(data string) Action {
	// Telebot may add a \f prefix to callback data.
	data = strings.TrimPrefix(data, "\f")
	// Unique-callback data can carry a |payload suffix.
	if i := strings.IndexByte(data, '|'); i >= 0 {
		data = data[:i]
	}

	switch data {
	case menu.CallbackCheckSubscription:
		return Action{Kind: ActionCheckSubscription}
	case menu.CallbackEarn:
		return Action{Kind: ActionEarn}
	case menu.CallbackReferral:
		return Action{Kind: ActionReferral}
	case menu.CallbackProfile:
		return Action{Kind: ActionProfile}
	case menu.CallbackMenu:
		return Action{Kind: ActionMenu}
	case menu.CallbackAdminPanel:
		return Action{Kind: ActionAdminPanel}
	case menu.CallbackAdminStats:
		return Action{Kind: ActionAdminStats}
	case menu.CallbackAdminUsersList:
		return Action{Kind: ActionAdminUsersList}
	}

	for _, p := range []struct {
		prefix string
		kind   ActionKind
	}{
		{menu.PrefixAdminUserDetails, ActionAdminUserDetails},
		{menu.PrefixAdminBlock, ActionAdminBlock},
		{menu.PrefixAdminUnblock, ActionAdminUnblock},
		{menu.PrefixApprove, ActionApproveWithdrawal},
		{menu.PrefixReject, ActionRejectWithdrawal},
	} {
		if !strings.HasPrefix(data, p.prefix) {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(data, p.prefix), 10, 64)
		if err != nil || id <= 0 {
			return Action{Kind: ActionUnknown}
		}
		return Action{Kind: p.kind, TargetID: id}
	}

	return Action{Kind: ActionUnknown}
}
