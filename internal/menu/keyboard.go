// Package menu builds the bot's inline keyboards and message texts.
package menu

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"telegram-referral-bot/internal/model"
)

// Callback data values. Per-target actions carry the target user ID as a
// numeric suffix.
const (
	CallbackCheckSubscription = "check_subscription"
	CallbackEarn              = "earn"
	CallbackReferral          = "referral"
	CallbackProfile           = "profile"
	CallbackMenu              = "menu"
	CallbackAdminPanel        = "admin_panel"
	CallbackAdminStats        = "admin_stats"
	CallbackAdminUsersList    = "admin_users_list"

	PrefixAdminUserDetails = "admin_user_details_" // admin_user_details_<user_id>
	PrefixAdminBlock       = "admin_block_"        // admin_block_<user_id>
	PrefixAdminUnblock     = "admin_unblock_"      // admin_unblock_<user_id>
	PrefixApprove          = "approve_"            // approve_<user_id>
	PrefixReject           = "reject_"             // reject_<user_id>
)

// BuildMainMenu creates the main menu keyboard. Admins get an extra row
// leading to the admin panel.
func BuildMainMenu(isAdmin bool) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	rows := []tele.Row{
		markup.Row(
			markup.Data("💰 Earn", CallbackEarn),
			markup.Data("👥 Referrals", CallbackReferral),
		),
		markup.Row(markup.Data("📊 My profile", CallbackProfile)),
	}
	if isAdmin {
		rows = append(rows, markup.Row(markup.Data("🛠 Admin panel", CallbackAdminPanel)))
	}

	markup.Inline(rows...)
	return markup
}

// BuildSubscribePrompt creates the gate prompt: a deep link to the channel
// and the re-check button.
func BuildSubscribePrompt(channel string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	var rows []tele.Row
	if url := ChannelURL(channel); url != "" {
		rows = append(rows, markup.Row(markup.URL("📣 Open channel", url)))
	}
	rows = append(rows, markup.Row(markup.Data("✅ I've subscribed", CallbackCheckSubscription)))

	markup.Inline(rows...)
	return markup
}

// BuildBackToMenu creates a single back-to-menu button.
func BuildBackToMenu() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(markup.Data("⬅️ Back", CallbackMenu)))
	return markup
}

// BuildAdminPanel creates the admin panel keyboard.
func BuildAdminPanel() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.Inline(
		markup.Row(
			markup.Data("📈 Stats", CallbackAdminStats),
			markup.Data("👤 Users", CallbackAdminUsersList),
		),
		markup.Row(markup.Data("⬅️ Back", CallbackMenu)),
	)
	return markup
}

// BuildUsersList creates one drill-down button per listed user.
func BuildUsersList(users []*model.User) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	var rows []tele.Row
	for _, u := range users {
		label := displayName(u)
		btn := markup.Data(
			fmt.Sprintf("%s · %d pts", label, u.Balance),
			fmt.Sprintf("%s%d", PrefixAdminUserDetails, u.UserID),
		)
		rows = append(rows, markup.Row(btn))
	}
	rows = append(rows, markup.Row(markup.Data("⬅️ Back", CallbackAdminPanel)))

	markup.Inline(rows...)
	return markup
}

// BuildUserDetail creates the moderation keyboard for one user.
func BuildUserDetail(user *model.User) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	var blockBtn tele.Btn
	if user.Blocked {
		blockBtn = markup.Data("✅ Unblock", fmt.Sprintf("%s%d", PrefixAdminUnblock, user.UserID))
	} else {
		blockBtn = markup.Data("🚫 Block", fmt.Sprintf("%s%d", PrefixAdminBlock, user.UserID))
	}

	markup.Inline(
		markup.Row(blockBtn),
		markup.Row(
			markup.Data("💸 Approve withdrawal", fmt.Sprintf("%s%d", PrefixApprove, user.UserID)),
			markup.Data("↩️ Reject", fmt.Sprintf("%s%d", PrefixReject, user.UserID)),
		),
		markup.Row(markup.Data("⬅️ Back", CallbackAdminUsersList)),
	)
	return markup
}

// ChannelURL builds a t.me link for @username channels. Private numeric
// channel IDs have no public link; an empty string is returned for those.
func ChannelURL(channel string) string {
	if strings.HasPrefix(channel, "@") {
		return "https://t.me/" + strings.TrimPrefix(channel, "@")
	}
	return ""
}

func displayName(u *model.User) string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return fmt.Sprintf("%d", u.UserID)
}
